package versions

import (
	"sort"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

// DiffResult describes how two workflow definitions differ.
// ChangedInputs applies to both sides: it maps a node id present in both
// to the sorted input keys whose values differ.
type DiffResult struct {
	HighlightNodesA []string            `json:"highlightNodesA"`
	HighlightNodesB []string            `json:"highlightNodesB"`
	ChangedInputs   map[string][]string `json:"changedInputs"`
	EdgesOnlyInA    []string            `json:"edgesOnlyInA"`
	EdgesOnlyInB    []string            `json:"edgesOnlyInB"`
}

// Empty reports whether the two sides are structurally identical.
func (d DiffResult) Empty() bool {
	return len(d.HighlightNodesA) == 0 && len(d.HighlightNodesB) == 0 &&
		len(d.ChangedInputs) == 0 && len(d.EdgesOnlyInA) == 0 && len(d.EdgesOnlyInB) == 0
}

// Diff compares side A with side B. Nodes and edges are matched by id;
// ids unique to one side are listed in that side's order. A key missing
// on one side differs from any value on the other, including "".
func Diff(nodesA []types.Node, edgesA []types.Edge, nodesB []types.Node, edgesB []types.Edge) DiffResult {
	res := DiffResult{
		HighlightNodesA: []string{},
		HighlightNodesB: []string{},
		ChangedInputs:   map[string][]string{},
		EdgesOnlyInA:    []string{},
		EdgesOnlyInB:    []string{},
	}

	nodeA := make(map[string]types.Node, len(nodesA))
	for _, n := range nodesA {
		nodeA[n.ID] = n
	}
	nodeB := make(map[string]types.Node, len(nodesB))
	for _, n := range nodesB {
		nodeB[n.ID] = n
	}

	for _, n := range nodesA {
		other, ok := nodeB[n.ID]
		if !ok {
			res.HighlightNodesA = append(res.HighlightNodesA, n.ID)
			continue
		}
		if keys := changedKeys(n.Inputs, other.Inputs); len(keys) > 0 {
			res.ChangedInputs[n.ID] = keys
		}
	}
	for _, n := range nodesB {
		if _, ok := nodeA[n.ID]; !ok {
			res.HighlightNodesB = append(res.HighlightNodesB, n.ID)
		}
	}

	res.EdgesOnlyInA = edgesMissingFrom(edgesA, edgesB)
	res.EdgesOnlyInB = edgesMissingFrom(edgesB, edgesA)
	return res
}

// DiffVersions compares the definitions of two versions.
func DiffVersions(a, b types.WorkflowVersion) DiffResult {
	return Diff(a.Definition.Nodes, a.Definition.Edges, b.Definition.Nodes, b.Definition.Edges)
}

func changedKeys(a, b map[string]string) []string {
	var keys []string
	for k, va := range a {
		if vb, ok := b[k]; !ok || va != vb {
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func edgesMissingFrom(edges, other []types.Edge) []string {
	ids := make(map[string]bool, len(other))
	for _, e := range other {
		ids[e.ID] = true
	}
	out := []string{}
	for _, e := range edges {
		if !ids[e.ID] {
			out = append(out, e.ID)
		}
	}
	return out
}
