package graph

import (
	"github.com/flexinfer/scrapeflow/internal/catalog"
	"github.com/flexinfer/scrapeflow/pkg/types"
)

// Rejection names the check that refused a candidate edge. The empty
// Rejection means the edge is allowed.
type Rejection string

const (
	RejectSelfLoop     Rejection = "self_loop"
	RejectMissingNode  Rejection = "missing_node"
	RejectUnknownTask  Rejection = "unknown_task"
	RejectUnknownPort  Rejection = "unknown_port"
	RejectHiddenHandle Rejection = "hidden_handle"
	RejectTypeMismatch Rejection = "type_mismatch"
	RejectInputTaken   Rejection = "input_taken"
	RejectCycle        Rejection = "cycle"
)

// Validator gates interactive edge creation against a task catalog.
// It holds no per-graph state and is safe for concurrent use.
type Validator struct {
	catalog *catalog.Catalog
}

// NewValidator creates a validator backed by c.
func NewValidator(c *catalog.Catalog) *Validator {
	return &Validator{catalog: c}
}

// CanConnect reports whether candidate may be added to the graph.
func (v *Validator) CanConnect(candidate types.Edge, nodes []types.Node, edges []types.Edge) bool {
	return v.Explain(candidate, nodes, edges) == ""
}

// Explain runs the connection checks in order and returns the first one
// that fails, or "" when the edge is allowed.
func (v *Validator) Explain(candidate types.Edge, nodes []types.Node, edges []types.Edge) Rejection {
	if candidate.Source == candidate.Target {
		return RejectSelfLoop
	}

	snap := NewSnapshot(nodes, edges)
	source, ok := snap.Node(candidate.Source)
	if !ok {
		return RejectMissingNode
	}
	target, ok := snap.Node(candidate.Target)
	if !ok {
		return RejectMissingNode
	}

	if r := v.checkPorts(candidate, source, target); r != "" {
		return r
	}

	if _, taken := snap.IncomingAt(target.ID, candidate.TargetHandle); taken {
		return RejectInputTaken
	}

	if reaches(adjacency(edges, candidate), candidate.Target, candidate.Source, make(map[string]bool)) {
		return RejectCycle
	}

	return ""
}

func (v *Validator) checkPorts(candidate types.Edge, source, target types.Node) Rejection {
	srcDef, ok := v.catalog.Lookup(source.TaskType)
	if !ok {
		return RejectUnknownTask
	}
	dstDef, ok := v.catalog.Lookup(target.TaskType)
	if !ok {
		return RejectUnknownTask
	}

	out, ok := srcDef.Output(candidate.SourceHandle)
	if !ok {
		return RejectUnknownPort
	}
	in, ok := dstDef.Input(candidate.TargetHandle)
	if !ok {
		return RejectUnknownPort
	}
	// Hidden inputs take literal values only.
	if in.HideHandle {
		return RejectHiddenHandle
	}
	if out.Type != in.Type {
		return RejectTypeMismatch
	}
	return ""
}

// adjacency builds the outgoing adjacency of edges plus extra.
func adjacency(edges []types.Edge, extra types.Edge) map[string][]string {
	adj := make(map[string][]string, len(edges)+1)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	adj[extra.Source] = append(adj[extra.Source], extra.Target)
	return adj
}

// reaches reports whether to is reachable from from by following adj.
// visited must be non-nil; it records every node expanded so far and
// bounds the walk on graphs with shared sub-DAGs or existing cycles.
func reaches(adj map[string][]string, from, to string, visited map[string]bool) bool {
	if from == to {
		return true
	}
	if visited[from] {
		return false
	}
	visited[from] = true
	for _, next := range adj[from] {
		if reaches(adj, next, to, visited) {
			return true
		}
	}
	return false
}

// Reachable reports whether to can be reached from from over edges.
func Reachable(edges []types.Edge, from, to string) bool {
	adj := make(map[string][]string, len(edges))
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	return reaches(adj, from, to, make(map[string]bool))
}
