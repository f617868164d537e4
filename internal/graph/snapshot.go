// Package graph indexes workflow graphs and decides whether a proposed edge
// may be added to one.
package graph

import (
	"github.com/flexinfer/scrapeflow/internal/handle"
	"github.com/flexinfer/scrapeflow/pkg/types"
)

// Snapshot is a read-only index over one node/edge set. It is built per
// call and never retained by the validator or the compiler.
type Snapshot struct {
	nodes    []types.Node
	edges    []types.Edge
	nodeByID map[string]int
	incoming map[string][]int // target node id -> edge indices
	outgoing map[string][]int // source node id -> edge indices
}

// NewSnapshot indexes nodes and edges. The slices are not copied; callers
// must not mutate them while the snapshot is in use.
func NewSnapshot(nodes []types.Node, edges []types.Edge) *Snapshot {
	s := &Snapshot{
		nodes:    nodes,
		edges:    edges,
		nodeByID: make(map[string]int, len(nodes)),
		incoming: make(map[string][]int, len(nodes)),
		outgoing: make(map[string][]int, len(nodes)),
	}
	for i, n := range nodes {
		if _, dup := s.nodeByID[n.ID]; !dup {
			s.nodeByID[n.ID] = i
		}
	}
	for i, e := range edges {
		s.outgoing[e.Source] = append(s.outgoing[e.Source], i)
		s.incoming[e.Target] = append(s.incoming[e.Target], i)
	}
	return s
}

// Nodes returns the indexed nodes in their original order.
func (s *Snapshot) Nodes() []types.Node {
	return s.nodes
}

// Node returns the node with the given id.
func (s *Snapshot) Node(id string) (types.Node, bool) {
	i, ok := s.nodeByID[id]
	if !ok {
		return types.Node{}, false
	}
	return s.nodes[i], true
}

// Has reports whether id names a node in the snapshot.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.nodeByID[id]
	return ok
}

// Incoming returns the edges terminating at id, in edge order.
func (s *Snapshot) Incoming(id string) []types.Edge {
	return s.collect(s.incoming[id])
}

// Outgoing returns the edges leaving id, in edge order.
func (s *Snapshot) Outgoing(id string) []types.Edge {
	return s.collect(s.outgoing[id])
}

// IncomingAt returns the first edge terminating at the given input handle of
// id. Handles are compared after normalization.
func (s *Snapshot) IncomingAt(id, inputHandle string) (types.Edge, bool) {
	want := handle.Normalize(inputHandle)
	for _, i := range s.incoming[id] {
		if handle.Normalize(s.edges[i].TargetHandle) == want {
			return s.edges[i], true
		}
	}
	return types.Edge{}, false
}

// Incomers returns the distinct source node ids feeding id, in edge order.
// Sources missing from the snapshot are skipped.
func (s *Snapshot) Incomers(id string) []string {
	return s.distinct(s.incoming[id], func(e types.Edge) string { return e.Source })
}

// Outgoers returns the distinct target node ids fed by id, in edge order.
// Targets missing from the snapshot are skipped.
func (s *Snapshot) Outgoers(id string) []string {
	return s.distinct(s.outgoing[id], func(e types.Edge) string { return e.Target })
}

func (s *Snapshot) collect(idx []int) []types.Edge {
	out := make([]types.Edge, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.edges[i])
	}
	return out
}

func (s *Snapshot) distinct(idx []int, pick func(types.Edge) string) []string {
	seen := make(map[string]bool, len(idx))
	var out []string
	for _, i := range idx {
		id := pick(s.edges[i])
		if seen[id] || !s.Has(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
