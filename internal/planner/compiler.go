// Package planner compiles workflow graphs into phase-ordered execution plans.
//
// Compilation is pure: it reads the node and edge slices it is given, never
// mutates them, and keeps no state between calls.
package planner

import (
	"github.com/flexinfer/scrapeflow/internal/catalog"
	"github.com/flexinfer/scrapeflow/internal/graph"
	"github.com/flexinfer/scrapeflow/pkg/types"
)

// Compiler turns graphs into execution plans using a task catalog.
type Compiler struct {
	catalog *catalog.Catalog
}

// NewCompiler creates a compiler backed by c.
func NewCompiler(c *catalog.Catalog) *Compiler {
	return &Compiler{catalog: c}
}

// Compile builds the execution plan for nodes and edges.
//
// Phase 0 holds every entry-point node. Each later phase holds the unplanned
// nodes whose predecessors were all planned before the phase started. A
// node placed while some of its inputs are still unsatisfied is reported,
// and any reported node fails the whole compile with INVALID_INPUTS.
func (c *Compiler) Compile(nodes []types.Node, edges []types.Edge) (*types.ExecutionPlan, error) {
	snap := graph.NewSnapshot(nodes, edges)

	var entries []types.Node
	for _, n := range nodes {
		if c.catalog.IsEntryPoint(n.TaskType) {
			entries = append(entries, n)
		}
	}
	if len(entries) == 0 {
		return nil, &CompileError{Code: CodeNoEntryPoint}
	}

	planned := make(map[string]bool, len(nodes))
	var inputErrors []types.InputError
	plan := &types.ExecutionPlan{}

	first := types.Phase{Index: 0, Nodes: make([]types.Node, 0, len(entries))}
	for _, n := range entries {
		missing := c.unsatisfiedInputs(snap, n, planned)
		// Entry points take literals only; anything wired into one is an error.
		for _, e := range snap.Incoming(n.ID) {
			if snap.Has(e.Source) {
				missing = append(missing, e.TargetHandle)
			}
		}
		if len(missing) > 0 {
			inputErrors = append(inputErrors, types.InputError{NodeID: n.ID, MissingInputs: missing})
		}
		first.Nodes = append(first.Nodes, n)
	}
	plan.Phases = append(plan.Phases, first)
	markPlanned(planned, first)

	for round := 1; round <= len(nodes) && len(planned) < len(nodes); round++ {
		phase := types.Phase{Index: len(plan.Phases)}
		for _, n := range nodes {
			if planned[n.ID] {
				continue
			}
			// Deferred until every predecessor lands in an earlier phase.
			if !allPlanned(snap.Incomers(n.ID), planned) {
				continue
			}
			if missing := c.unsatisfiedInputs(snap, n, planned); len(missing) > 0 {
				inputErrors = append(inputErrors, types.InputError{NodeID: n.ID, MissingInputs: missing})
			}
			phase.Nodes = append(phase.Nodes, n)
		}
		if len(phase.Nodes) == 0 {
			break
		}
		plan.Phases = append(plan.Phases, phase)
		markPlanned(planned, phase)
	}

	inputErrors = append(inputErrors, c.stuck(snap, planned)...)
	if len(inputErrors) > 0 {
		return nil, &CompileError{Code: CodeInvalidInputs, Errors: inputErrors}
	}
	return plan, nil
}

// unsatisfiedInputs returns the declared inputs of n that are not yet
// satisfied given the planned set. A non-empty literal always satisfies an
// input. A required input otherwise needs an edge from a planned source. An
// optional input is satisfied when unwired or wired to a planned source.
func (c *Compiler) unsatisfiedInputs(snap *graph.Snapshot, n types.Node, planned map[string]bool) []string {
	def, ok := c.catalog.Lookup(n.TaskType)
	if !ok {
		return nil
	}

	var missing []string
	for _, in := range def.Inputs {
		if literal(n, in) != "" {
			continue
		}
		e, wired := snap.IncomingAt(n.ID, in.Name)
		switch {
		case wired && planned[e.Source]:
		case !wired && !in.Required:
		default:
			missing = append(missing, in.Name)
		}
	}
	return missing
}

// stuck reports nodes that were never planned because progress stopped,
// which only happens when predecessors form a cycle.
func (c *Compiler) stuck(snap *graph.Snapshot, planned map[string]bool) []types.InputError {
	var out []types.InputError
	seen := make(map[string]bool)
	for _, n := range snap.Nodes() {
		if planned[n.ID] || seen[n.ID] {
			continue
		}
		seen[n.ID] = true

		missing := c.unsatisfiedInputs(snap, n, planned)
		if len(missing) == 0 {
			for _, e := range snap.Incoming(n.ID) {
				if snap.Has(e.Source) && !planned[e.Source] {
					missing = append(missing, e.TargetHandle)
				}
			}
		}
		out = append(out, types.InputError{NodeID: n.ID, MissingInputs: missing})
	}
	return out
}

// literal returns the stored value of an input, keyed by display name or handle.
func literal(n types.Node, in catalog.Param) string {
	if v := n.Inputs[in.Name]; v != "" {
		return v
	}
	return n.Inputs[in.Handle()]
}

func allPlanned(ids []string, planned map[string]bool) bool {
	for _, id := range ids {
		if !planned[id] {
			return false
		}
	}
	return true
}

func markPlanned(planned map[string]bool, phase types.Phase) {
	for _, n := range phase.Nodes {
		planned[n.ID] = true
	}
}
