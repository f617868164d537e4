package types

// Phase is a batch of nodes whose dependencies are satisfied by earlier phases.
// Nodes within a phase may run in any order.
type Phase struct {
	Index int    `json:"phase"`
	Nodes []Node `json:"nodes"`
}

// ExecutionPlan is the ordered list of phases produced by the compiler.
type ExecutionPlan struct {
	Phases []Phase `json:"phases"`
}

// PhaseOf returns the index of the phase containing nodeID.
func (p *ExecutionPlan) PhaseOf(nodeID string) (int, bool) {
	if p == nil {
		return 0, false
	}
	for _, phase := range p.Phases {
		for _, n := range phase.Nodes {
			if n.ID == nodeID {
				return phase.Index, true
			}
		}
	}
	return 0, false
}

// NodeCount returns the number of nodes across all phases.
func (p *ExecutionPlan) NodeCount() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, phase := range p.Phases {
		total += len(phase.Nodes)
	}
	return total
}

// InputError lists the inputs of a node that could not be satisfied.
type InputError struct {
	NodeID        string   `json:"nodeId"`
	MissingInputs []string `json:"inputs"`
}
