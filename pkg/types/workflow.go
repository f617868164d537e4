package types

// Position is a node's location on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the editor camera saved with a definition.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Node is a single task instance in a workflow graph.
type Node struct {
	ID       string            `json:"id"`
	TaskType TaskType          `json:"taskType"`
	Inputs   map[string]string `json:"inputs,omitempty"` // port name -> literal value
	Position Position          `json:"position"`
}

// Edge is a directed data dependency: Target's TargetHandle input is
// supplied by Source's SourceHandle output.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// Definition is an editor snapshot of a workflow.
type Definition struct {
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Viewport Viewport `json:"viewport"`
}
