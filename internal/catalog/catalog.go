// Package catalog provides the registry of task types and their ports.
//
// A Catalog is built once at startup and never mutated. The validator and
// the compiler receive it explicitly, so tests can substitute their own.
package catalog

import (
	"errors"
	"fmt"

	"github.com/flexinfer/scrapeflow/internal/handle"
	"github.com/flexinfer/scrapeflow/pkg/types"
)

// ErrInvalidManifest is returned when task definitions are inconsistent.
var ErrInvalidManifest = errors.New("invalid task manifest")

// Param describes an input or output port of a task.
type Param struct {
	Name       string              `json:"name"`
	Type       types.TaskParamType `json:"type"`
	Required   bool                `json:"required,omitempty"`
	HideHandle bool                `json:"hideHandle,omitempty"`
	HelperText string              `json:"helperText,omitempty"`
	Variant    string              `json:"variant,omitempty"`
	Options    []string            `json:"options,omitempty"`
}

// Handle returns the normalized handle id of the port.
func (p Param) Handle() string {
	return handle.Normalize(p.Name)
}

// TaskDefinition declares the ports of a task type.
// Definitions returned by a Catalog must not be modified.
type TaskDefinition struct {
	Type         types.TaskType `json:"type"`
	Label        string         `json:"label"`
	Icon         string         `json:"icon,omitempty"`
	IsEntryPoint bool           `json:"isEntryPoint"`
	Credits      int            `json:"credits"`
	Inputs       []Param        `json:"inputs"`
	Outputs      []Param        `json:"outputs"`

	inputIdx  map[string]int
	outputIdx map[string]int
}

// Input resolves an input port by handle (raw or normalized).
func (d *TaskDefinition) Input(h string) (Param, bool) {
	i, ok := d.inputIdx[handle.Normalize(h)]
	if !ok {
		return Param{}, false
	}
	return d.Inputs[i], true
}

// Output resolves an output port by handle (raw or normalized).
func (d *TaskDefinition) Output(h string) (Param, bool) {
	i, ok := d.outputIdx[handle.Normalize(h)]
	if !ok {
		return Param{}, false
	}
	return d.Outputs[i], true
}

// Catalog is an immutable set of task definitions.
type Catalog struct {
	tasks map[types.TaskType]*TaskDefinition
	order []types.TaskType
}

// New builds a catalog from definitions, keeping their order for List.
func New(defs ...TaskDefinition) (*Catalog, error) {
	c := &Catalog{
		tasks: make(map[types.TaskType]*TaskDefinition, len(defs)),
		order: make([]types.TaskType, 0, len(defs)),
	}

	for i := range defs {
		def := defs[i]
		if def.Type == "" {
			return nil, fmt.Errorf("%w: task %d has no type", ErrInvalidManifest, i)
		}
		if _, exists := c.tasks[def.Type]; exists {
			return nil, fmt.Errorf("%w: duplicate task type %s", ErrInvalidManifest, def.Type)
		}

		var err error
		if def.inputIdx, err = indexParams(def.Type, "input", def.Inputs); err != nil {
			return nil, err
		}
		if def.outputIdx, err = indexParams(def.Type, "output", def.Outputs); err != nil {
			return nil, err
		}

		// Entry points start without wiring, so their inputs are literal-only.
		if def.IsEntryPoint {
			for _, in := range def.Inputs {
				if !in.HideHandle {
					return nil, fmt.Errorf("%w: entry point %s exposes input handle %q",
						ErrInvalidManifest, def.Type, in.Name)
				}
			}
		}

		c.tasks[def.Type] = &def
		c.order = append(c.order, def.Type)
	}

	return c, nil
}

func indexParams(taskType types.TaskType, kind string, params []Param) (map[string]int, error) {
	idx := make(map[string]int, len(params))
	for i, p := range params {
		if !p.Type.IsValid() {
			return nil, fmt.Errorf("%w: %s %s %q has unknown type %q",
				ErrInvalidManifest, taskType, kind, p.Name, p.Type)
		}
		h := p.Handle()
		if h == "" {
			return nil, fmt.Errorf("%w: %s %s %q normalizes to an empty handle",
				ErrInvalidManifest, taskType, kind, p.Name)
		}
		if _, dup := idx[h]; dup {
			return nil, fmt.Errorf("%w: %s has duplicate %s handle %q",
				ErrInvalidManifest, taskType, kind, h)
		}
		idx[h] = i
	}
	return idx, nil
}

// Lookup returns the definition for a task type.
func (c *Catalog) Lookup(t types.TaskType) (*TaskDefinition, bool) {
	def, ok := c.tasks[t]
	return def, ok
}

// IsEntryPoint reports whether t may start a workflow. Unknown types are not entry points.
func (c *Catalog) IsEntryPoint(t types.TaskType) bool {
	def, ok := c.tasks[t]
	return ok && def.IsEntryPoint
}

// List returns all definitions in manifest order.
func (c *Catalog) List() []*TaskDefinition {
	defs := make([]*TaskDefinition, 0, len(c.order))
	for _, t := range c.order {
		defs = append(defs, c.tasks[t])
	}
	return defs
}

// EntryPoints returns the task types allowed to start a workflow.
func (c *Catalog) EntryPoints() []types.TaskType {
	var out []types.TaskType
	for _, t := range c.order {
		if c.tasks[t].IsEntryPoint {
			out = append(out, t)
		}
	}
	return out
}

// Cost sums the credits of every node's task. Unknown task types cost nothing.
func (c *Catalog) Cost(nodes []types.Node) int {
	total := 0
	for _, n := range nodes {
		if def, ok := c.tasks[n.TaskType]; ok {
			total += def.Credits
		}
	}
	return total
}
