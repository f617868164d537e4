// Package versionstore provides workflow version persistence.
package versionstore

import (
	"context"
	"errors"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

// Common errors returned by Store implementations.
var (
	ErrVersionNotFound  = errors.New("version not found")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrParentNotFound   = errors.New("parent version not found")
)

// CreateVersionRequest is the input for saving a new version.
type CreateVersionRequest struct {
	WorkflowID string `json:"workflowId"`
	// ParentVersionID defaults to the active version when nil.
	ParentVersionID *string          `json:"parentVersionId,omitempty"`
	CreatedBy       string           `json:"createdBy,omitempty"`
	Definition      types.Definition `json:"definition"`
	// Activate makes the new version the active one. The first version of
	// a workflow is always activated.
	Activate bool `json:"activate,omitempty"`
}

// Validate checks if a CreateVersionRequest is valid.
func (r *CreateVersionRequest) Validate() error {
	if r.WorkflowID == "" {
		return errors.New("workflow id is required")
	}
	if r.ParentVersionID != nil && *r.ParentVersionID == "" {
		return errors.New("parent version id must not be empty")
	}
	return nil
}

// ListOptions configures list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// Store defines the interface for version persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create saves a new version numbered one past the workflow's latest.
	// Returns ErrParentNotFound if an explicit parent is not in the workflow.
	Create(ctx context.Context, req *CreateVersionRequest) (*types.WorkflowVersion, error)

	// Get retrieves a version. Returns ErrVersionNotFound if not found.
	Get(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error)

	// List returns a workflow's versions, newest first.
	// Returns ErrWorkflowNotFound if the workflow has no versions.
	List(ctx context.Context, workflowID string, opts *ListOptions) ([]*types.WorkflowVersion, error)

	// Activate marks a version active and every other version of the
	// workflow inactive. Returns ErrVersionNotFound if not found.
	Activate(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error)

	// Close releases any resources.
	Close() error
}

// page applies offset and limit to a newest-first slice.
func page[T any](items []T, opts *ListOptions) []T {
	if opts == nil {
		return items
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return []T{}
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// cloneVersion deep-copies v so callers cannot alias store state.
func cloneVersion(v *types.WorkflowVersion) *types.WorkflowVersion {
	out := *v
	if v.ParentVersionID != nil {
		p := *v.ParentVersionID
		out.ParentVersionID = &p
	}
	out.Definition = cloneDefinition(v.Definition)
	return &out
}

func cloneDefinition(d types.Definition) types.Definition {
	out := types.Definition{Viewport: d.Viewport}
	if d.Nodes != nil {
		out.Nodes = make([]types.Node, len(d.Nodes))
		for i, n := range d.Nodes {
			out.Nodes[i] = n
			if n.Inputs != nil {
				out.Nodes[i].Inputs = make(map[string]string, len(n.Inputs))
				for k, v := range n.Inputs {
					out.Nodes[i].Inputs[k] = v
				}
			}
		}
	}
	if d.Edges != nil {
		out.Edges = append([]types.Edge(nil), d.Edges...)
	}
	return out
}
