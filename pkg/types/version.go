package types

import "time"

// WorkflowVersion is a persisted snapshot of a workflow definition.
// Versions form a forest through ParentVersionID.
type WorkflowVersion struct {
	ID              string     `json:"id"`
	WorkflowID      string     `json:"workflowId"`
	VersionNumber   int        `json:"versionNumber"`
	ParentVersionID *string    `json:"parentVersionId,omitempty"`
	CreatedBy       string     `json:"createdBy,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	Definition      Definition `json:"definition"`
	IsActive        bool       `json:"isActive"`
}

// HasParent reports whether the version declares a parent.
func (v *WorkflowVersion) HasParent() bool {
	return v.ParentVersionID != nil && *v.ParentVersionID != ""
}
