package versionstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

// MemoryStore implements Store using in-memory storage.
// Suitable for testing and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string][]*types.WorkflowVersion // ordered by version number
}

// NewMemoryStore creates a new in-memory version store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[string][]*types.WorkflowVersion),
	}
}

// Create saves a new version.
func (s *MemoryStore) Create(ctx context.Context, req *CreateVersionRequest) (*types.WorkflowVersion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.workflows[req.WorkflowID]

	var active *types.WorkflowVersion
	for _, v := range existing {
		if v.IsActive {
			active = v
		}
	}

	parent := req.ParentVersionID
	if parent == nil && active != nil {
		id := active.ID
		parent = &id
	}
	if parent != nil && find(existing, *parent) == nil {
		return nil, ErrParentNotFound
	}

	v := &types.WorkflowVersion{
		ID:              uuid.New().String(),
		WorkflowID:      req.WorkflowID,
		VersionNumber:   len(existing) + 1,
		ParentVersionID: parent,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       time.Now().UTC(),
		Definition:      cloneDefinition(req.Definition),
		IsActive:        req.Activate || len(existing) == 0,
	}
	if v.IsActive && active != nil {
		active.IsActive = false
	}

	s.workflows[req.WorkflowID] = append(existing, v)
	return cloneVersion(v), nil
}

// Get retrieves a version.
func (s *MemoryStore) Get(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := find(s.workflows[workflowID], versionID)
	if v == nil {
		return nil, ErrVersionNotFound
	}
	return cloneVersion(v), nil
}

// List returns a workflow's versions, newest first.
func (s *MemoryStore) List(ctx context.Context, workflowID string, opts *ListOptions) ([]*types.WorkflowVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.workflows[workflowID]
	if !ok || len(existing) == 0 {
		return nil, ErrWorkflowNotFound
	}

	versions := make([]*types.WorkflowVersion, 0, len(existing))
	for i := len(existing) - 1; i >= 0; i-- {
		versions = append(versions, cloneVersion(existing[i]))
	}
	return page(versions, opts), nil
}

// Activate marks a version active.
func (s *MemoryStore) Activate(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.workflows[workflowID]
	target := find(existing, versionID)
	if target == nil {
		return nil, ErrVersionNotFound
	}
	for _, v := range existing {
		v.IsActive = v == target
	}
	return cloneVersion(target), nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func find(versions []*types.WorkflowVersion, id string) *types.WorkflowVersion {
	for _, v := range versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}
