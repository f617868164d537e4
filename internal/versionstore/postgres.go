package versionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

// PostgresStore implements Store on a workflow_versions table.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// NewPostgresStore opens a pgx-backed store and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS workflow_versions (
  id TEXT PRIMARY KEY,
  workflow_id TEXT NOT NULL,
  version_number INTEGER NOT NULL,
  parent_version_id TEXT,
  created_by TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  definition JSONB NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT FALSE,
  UNIQUE (workflow_id, version_number)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_workflow_versions_active
  ON workflow_versions (workflow_id) WHERE is_active;
`)
		if err != nil {
			s.schemaErr = fmt.Errorf("ensure schema: %w", err)
		}
	})
	return s.schemaErr
}

const selectVersion = `SELECT id, workflow_id, version_number, parent_version_id,
  created_by, created_at, definition, is_active
FROM workflow_versions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*types.WorkflowVersion, error) {
	var (
		v      types.WorkflowVersion
		parent sql.NullString
		def    []byte
	)
	err := row.Scan(&v.ID, &v.WorkflowID, &v.VersionNumber, &parent,
		&v.CreatedBy, &v.CreatedAt, &def, &v.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	if parent.Valid {
		p := parent.String
		v.ParentVersionID = &p
	}
	if err := json.Unmarshal(def, &v.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return &v, nil
}

// Create saves a new version. Concurrent creates for one workflow are
// serialized with a transaction-scoped advisory lock.
func (s *PostgresStore) Create(ctx context.Context, req *CreateVersionRequest) (*types.WorkflowVersion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	def, err := json.Marshal(req.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, req.WorkflowID); err != nil {
		return nil, fmt.Errorf("lock workflow: %w", err)
	}

	var (
		maxNumber int
		activeID  sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(version_number), 0),
  (SELECT id FROM workflow_versions WHERE workflow_id = $1 AND is_active)
FROM workflow_versions WHERE workflow_id = $1`, req.WorkflowID).Scan(&maxNumber, &activeID)
	if err != nil {
		return nil, fmt.Errorf("read workflow state: %w", err)
	}

	parent := req.ParentVersionID
	if parent == nil && activeID.Valid {
		id := activeID.String
		parent = &id
	}
	if parent != nil {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (
  SELECT 1 FROM workflow_versions WHERE workflow_id = $1 AND id = $2)`,
			req.WorkflowID, *parent).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check parent: %w", err)
		}
		if !exists {
			return nil, ErrParentNotFound
		}
	}

	v := &types.WorkflowVersion{
		ID:              uuid.New().String(),
		WorkflowID:      req.WorkflowID,
		VersionNumber:   maxNumber + 1,
		ParentVersionID: parent,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       time.Now().UTC(),
		Definition:      req.Definition,
		IsActive:        req.Activate || maxNumber == 0,
	}

	if v.IsActive {
		if _, err := tx.ExecContext(ctx, `UPDATE workflow_versions SET is_active = FALSE
WHERE workflow_id = $1 AND is_active`, v.WorkflowID); err != nil {
			return nil, fmt.Errorf("deactivate versions: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO workflow_versions (
  id, workflow_id, version_number, parent_version_id, created_by, created_at, definition, is_active
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		v.ID, v.WorkflowID, v.VersionNumber, v.ParentVersionID, v.CreatedBy, v.CreatedAt, def, v.IsActive)
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return v, nil
}

// Get retrieves a version.
func (s *PostgresStore) Get(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error) {
	row := s.db.QueryRowContext(ctx, selectVersion+` WHERE workflow_id = $1 AND id = $2`, workflowID, versionID)
	return scanVersion(row)
}

// List returns a workflow's versions, newest first.
func (s *PostgresStore) List(ctx context.Context, workflowID string, opts *ListOptions) ([]*types.WorkflowVersion, error) {
	if opts == nil {
		opts = &ListOptions{}
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_versions WHERE workflow_id = $1`,
		workflowID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count versions: %w", err)
	}
	if count == 0 {
		return nil, ErrWorkflowNotFound
	}

	query := selectVersion + ` WHERE workflow_id = $1 ORDER BY version_number DESC OFFSET $2`
	args := []any{workflowID, opts.Offset}
	if opts.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := make([]*types.WorkflowVersion, 0, 32)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// Activate marks a version active inside one transaction.
func (s *PostgresStore) Activate(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	v, err := scanVersion(tx.QueryRowContext(ctx,
		selectVersion+` WHERE workflow_id = $1 AND id = $2 FOR UPDATE`, workflowID, versionID))
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE workflow_versions SET is_active = FALSE
WHERE workflow_id = $1 AND is_active AND id <> $2`, workflowID, versionID); err != nil {
		return nil, fmt.Errorf("deactivate versions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE workflow_versions SET is_active = TRUE WHERE id = $1`,
		versionID); err != nil {
		return nil, fmt.Errorf("activate version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	v.IsActive = true
	return v, nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
