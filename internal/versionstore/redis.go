package versionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

const (
	versionKeyPrefix  = "version:"
	workflowKeyPrefix = "workflow:"
)

// RedisStore implements Store using Redis. Each workflow keeps a sorted set
// of version ids scored by version number, a sequence counter and the id of
// its active version. Activation is not stored in the version record.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed version store.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient creates a store using an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) versionKey(id string) string {
	return versionKeyPrefix + id
}

func (s *RedisStore) versionsKey(workflowID string) string {
	return workflowKeyPrefix + workflowID + ":versions"
}

func (s *RedisStore) seqKey(workflowID string) string {
	return workflowKeyPrefix + workflowID + ":seq"
}

func (s *RedisStore) activeKey(workflowID string) string {
	return workflowKeyPrefix + workflowID + ":active"
}

// Create saves a new version.
func (s *RedisStore) Create(ctx context.Context, req *CreateVersionRequest) (*types.WorkflowVersion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	activeID, err := s.activeID(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	parent := req.ParentVersionID
	if parent == nil && activeID != "" {
		parent = &activeID
	}
	if parent != nil {
		if _, err := s.load(ctx, req.WorkflowID, *parent); err != nil {
			if errors.Is(err, ErrVersionNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}

	number, err := s.client.Incr(ctx, s.seqKey(req.WorkflowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("next version number: %w", err)
	}

	v := &types.WorkflowVersion{
		ID:              uuid.New().String(),
		WorkflowID:      req.WorkflowID,
		VersionNumber:   int(number),
		ParentVersionID: parent,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       time.Now().UTC(),
		Definition:      req.Definition,
		IsActive:        req.Activate || number == 1,
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal version: %w", err)
	}

	// Use transaction to store the version and index it
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.versionKey(v.ID), data, 0)
	pipe.ZAdd(ctx, s.versionsKey(v.WorkflowID), redis.Z{Score: float64(v.VersionNumber), Member: v.ID})
	if v.IsActive {
		pipe.Set(ctx, s.activeKey(v.WorkflowID), v.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("save version: %w", err)
	}

	return v, nil
}

// Get retrieves a version.
func (s *RedisStore) Get(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error) {
	v, err := s.load(ctx, workflowID, versionID)
	if err != nil {
		return nil, err
	}
	activeID, err := s.activeID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	v.IsActive = v.ID == activeID
	return v, nil
}

// List returns a workflow's versions, newest first.
func (s *RedisStore) List(ctx context.Context, workflowID string, opts *ListOptions) ([]*types.WorkflowVersion, error) {
	if opts == nil {
		opts = &ListOptions{}
	}

	total, err := s.client.ZCard(ctx, s.versionsKey(workflowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("count versions: %w", err)
	}
	if total == 0 {
		return nil, ErrWorkflowNotFound
	}

	start := int64(opts.Offset)
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = start + int64(opts.Limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, s.versionsKey(workflowID), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list version ids: %w", err)
	}

	activeID, err := s.activeID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	versions := make([]*types.WorkflowVersion, 0, len(ids))
	for _, id := range ids {
		v, err := s.load(ctx, workflowID, id)
		if errors.Is(err, ErrVersionNotFound) {
			// Stale reference, clean up
			s.client.ZRem(ctx, s.versionsKey(workflowID), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		v.IsActive = v.ID == activeID
		versions = append(versions, v)
	}

	return versions, nil
}

// Activate marks a version active.
func (s *RedisStore) Activate(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error) {
	v, err := s.load(ctx, workflowID, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, s.activeKey(workflowID), v.ID, 0).Err(); err != nil {
		return nil, fmt.Errorf("activate version: %w", err)
	}
	v.IsActive = true
	return v, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) load(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error) {
	data, err := s.client.Get(ctx, s.versionKey(versionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}

	var v types.WorkflowVersion
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal version: %w", err)
	}
	if v.WorkflowID != workflowID {
		return nil, ErrVersionNotFound
	}
	v.IsActive = false
	return &v, nil
}

func (s *RedisStore) activeID(ctx context.Context, workflowID string) (string, error) {
	id, err := s.client.Get(ctx, s.activeKey(workflowID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active version: %w", err)
	}
	return id, nil
}
