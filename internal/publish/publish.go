// Package publish hands compiled execution plans to the execution engine
// through an object store.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

// ErrInvalidBundle is returned when a bundle lacks the fields needed to
// address it.
var ErrInvalidBundle = errors.New("invalid plan bundle")

// Bundle is the publish payload read by the execution engine.
type Bundle struct {
	WorkflowID    string               `json:"workflowId"`
	VersionID     string               `json:"versionId"`
	VersionNumber int                  `json:"versionNumber"`
	Fingerprint   string               `json:"fingerprint"`
	CreditsCost   int                  `json:"creditsCost"`
	Plan          *types.ExecutionPlan `json:"plan"`
	PublishedAt   time.Time            `json:"publishedAt"`
}

// Ref points at a published bundle.
type Ref struct {
	// URI is the full object path (e.g. "s3://bucket/plans/wf/v.json")
	URI string `json:"uri"`

	// Key is the object key within the store
	Key string `json:"key"`

	// Size in bytes
	Size int64 `json:"size"`

	// Checksum (SHA256) of the encoded bundle
	Checksum string `json:"checksum"`

	// URL is an optional presigned download link
	URL string `json:"url,omitempty"`

	PublishedAt time.Time `json:"publishedAt"`
}

// Publisher stores plan bundles.
type Publisher interface {
	Publish(ctx context.Context, b *Bundle) (*Ref, error)
}

// ObjectKey returns the key a bundle is stored under.
func ObjectKey(b *Bundle) string {
	return path.Join("plans", b.WorkflowID, b.VersionID+".json")
}

// encode validates and serializes a bundle, stamping PublishedAt if unset.
func encode(b *Bundle) ([]byte, string, error) {
	if b == nil || b.WorkflowID == "" || b.VersionID == "" {
		return nil, "", fmt.Errorf("%w: workflow and version ids are required", ErrInvalidBundle)
	}
	if b.Plan == nil {
		return nil, "", fmt.Errorf("%w: plan is required", ErrInvalidBundle)
	}
	if b.PublishedAt.IsZero() {
		b.PublishedAt = time.Now().UTC()
	}

	data, err := json.Marshal(b)
	if err != nil {
		return nil, "", fmt.Errorf("marshal bundle: %w", err)
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}
