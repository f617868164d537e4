package publish

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPublisher keeps published bundles in memory.
// Suitable for testing and local development.
type MemoryPublisher struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryPublisher creates an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{objects: make(map[string][]byte)}
}

// Publish stores the encoded bundle, replacing any previous publish of the
// same version.
func (p *MemoryPublisher) Publish(ctx context.Context, b *Bundle) (*Ref, error) {
	data, checksum, err := encode(b)
	if err != nil {
		return nil, err
	}

	key := ObjectKey(b)
	p.mu.Lock()
	p.objects[key] = data
	p.mu.Unlock()

	return &Ref{
		URI:         fmt.Sprintf("mem://%s", key),
		Key:         key,
		Size:        int64(len(data)),
		Checksum:    checksum,
		PublishedAt: b.PublishedAt,
	}, nil
}

// Object returns a copy of the bytes stored under key.
func (p *MemoryPublisher) Object(key string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, ok := p.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}
