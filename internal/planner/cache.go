package planner

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

// DefaultCacheSize is used when NewCachedCompiler is given a non-positive size.
const DefaultCacheSize = 256

// Outcome is the result of a cached compile.
type Outcome struct {
	Plan        *types.ExecutionPlan
	Fingerprint string
	Cached      bool
}

type cacheEntry struct {
	plan *types.ExecutionPlan
	err  error
}

// CachedCompiler memoizes compile results by graph fingerprint.
// It is safe for concurrent use. Cached plans are shared between callers
// and must be treated as read-only.
type CachedCompiler struct {
	compiler *Compiler
	cache    *lru.Cache[string, cacheEntry]
}

// NewCachedCompiler wraps c with an LRU of the given size.
func NewCachedCompiler(c *Compiler, size int) (*CachedCompiler, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create plan cache: %w", err)
	}
	return &CachedCompiler{compiler: c, cache: cache}, nil
}

// Compile returns the plan for nodes and edges, compiling only on a cache
// miss. Failed compiles are cached too since they are just as deterministic.
func (c *CachedCompiler) Compile(nodes []types.Node, edges []types.Edge) (*Outcome, error) {
	fp := Fingerprint(nodes, edges)
	if entry, ok := c.cache.Get(fp); ok {
		return &Outcome{Plan: entry.plan, Fingerprint: fp, Cached: true}, entry.err
	}

	plan, err := c.compiler.Compile(nodes, edges)
	c.cache.Add(fp, cacheEntry{plan: plan, err: err})
	return &Outcome{Plan: plan, Fingerprint: fp}, err
}

// Len returns the number of cached results.
func (c *CachedCompiler) Len() int {
	return c.cache.Len()
}

// Purge drops every cached result.
func (c *CachedCompiler) Purge() {
	c.cache.Purge()
}
