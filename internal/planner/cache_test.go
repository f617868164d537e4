package planner

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexinfer/scrapeflow/internal/catalog"
	"github.com/flexinfer/scrapeflow/pkg/types"
)

func TestFingerprint(t *testing.T) {
	nodes, edges := scrapeGraph()
	base := Fingerprint(nodes, edges)
	assert.Len(t, base, 64)
	assert.Equal(t, base, Fingerprint(nodes, edges))

	t.Run("literal change", func(t *testing.T) {
		changed := append([]types.Node(nil), nodes...)
		changed[1] = node("nav", types.TaskNavigateURL, map[string]string{"URL": "https://example.com/other"})
		assert.NotEqual(t, base, Fingerprint(changed, edges))
	})

	t.Run("edge removed", func(t *testing.T) {
		assert.NotEqual(t, base, Fingerprint(nodes, edges[:len(edges)-1]))
	})

	t.Run("node order", func(t *testing.T) {
		swapped := append([]types.Node(nil), nodes...)
		swapped[0], swapped[1] = swapped[1], swapped[0]
		assert.NotEqual(t, base, Fingerprint(swapped, edges))
	})

	t.Run("field boundaries", func(t *testing.T) {
		a := []types.Node{{ID: "ab", TaskType: "c"}}
		b := []types.Node{{ID: "a", TaskType: "bc"}}
		assert.NotEqual(t, Fingerprint(a, nil), Fingerprint(b, nil))
	})

	t.Run("map order irrelevant", func(t *testing.T) {
		in1 := map[string]string{}
		in2 := map[string]string{}
		for _, k := range []string{"a", "b", "c", "d", "e", "f"} {
			in1[k] = k
		}
		for _, k := range []string{"f", "e", "d", "c", "b", "a"} {
			in2[k] = k
		}
		assert.Equal(t,
			Fingerprint([]types.Node{{ID: "n", Inputs: in1}}, nil),
			Fingerprint([]types.Node{{ID: "n", Inputs: in2}}, nil))
	})
}

func TestCachedCompiler(t *testing.T) {
	cc, err := NewCachedCompiler(NewCompiler(catalog.Default()), 2)
	require.NoError(t, err)

	nodes, edges := scrapeGraph()

	first, err := cc.Compile(nodes, edges)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, Fingerprint(nodes, edges), first.Fingerprint)

	second, err := cc.Compile(nodes, edges)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Same(t, first.Plan, second.Plan)
	assert.Equal(t, 1, cc.Len())

	cc.Purge()
	assert.Equal(t, 0, cc.Len())
}

func TestCachedCompiler_CachesFailures(t *testing.T) {
	cc, err := NewCachedCompiler(NewCompiler(catalog.Default()), 0)
	require.NoError(t, err)

	nodes := []types.Node{node("html", types.TaskPageToHTML, nil)}

	out, err := cc.Compile(nodes, nil)
	assert.True(t, errors.Is(err, ErrNoEntryPoint))
	assert.False(t, out.Cached)
	assert.Nil(t, out.Plan)

	out, err = cc.Compile(nodes, nil)
	assert.True(t, errors.Is(err, ErrNoEntryPoint))
	assert.True(t, out.Cached)
}

func TestCachedCompiler_Evicts(t *testing.T) {
	cc, err := NewCachedCompiler(NewCompiler(catalog.Default()), 1)
	require.NoError(t, err)

	a := []types.Node{launch("a")}
	b := []types.Node{launch("b")}

	_, err = cc.Compile(a, nil)
	require.NoError(t, err)
	_, err = cc.Compile(b, nil)
	require.NoError(t, err)

	out, err := cc.Compile(a, nil)
	require.NoError(t, err)
	assert.False(t, out.Cached)
}

func TestCachedCompiler_Concurrent(t *testing.T) {
	cc, err := NewCachedCompiler(NewCompiler(catalog.Default()), 8)
	require.NoError(t, err)
	nodes, edges := scrapeGraph()

	want, err := NewCompiler(catalog.Default()).Compile(nodes, edges)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := cc.Compile(nodes, edges)
			assert.NoError(t, err)
			assert.Equal(t, want, out.Plan)
		}()
	}
	wg.Wait()
}
