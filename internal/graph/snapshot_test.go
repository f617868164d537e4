package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

func TestSnapshot(t *testing.T) {
	nodes := []types.Node{
		node("a", types.TaskAddPropertyToJSON),
		node("b", types.TaskAddPropertyToJSON),
		node("c", types.TaskAddPropertyToJSON),
	}
	edges := []types.Edge{
		edge("a", "update-json", "c", "json"),
		edge("b", "update-json", "c", "Property name"),
		edge("a", "update-json", "c", "property-value"),
		edge("dangling", "update-json", "c", "json"),
	}
	s := NewSnapshot(nodes, edges)

	n, ok := s.Node("b")
	require.True(t, ok)
	assert.Equal(t, "b", n.ID)
	assert.False(t, s.Has("dangling"))

	assert.Equal(t, []string{"a", "b"}, s.Incomers("c"))
	assert.Equal(t, []string{"c"}, s.Outgoers("a"))
	assert.Empty(t, s.Incomers("a"))
	assert.Len(t, s.Incoming("c"), 4)
	assert.Len(t, s.Outgoing("a"), 2)

	e, ok := s.IncomingAt("c", "property-name")
	require.True(t, ok)
	assert.Equal(t, "b", e.Source)

	// First edge wins when a handle has several providers.
	e, ok = s.IncomingAt("c", "JSON")
	require.True(t, ok)
	assert.Equal(t, "a", e.Source)

	_, ok = s.IncomingAt("a", "json")
	assert.False(t, ok)
}
