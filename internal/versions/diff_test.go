package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

func n(id string, inputs map[string]string) types.Node {
	return types.Node{ID: id, TaskType: types.TaskReadPropertyFromJSON, Inputs: inputs}
}

func e(id, src, dst string) types.Edge {
	return types.Edge{ID: id, Source: src, SourceHandle: "property-value", Target: dst, TargetHandle: "json"}
}

func TestDiff_NodesAndEdges(t *testing.T) {
	inputs := map[string]string{"Property name": "title"}
	nodesA := []types.Node{n("a", inputs), n("b", nil)}
	edgesA := []types.Edge{e("a->b", "a", "b")}
	nodesB := []types.Node{n("a", map[string]string{"Property name": "title"}), n("c", nil)}
	edgesB := []types.Edge{e("a->c", "a", "c")}

	d := Diff(nodesA, edgesA, nodesB, edgesB)

	assert.Equal(t, []string{"b"}, d.HighlightNodesA)
	assert.Equal(t, []string{"c"}, d.HighlightNodesB)
	assert.Equal(t, []string{"a->b"}, d.EdgesOnlyInA)
	assert.Equal(t, []string{"a->c"}, d.EdgesOnlyInB)
	assert.Empty(t, d.ChangedInputs)
	assert.False(t, d.Empty())
}

func TestDiff_ChangedInputs(t *testing.T) {
	nodesA := []types.Node{
		n("same", map[string]string{"JSON": "{}"}),
		n("changed", map[string]string{"JSON": "{}", "Property name": "a", "Only A": "x"}),
		n("blank", map[string]string{"Property name": ""}),
	}
	nodesB := []types.Node{
		n("blank", nil),
		n("changed", map[string]string{"JSON": "{}", "Property name": "b", "Only B": "y"}),
		n("same", map[string]string{"JSON": "{}"}),
	}

	d := Diff(nodesA, nil, nodesB, nil)

	assert.Equal(t, map[string][]string{
		"changed": {"Only A", "Only B", "Property name"},
		"blank":   {"Property name"},
	}, d.ChangedInputs)
	assert.Empty(t, d.HighlightNodesA)
	assert.Empty(t, d.HighlightNodesB)
}

func TestDiff_Symmetric(t *testing.T) {
	nodesA := []types.Node{n("x", nil), n("a", map[string]string{"k": "1"}), n("y", nil)}
	edgesA := []types.Edge{e("e1", "x", "a"), e("e2", "a", "y")}
	nodesB := []types.Node{n("a", map[string]string{"k": "2"}), n("z", nil), n("w", nil)}
	edgesB := []types.Edge{e("e2", "a", "y"), e("e3", "a", "z")}

	ab := Diff(nodesA, edgesA, nodesB, edgesB)
	ba := Diff(nodesB, edgesB, nodesA, edgesA)

	assert.Equal(t, ab.HighlightNodesA, ba.HighlightNodesB)
	assert.Equal(t, ab.HighlightNodesB, ba.HighlightNodesA)
	assert.Equal(t, ab.EdgesOnlyInA, ba.EdgesOnlyInB)
	assert.Equal(t, ab.EdgesOnlyInB, ba.EdgesOnlyInA)
	assert.Equal(t, ab.ChangedInputs, ba.ChangedInputs)

	assert.Equal(t, []string{"x", "y"}, ab.HighlightNodesA)
	assert.Equal(t, []string{"z", "w"}, ab.HighlightNodesB)
}

func TestDiff_Identical(t *testing.T) {
	nodes := []types.Node{n("a", map[string]string{"k": "v"})}
	edges := []types.Edge{e("e1", "a", "a")}

	d := Diff(nodes, edges, nodes, edges)
	assert.True(t, d.Empty())
	assert.NotNil(t, d.HighlightNodesA)
	assert.NotNil(t, d.EdgesOnlyInB)

	assert.True(t, Diff(nil, nil, nil, nil).Empty())
}

func TestDiffVersions(t *testing.T) {
	v1 := types.WorkflowVersion{ID: "v1", Definition: types.Definition{
		Nodes: []types.Node{n("a", nil), n("b", nil)},
		Edges: []types.Edge{e("a->b", "a", "b")},
	}}
	v2 := types.WorkflowVersion{ID: "v2", Definition: types.Definition{
		Nodes: []types.Node{n("a", nil), n("c", nil)},
		Edges: []types.Edge{e("a->c", "a", "c")},
	}}

	d := DiffVersions(v1, v2)
	assert.Equal(t, []string{"b"}, d.HighlightNodesA)
	assert.Equal(t, []string{"c"}, d.HighlightNodesB)
}
