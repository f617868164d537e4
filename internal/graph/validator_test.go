package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexinfer/scrapeflow/internal/catalog"
	"github.com/flexinfer/scrapeflow/pkg/types"
)

func node(id string, tt types.TaskType) types.Node {
	return types.Node{ID: id, TaskType: tt, Inputs: map[string]string{}}
}

func edge(src, srcHandle, dst, dstHandle string) types.Edge {
	return types.Edge{
		ID:           fmt.Sprintf("%s.%s->%s.%s", src, srcHandle, dst, dstHandle),
		Source:       src,
		SourceHandle: srcHandle,
		Target:       dst,
		TargetHandle: dstHandle,
	}
}

// jsonChain returns x -> y -> z wired through the JSON input.
func jsonChain() ([]types.Node, []types.Edge) {
	nodes := []types.Node{
		node("x", types.TaskReadPropertyFromJSON),
		node("y", types.TaskReadPropertyFromJSON),
		node("z", types.TaskReadPropertyFromJSON),
	}
	edges := []types.Edge{
		edge("x", "property-value", "y", "json"),
		edge("y", "property-value", "z", "json"),
	}
	return nodes, edges
}

func TestValidator_Explain(t *testing.T) {
	v := NewValidator(catalog.Default())

	browserNodes := []types.Node{
		node("launch", types.TaskLaunchBrowser),
		node("html", types.TaskPageToHTML),
		node("click", types.TaskClickElement),
		node("text", types.TaskExtractTextFromElement),
		node("branch", types.TaskBranch),
		node("deliver", types.TaskDeliverViaWebhook),
		node("ghost", "NOT_A_TASK"),
	}
	browserEdges := []types.Edge{
		edge("launch", "web-page", "html", "web-page"),
	}

	tests := []struct {
		name      string
		candidate types.Edge
		want      Rejection
	}{
		{"allowed", edge("html", "html", "text", "html"), ""},
		{"raw handle names", edge("html", "Web page", "click", "Web page"), ""},
		{"self loop", edge("html", "web-page", "html", "web-page"), RejectSelfLoop},
		{"missing source", edge("nope", "web-page", "click", "web-page"), RejectMissingNode},
		{"missing target", edge("html", "web-page", "nope", "web-page"), RejectMissingNode},
		{"unknown task", edge("ghost", "out", "click", "web-page"), RejectUnknownTask},
		{"unknown output", edge("html", "pdf", "click", "web-page"), RejectUnknownPort},
		{"unknown input", edge("html", "web-page", "click", "frame"), RejectUnknownPort},
		{"hidden input", edge("text", "extracted-text", "launch", "website-url"), RejectHiddenHandle},
		{"type mismatch", edge("html", "html", "click", "web-page"), RejectTypeMismatch},
		{"conditional to string", edge("branch", "matched", "deliver", "body"), RejectTypeMismatch},
		{"conditional to conditional", edge("branch", "matched", "deliver", "trigger"), ""},
		{"input taken", edge("click", "web-page", "html", "web-page"), RejectInputTaken},
		{"input taken raw handle", edge("click", "web-page", "html", "Web Page"), RejectInputTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Explain(tt.candidate, browserNodes, browserEdges)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == "", v.CanConnect(tt.candidate, browserNodes, browserEdges))
		})
	}
}

func TestValidator_RejectsBackEdgeToAncestor(t *testing.T) {
	v := NewValidator(catalog.Default())
	nodes, edges := jsonChain()

	// z's output back into an ancestor.
	assert.False(t, v.CanConnect(edge("z", "property-value", "x", "property-name"), nodes, edges))
	assert.Equal(t, RejectCycle, v.Explain(edge("z", "property-value", "y", "property-name"), nodes, edges))

	// Forward edges skipping a level are fine.
	assert.True(t, v.CanConnect(edge("x", "property-value", "z", "property-name"), nodes, edges))
}

func TestValidator_DiamondTerminates(t *testing.T) {
	v := NewValidator(catalog.Default())

	nodes := []types.Node{
		node("a", types.TaskAddPropertyToJSON),
		node("b", types.TaskAddPropertyToJSON),
		node("c", types.TaskAddPropertyToJSON),
		node("d", types.TaskAddPropertyToJSON),
		node("e", types.TaskAddPropertyToJSON),
	}
	edges := []types.Edge{
		edge("a", "update-json", "b", "json"),
		edge("a", "update-json", "c", "json"),
		edge("b", "update-json", "d", "json"),
		edge("c", "update-json", "d", "property-name"),
		edge("d", "update-json", "e", "json"),
	}

	assert.Equal(t, RejectCycle, v.Explain(edge("e", "update-json", "a", "json"), nodes, edges))
	assert.Equal(t, RejectCycle, v.Explain(edge("d", "update-json", "b", "property-name"), nodes, edges))
	assert.True(t, v.CanConnect(edge("b", "update-json", "c", "property-name"), nodes, edges))
}

// Greedily adds every edge the validator approves and checks the result
// stays acyclic with one provider per input.
func TestValidator_NeverApprovesCycleOrSecondProvider(t *testing.T) {
	v := NewValidator(catalog.Default())

	var nodes []types.Node
	for i := 0; i < 5; i++ {
		nodes = append(nodes, node(fmt.Sprintf("n%d", i), types.TaskAddPropertyToJSON))
	}
	inputs := []string{"json", "property-name", "property-value"}

	var edges []types.Edge
	for round := 0; round < 2; round++ {
		for _, src := range nodes {
			for _, dst := range nodes {
				for _, in := range inputs {
					cand := edge(src.ID, "update-json", dst.ID, in)
					if v.CanConnect(cand, nodes, edges) {
						edges = append(edges, cand)
					}
				}
			}
		}
	}
	require.NotEmpty(t, edges)

	providers := make(map[string]int)
	for _, e := range edges {
		assert.False(t, Reachable(edges, e.Target, e.Source), "cycle through %s", e.ID)
		providers[e.Target+"/"+e.TargetHandle]++
	}
	for key, n := range providers {
		assert.Equal(t, 1, n, "input %s has %d providers", key, n)
	}

	// Every input handle already wired is refused again.
	for _, e := range edges {
		other := edge("n4", "update-json", e.Target, e.TargetHandle)
		if other.Source == other.Target {
			continue
		}
		assert.False(t, v.CanConnect(other, nodes, edges))
	}
}

func TestReaches_RequiresVisitedSet(t *testing.T) {
	// An existing cycle not containing the target must still terminate.
	adj := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"b"},
	}
	assert.False(t, reaches(adj, "a", "z", make(map[string]bool)))
	assert.True(t, reaches(adj, "a", "c", make(map[string]bool)))
}
