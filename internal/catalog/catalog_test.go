package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

func TestDefault(t *testing.T) {
	c := Default()

	defs := c.List()
	require.Len(t, defs, 13)
	assert.Equal(t, types.TaskLaunchBrowser, defs[0].Type)

	assert.Equal(t, []types.TaskType{types.TaskLaunchBrowser}, c.EntryPoints())
	assert.True(t, c.IsEntryPoint(types.TaskLaunchBrowser))
	assert.False(t, c.IsEntryPoint(types.TaskPageToHTML))
	assert.False(t, c.IsEntryPoint("NOT_A_TASK"))

	for _, tt := range []types.TaskType{
		types.TaskLaunchBrowser, types.TaskPageToHTML, types.TaskExtractTextFromElement,
		types.TaskFillInput, types.TaskClickElement, types.TaskWaitForElement,
		types.TaskNavigateURL, types.TaskScrollToElement, types.TaskDeliverViaWebhook,
		types.TaskExtractDataWithAI, types.TaskReadPropertyFromJSON,
		types.TaskAddPropertyToJSON, types.TaskBranch,
	} {
		_, ok := c.Lookup(tt)
		assert.True(t, ok, "missing %s", tt)
	}
}

func TestTaskDefinition_PortLookup(t *testing.T) {
	c := Default()

	def, ok := c.Lookup(types.TaskLaunchBrowser)
	require.True(t, ok)

	in, ok := def.Input("website-url")
	require.True(t, ok)
	assert.Equal(t, "Website Url", in.Name)
	assert.True(t, in.Required)
	assert.True(t, in.HideHandle)
	assert.Equal(t, types.ParamString, in.Type)

	// Raw display names resolve too.
	out, ok := def.Output("Web page")
	require.True(t, ok)
	assert.Equal(t, types.ParamBrowserInstance, out.Type)

	_, ok = def.Input("web-page")
	assert.False(t, ok)

	wait, ok := c.Lookup(types.TaskWaitForElement)
	require.True(t, ok)
	vis, ok := wait.Input("visibility")
	require.True(t, ok)
	assert.Equal(t, types.ParamSelect, vis.Type)
	assert.Equal(t, []string{"visible", "hidden"}, vis.Options)

	deliver, ok := c.Lookup(types.TaskDeliverViaWebhook)
	require.True(t, ok)
	trigger, ok := deliver.Input("trigger")
	require.True(t, ok)
	assert.False(t, trigger.Required)
	assert.Equal(t, types.ParamConditional, trigger.Type)
	assert.Empty(t, deliver.Outputs)
}

func TestCatalog_Cost(t *testing.T) {
	c := Default()
	nodes := []types.Node{
		{ID: "1", TaskType: types.TaskLaunchBrowser},
		{ID: "2", TaskType: types.TaskPageToHTML},
		{ID: "3", TaskType: types.TaskExtractDataWithAI},
		{ID: "4", TaskType: "UNKNOWN"},
	}
	assert.Equal(t, 11, c.Cost(nodes))
	assert.Equal(t, 0, c.Cost(nil))
}

func TestNew_Validation(t *testing.T) {
	str := types.ParamString

	tests := []struct {
		name string
		defs []TaskDefinition
	}{
		{
			name: "empty type",
			defs: []TaskDefinition{{Label: "x"}},
		},
		{
			name: "duplicate type",
			defs: []TaskDefinition{{Type: "A"}, {Type: "A"}},
		},
		{
			name: "unknown param type",
			defs: []TaskDefinition{{Type: "A", Inputs: []Param{{Name: "In", Type: "NUMBER"}}}},
		},
		{
			name: "duplicate handle",
			defs: []TaskDefinition{{Type: "A", Outputs: []Param{
				{Name: "Web page", Type: str},
				{Name: "web-page", Type: str},
			}}},
		},
		{
			name: "empty handle",
			defs: []TaskDefinition{{Type: "A", Inputs: []Param{{Name: "!!", Type: str}}}},
		},
		{
			name: "entry point with visible input",
			defs: []TaskDefinition{{Type: "A", IsEntryPoint: true, Inputs: []Param{{Name: "Url", Type: str}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.defs...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidManifest))
		})
	}
}

func TestLoad(t *testing.T) {
	src := []byte(`
task "START" {
  label       = "Start"
  entry_point = true

  input "Seed" {
    type        = param.string
    hide_handle = true
  }

  output "Out" {
    type = param.string
  }
}

task "SINK" {
  label = "Sink"

  input "In" {
    type     = param.string
    required = true
  }
}
`)

	c, err := Load(src, "test.hcl")
	require.NoError(t, err)

	defs := c.List()
	require.Len(t, defs, 2)
	assert.Equal(t, types.TaskType("START"), defs[0].Type)
	assert.True(t, defs[0].IsEntryPoint)
	assert.Equal(t, 0, defs[1].Credits)

	in, ok := defs[1].Input("in")
	require.True(t, ok)
	assert.True(t, in.Required)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("syntax", func(t *testing.T) {
		_, err := Load([]byte(`task "A" {`), "bad.hcl")
		assert.Error(t, err)
	})

	t.Run("unknown param variable", func(t *testing.T) {
		_, err := Load([]byte(`
task "A" {
  label = "A"
  input "In" {
    type = param.number
  }
}
`), "bad.hcl")
		assert.Error(t, err)
	})

	t.Run("invalid manifest", func(t *testing.T) {
		_, err := Load([]byte(`
task "A" {
  label       = "A"
  entry_point = true
  input "Url" {
    type = param.string
  }
}
`), "bad.hcl")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidManifest))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile("/nonexistent/catalog.hcl")
		assert.Error(t, err)
	})
}
