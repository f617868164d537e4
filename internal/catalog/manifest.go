package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

//go:embed catalog.hcl
var builtinManifest []byte

// manifestFile is the top-level structure of a catalog manifest.
type manifestFile struct {
	Tasks []*taskBlock `hcl:"task,block"`
}

// taskBlock is a `task "<TYPE>" { ... }` block.
type taskBlock struct {
	Type       string       `hcl:"type,label"`
	Label      string       `hcl:"label"`
	Icon       string       `hcl:"icon,optional"`
	EntryPoint bool         `hcl:"entry_point,optional"`
	Credits    int          `hcl:"credits,optional"`
	Inputs     []*portBlock `hcl:"input,block"`
	Outputs    []*portBlock `hcl:"output,block"`
}

// portBlock is an `input "<name>"` or `output "<name>"` block.
type portBlock struct {
	Name       string   `hcl:"name,label"`
	Type       string   `hcl:"type"`
	Required   bool     `hcl:"required,optional"`
	HideHandle bool     `hcl:"hide_handle,optional"`
	HelperText string   `hcl:"helper_text,optional"`
	Variant    string   `hcl:"variant,optional"`
	Options    []string `hcl:"options,optional"`
}

// evalContext exposes the param types as `param.<lowercase name>`.
func evalContext() *hcl.EvalContext {
	params := make(map[string]cty.Value, len(types.ParamTypes))
	for _, t := range types.ParamTypes {
		params[strings.ToLower(string(t))] = cty.StringVal(string(t))
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"param": cty.ObjectVal(params),
		},
	}
}

// Load decodes an HCL manifest into a catalog.
func Load(src []byte, filename string) (*Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse catalog manifest %s: %s", filename, diags.Error())
	}

	var manifest manifestFile
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &manifest); diags.HasErrors() {
		return nil, fmt.Errorf("decode catalog manifest %s: %s", filename, diags.Error())
	}

	defs := make([]TaskDefinition, 0, len(manifest.Tasks))
	for _, tb := range manifest.Tasks {
		defs = append(defs, TaskDefinition{
			Type:         types.TaskType(tb.Type),
			Label:        tb.Label,
			Icon:         tb.Icon,
			IsEntryPoint: tb.EntryPoint,
			Credits:      tb.Credits,
			Inputs:       toParams(tb.Inputs),
			Outputs:      toParams(tb.Outputs),
		})
	}

	return New(defs...)
}

// LoadFile decodes a manifest from disk.
func LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog manifest: %w", err)
	}
	return Load(src, path)
}

// Default returns the built-in catalog. It panics if the embedded manifest
// is invalid.
func Default() *Catalog {
	c, err := Load(builtinManifest, "catalog.hcl")
	if err != nil {
		panic(err)
	}
	return c
}

func toParams(blocks []*portBlock) []Param {
	params := make([]Param, 0, len(blocks))
	for _, b := range blocks {
		params = append(params, Param{
			Name:       b.Name,
			Type:       types.TaskParamType(b.Type),
			Required:   b.Required,
			HideHandle: b.HideHandle,
			HelperText: b.HelperText,
			Variant:    b.Variant,
			Options:    b.Options,
		})
	}
	return params
}
