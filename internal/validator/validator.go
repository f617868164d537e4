// Package validator provides JSON schema validation for editor payloads.
package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator validates workflow definitions and candidate edges before they
// are decoded.
type Validator struct {
	definitionSchema *jsonschema.Schema
	edgeSchema       *jsonschema.Schema
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationResult holds the result of a validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// New creates a new validator with embedded schemas.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	// Shared node/edge definitions live in the edge schema.
	if err := compiler.AddResource("edge.json", strings.NewReader(edgeSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add edge schema: %w", err)
	}
	if err := compiler.AddResource("definition.json", strings.NewReader(definitionSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add definition schema: %w", err)
	}

	edgeSchema, err := compiler.Compile("edge.json")
	if err != nil {
		return nil, fmt.Errorf("compile edge schema: %w", err)
	}
	definitionSchema, err := compiler.Compile("definition.json")
	if err != nil {
		return nil, fmt.Errorf("compile definition schema: %w", err)
	}

	return &Validator{
		definitionSchema: definitionSchema,
		edgeSchema:       edgeSchema,
	}, nil
}

// ValidateDefinition validates a decoded workflow definition.
func (v *Validator) ValidateDefinition(def map[string]interface{}) *ValidationResult {
	return v.validate(v.definitionSchema, def)
}

// ValidateDefinitionJSON validates a JSON-encoded workflow definition.
func (v *Validator) ValidateDefinitionJSON(data []byte) *ValidationResult {
	return v.validateJSON(v.definitionSchema, data)
}

// ValidateEdgeJSON validates a JSON-encoded edge.
func (v *Validator) ValidateEdgeJSON(data []byte) *ValidationResult {
	return v.validateJSON(v.edgeSchema, data)
}

func (v *Validator) validateJSON(schema *jsonschema.Schema, data []byte) *ValidationResult {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{Path: "$", Message: fmt.Sprintf("invalid JSON: %v", err)},
			},
		}
	}
	return v.validate(schema, doc)
}

// validate runs schema validation and converts errors.
func (v *Validator) validate(schema *jsonschema.Schema, data interface{}) *ValidationResult {
	err := schema.Validate(data)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	result := &ValidationResult{Valid: false}

	// Convert validation errors
	if verr, ok := err.(*jsonschema.ValidationError); ok {
		result.Errors = extractErrors(verr)
	} else {
		result.Errors = []ValidationError{
			{Path: "$", Message: err.Error()},
		}
	}

	return result
}

// extractErrors flattens the cause tree, keeping only leaf failures.
func extractErrors(verr *jsonschema.ValidationError) []ValidationError {
	if len(verr.Causes) == 0 {
		return []ValidationError{{Path: verr.InstanceLocation, Message: verr.Message}}
	}

	var errs []ValidationError
	for _, cause := range verr.Causes {
		errs = append(errs, extractErrors(cause)...)
	}
	return errs
}

// Embedded JSON schemas

const edgeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "edge.json",
  "title": "Workflow Edge",
  "description": "A data dependency between two node ports",
  "type": "object",
  "required": ["source", "sourceHandle", "target", "targetHandle"],
  "properties": {
    "id": {"type": "string"},
    "source": {"type": "string", "minLength": 1},
    "sourceHandle": {"type": "string", "minLength": 1},
    "target": {"type": "string", "minLength": 1},
    "targetHandle": {"type": "string", "minLength": 1}
  },
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id", "taskType"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "taskType": {"type": "string", "pattern": "^[A-Z][A-Z0-9_]*$"},
        "inputs": {
          "type": "object",
          "additionalProperties": {"type": "string"}
        },
        "position": {
          "type": "object",
          "properties": {
            "x": {"type": "number"},
            "y": {"type": "number"}
          }
        }
      }
    }
  }
}`

const definitionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "definition.json",
  "title": "Workflow Definition",
  "description": "Editor snapshot of a scraping workflow",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {"$ref": "edge.json#/$defs/node"}
    },
    "edges": {
      "type": "array",
      "items": {
        "allOf": [
          {"$ref": "edge.json"},
          {"required": ["id"], "properties": {"id": {"minLength": 1}}}
        ]
      }
    },
    "viewport": {
      "type": "object",
      "properties": {
        "x": {"type": "number"},
        "y": {"type": "number"},
        "zoom": {"type": "number", "exclusiveMinimum": 0}
      }
    }
  }
}`
