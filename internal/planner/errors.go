package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flexinfer/scrapeflow/pkg/types"
)

// Sentinel errors for programmatic checking via errors.Is().
var (
	// ErrNoEntryPoint indicates the graph has no node whose task may start a workflow.
	ErrNoEntryPoint = errors.New("no entry point")

	// ErrInvalidInputs indicates one or more nodes have inputs that cannot be satisfied.
	ErrInvalidInputs = errors.New("invalid inputs")
)

// Code is the machine-readable failure kind of a compile.
type Code string

const (
	CodeNoEntryPoint  Code = "NO_ENTRY_POINT"
	CodeInvalidInputs Code = "INVALID_INPUTS"
)

// CompileError is returned by Compile instead of a partial plan.
// Wraps ErrNoEntryPoint or ErrInvalidInputs for errors.Is() compatibility.
type CompileError struct {
	Code   Code               `json:"code"`
	Errors []types.InputError `json:"errors,omitempty"`
}

func (e *CompileError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Errors) == 0 {
		return e.Unwrap().Error()
	}
	parts := make([]string, 0, len(e.Errors))
	for _, ie := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s [%s]", ie.NodeID, strings.Join(ie.MissingInputs, ", ")))
	}
	return fmt.Sprintf("%s: %s", e.Unwrap().Error(), strings.Join(parts, "; "))
}

func (e *CompileError) Unwrap() error {
	if e.Code == CodeNoEntryPoint {
		return ErrNoEntryPoint
	}
	return ErrInvalidInputs
}

// AsCompileError extracts a *CompileError from err.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
