package tools

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateTool     = errors.New("duplicate tool")
	ErrInvalidSpec       = errors.New("invalid tool spec")
	ErrUnknownTool       = errors.New("unknown tool")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrToolExecution     = errors.New("tool execution failed")
)

// Error is returned by Registry operations. Kind is one of the sentinel
// errors above, so callers classify with errors.Is.
type Error struct {
	Kind error
	Tool string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Tool)
	}
	return fmt.Sprintf("%s: %v: %v", e.Tool, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, tool string, err error) *Error {
	return &Error{Kind: kind, Tool: tool, Err: err}
}

// ValidationError describes the first parameter that failed schema checks.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}
