package sdk

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when a tool result contains no content items.
var ErrNoContent = errors.New("auditor: empty tool result")

// ErrIncompatible is returned by Compatible when the server schema has a
// different major version.
var ErrIncompatible = errors.New("auditor: incompatible server schema")

// ToolError is returned when a tool call returns an error result.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("auditor: tool %s: %s", e.Tool, e.Message)
}
