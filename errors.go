package mcptools

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateToolName is returned by Register when the name is taken.
	ErrDuplicateToolName = errors.New("duplicate tool name")
	// ErrInvalidTool is returned by Register for a malformed descriptor.
	ErrInvalidTool = errors.New("invalid tool")

	ErrUnknownTool          = errors.New("unknown tool")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrHandlerFailure       = errors.New("tool handler failed")
)

// ValidationReason says which rule an argument bag broke.
type ValidationReason int

const (
	MissingRequiredField ValidationReason = iota + 1
	TypeMismatch
)

// ValidationError reports the first schema rule an argument bag broke.
type ValidationError struct {
	Reason   ValidationReason
	Field    string
	Expected string // declared type, TypeMismatch only
	Actual   string // JSON type received, TypeMismatch only
}

func (e *ValidationError) Error() string {
	if e.Reason == MissingRequiredField {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrMissingRequiredField:
		return e.Reason == MissingRequiredField
	case ErrTypeMismatch:
		return e.Reason == TypeMismatch
	}
	return false
}

// ErrorCode classifies an InvocationError.
type ErrorCode int

const (
	UnknownTool ErrorCode = iota + 1
	InvalidArguments
	HandlerFailure
)

func (c ErrorCode) String() string {
	switch c {
	case UnknownTool:
		return "UnknownTool"
	case InvalidArguments:
		return "InvalidArguments"
	case HandlerFailure:
		return "HandlerFailure"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// InvocationError is the failure side of Dispatch. Err is the *ValidationError
// for InvalidArguments and the handler's own error for HandlerFailure.
type InvocationError struct {
	Code ErrorCode
	Tool string
	Err  error
}

func (e *InvocationError) Error() string {
	switch e.Code {
	case UnknownTool:
		return fmt.Sprintf("unknown tool: %s", e.Tool)
	case InvalidArguments:
		return fmt.Sprintf("invalid arguments for tool %s: %v", e.Tool, e.Err)
	default:
		return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
	}
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool {
	switch target {
	case ErrUnknownTool:
		return e.Code == UnknownTool
	case ErrHandlerFailure:
		return e.Code == HandlerFailure
	}
	return false
}
