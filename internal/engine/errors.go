package engine

import (
	"fmt"
	"strings"
)

// ConflictError is returned when two modules want different payloads for the
// same target
type ConflictError struct {
	Type    string
	Key     string
	Modules []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting %s requests for %s from modules %s",
		e.Type, e.Key, strings.Join(e.Modules, " and "))
}

// UnknownRequestError is returned for a request type no executor handles
type UnknownRequestError struct {
	Type   string
	Module string
}

func (e *UnknownRequestError) Error() string {
	return fmt.Sprintf("unknown request type %q emitted by module %s", e.Type, e.Module)
}

// ModuleError wraps a failure inside a module Init hook
type ModuleError struct {
	Module string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}

// ExecutorError wraps a failed Check or Apply
type ExecutorError struct {
	Request *Request
	Phase   string
	Err     error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Request, e.Err)
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}
