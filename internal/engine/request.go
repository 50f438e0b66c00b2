// Package engine resolves scaffold modules into one ordered list of requests
// and converges the project tree onto them.
package engine

import (
	"fmt"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// Request is one desired state of one target, emitted by a module
type Request struct {
	Type    string
	Module  string
	State   modules.State
	Payload modules.Payload
	// Seq is the emission order across the run
	Seq int

	key   string
	order int
}

// Key returns the target identity assigned by the executor during resolution
func (r *Request) Key() string {
	return r.key
}

// Present reports whether the request wants its target to exist
func (r *Request) Present() bool {
	return r.State == modules.StatePresent
}

func (r *Request) String() string {
	if r.key != "" {
		return fmt.Sprintf("%s %s[%s] from %s", r.State, r.Type, r.key, r.Module)
	}
	return fmt.Sprintf("%s %s from %s", r.State, r.Type, r.Module)
}
