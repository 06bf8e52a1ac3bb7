package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the orchestration layer. Backend and timeout errors are
// recoverable at the loop (they degrade to an apology reply); identity
// conflicts are fatal for the request.
var (
	ErrDuplicateTool      = errors.New("tool already registered")
	ErrUnknownTool        = errors.New("unknown tool")
	ErrIdentityConflict   = errors.New("session already bound to a different customer")
	ErrToolTimeout        = errors.New("tool invocation timed out")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrCapabilityTimeout  = errors.New("language capability timed out")
)

// ArgumentError reports a tool-argument schema violation (missing required
// field, wrong type). It is a configuration/model defect, logged at error
// severity and never surfaced verbatim to the user.
type ArgumentError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tool %s: argument %q: %s", e.Tool, e.Field, e.Reason)
}

// Policy violation kinds.
const (
	ViolationQueryShape      = "query-shape"
	ViolationResponseSurface = "response-surface"
)

// PolicyViolation reports a rejected structured query or response surface.
// The query is never silently rewritten; rejection happens before any
// backend call.
type PolicyViolation struct {
	Kind   string // ViolationQueryShape or ViolationResponseSurface
	Entity string // structured entity, when Kind is query-shape
	Detail string
}

func (e *PolicyViolation) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("policy violation (%s) on %s: %s", e.Kind, e.Entity, e.Detail)
	}
	return fmt.Sprintf("policy violation (%s): %s", e.Kind, e.Detail)
}
