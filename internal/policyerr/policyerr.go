// Package policyerr defines the error kinds the engine surfaces to callers.
package policyerr

import "fmt"

// #region kind

// Kind identifies one of the engine's documented failure categories.
type Kind string

const (
	InvalidPath        Kind = "invalid_path"
	UnknownService     Kind = "unknown_service"
	Capacity           Kind = "capacity"
	SerializationError Kind = "serialization_error"
	AgentDegraded      Kind = "agent_degraded"
)

// #endregion kind

// #region error

// Error carries a Kind plus a human-readable reason. InvalidPath and
// SerializationError are definitive failures with no side effects;
// Capacity reports a snapshot the publish gate rejected, with the
// previously published snapshot left in place (adaptive-table eviction
// never produces an error); AgentDegraded never reaches the caller as
// an error — the agent falls back to OBSERVE and this type is only used
// for the internal log line.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, policyerr.ErrInvalidPath) style checks by
// comparing Kind against a sentinel *Error carrying only that Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// #endregion error

// #region sentinels

// Sentinel values for errors.Is comparisons, e.g. errors.Is(err, policyerr.ErrInvalidPath).
var (
	ErrInvalidPath        = &Error{Kind: InvalidPath}
	ErrUnknownService     = &Error{Kind: UnknownService}
	ErrCapacity           = &Error{Kind: Capacity}
	ErrSerializationError = &Error{Kind: SerializationError}
	ErrAgentDegraded      = &Error{Kind: AgentDegraded}
)

// #endregion sentinels
