// internal/imageaudit/errors.go
package imageaudit

import (
	"errors"
	"fmt"
)

// FailureKind classifies a protocol call failure so callers can separate the
// expected-absence and recoverable cases from fatal channel errors without
// inspecting message text.
type FailureKind int

const (
	// KindProtocol is any unexpected protocol-channel failure. It aborts the
	// whole gathering pass.
	KindProtocol FailureKind = iota
	// KindNodeNotFound means the referenced DOM node no longer exists. An
	// expected outcome, never fatal.
	KindNodeNotFound
	// KindTimeout means a call-scoped deadline expired before the browser
	// answered. Recoverable for decode probes.
	KindTimeout
)

func (k FailureKind) String() string {
	switch k {
	case KindNodeNotFound:
		return "node_not_found"
	case KindTimeout:
		return "timeout"
	default:
		return "protocol"
	}
}

// ErrNodeNotFound is the sentinel drivers wrap when a stored node path no
// longer resolves to a live node.
var ErrNodeNotFound = errors.New("node not found")

// ErrProbeTimeout is the sentinel for a decode probe that exceeded its
// round-trip deadline.
var ErrProbeTimeout = errors.New("probe timed out")

// CallError carries a classified protocol failure together with the method
// that produced it.
type CallError struct {
	Method string
	Kind   FailureKind
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Method, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinels through the classified kind, so
// drivers only need to set Kind correctly.
func (e *CallError) Is(target error) bool {
	switch target {
	case ErrNodeNotFound:
		return e.Kind == KindNodeNotFound
	case ErrProbeTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// NewCallError classifies a failure from the named protocol method.
func NewCallError(method string, kind FailureKind, err error) *CallError {
	return &CallError{Method: method, Kind: kind, Err: err}
}
