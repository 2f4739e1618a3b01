// Package audit defines the optional, best-effort sink that observes
// request lifecycle transitions for post-mortem analysis (SPEC_FULL §4.10).
// The in-memory subsystem never depends on a sink being present or
// succeeding — see Record's contract.
package audit

import (
	"context"
	"time"
)

// Transition names a request lifecycle event.
type Transition string

const (
	TransitionCreated Transition = "created"
	TransitionRemoved Transition = "removed"
)

// Record describes a single request lifecycle transition.
type Record struct {
	RequestKind string
	RequestID   string
	NaturalKey  string
	Transition  Transition
	OccurredAt  time.Time
}

// Sink persists audit records. Implementations must be safe for concurrent
// use and should treat failures as non-fatal to their caller — callers
// invoke Record on the request-manager hot path and only log its error.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// Noop discards every record. It is the default sink when persistence is
// disabled (AUDIT_ENABLED=false).
type Noop struct{}

func (Noop) Record(context.Context, Record) error { return nil }

var _ Sink = Noop{}
