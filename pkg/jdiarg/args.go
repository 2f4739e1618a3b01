// Package jdiarg implements the argument sum type consumed by request
// managers and profiles: request-time filters applied when a native request
// is created, and event-time filters applied when a native event is
// dispatched.
package jdiarg

import (
	"fmt"
	"strings"

	"github.com/jdibridge/bridge/pkg/correlation"
)

// SuspendPolicy selects which threads a matching event suspends.
type SuspendPolicy int

const (
	// SuspendEventThread suspends only the thread that reported the event.
	// This is the default applied by every request manager (§4.2).
	SuspendEventThread SuspendPolicy = iota
	SuspendAll
	SuspendNone
)

// ParseSuspendPolicy parses BRIDGE_DEFAULT_SUSPEND_POLICY's textual values.
func ParseSuspendPolicy(s string) (SuspendPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "event_thread", "":
		return SuspendEventThread, nil
	case "all":
		return SuspendAll, nil
	case "none":
		return SuspendNone, nil
	default:
		return 0, fmt.Errorf("jdiarg: unknown suspend policy %q", s)
	}
}

// RequestArg is a creation-time filter: installed on the native request
// when a request manager calls CreateWithId.
type RequestArg interface {
	isRequestArg()
}

// EventArg is a dispatch-time filter: applied by the event manager to
// in-flight events before a handler callback runs.
type EventArg interface {
	isEventArg()
}

// ClassInclude restricts matching to classes whose declaring-type name
// matches pattern. Patterns may carry a leading or trailing "*".
type ClassInclude struct{ Pattern string }

func (ClassInclude) isRequestArg() {}

// ClassExclude is the negated counterpart of ClassInclude.
type ClassExclude struct{ Pattern string }

func (ClassExclude) isRequestArg() {}

// InstanceFilter restricts matching to events on a specific object instance.
type InstanceFilter struct{ ObjectID string }

func (InstanceFilter) isRequestArg() {}

// CountFilter suspends the request after exactly N matching events, the
// Nth of which is delivered and the rest suppressed.
type CountFilter struct{ N int }

func (CountFilter) isRequestArg() {}

// ThreadFilter restricts matching to events on a specific thread.
type ThreadFilter struct{ ThreadID string }

func (ThreadFilter) isRequestArg() {}

// SuspendPolicyArg overrides the manager's default suspend policy.
type SuspendPolicyArg struct{ Policy SuspendPolicy }

func (SuspendPolicyArg) isRequestArg() {}

// EnabledArg overrides whether the request is enabled at creation time.
type EnabledArg struct{ Enabled bool }

func (EnabledArg) isRequestArg() {}

// UserProperty is an implementation-defined request-time property, passed
// through to the native layer unchanged.
type UserProperty struct {
	Key   string
	Value string
}

func (UserProperty) isRequestArg() {}

// UniqueIDProperty is the single concrete variant that exists in both
// request-arg and event-arg form: written into the request's properties at
// creation time, with Filter producing the twin event-arg that matches
// events carrying that id (§3, §4.6 design notes).
type UniqueIDProperty struct{ ID correlation.UniqueID }

func (UniqueIDProperty) isRequestArg() {}

// Filter returns the event-arg view of this property.
func (p UniqueIDProperty) Filter() UniqueIDFilter {
	return UniqueIDFilter{ID: p.ID}
}

// MethodNameFilter accepts events whose location's method name equals Name.
type MethodNameFilter struct{ Name string }

func (MethodNameFilter) isEventArg() {}

// UniqueIDFilter accepts events whose source request carries the matching
// unique-id property. This is how the event manager correlates an inbound
// native event back to the request that produced it.
type UniqueIDFilter struct{ ID correlation.UniqueID }

func (UniqueIDFilter) isEventArg() {}

// UserEventProperty is a user-defined event-time filter. When Extract is
// true, the matched value is copied into the event's AuxData under Key.
type UserEventProperty struct {
	Key     string
	Extract bool
}

func (UserEventProperty) isEventArg() {}

// ClassPatternFilter restricts event dispatch to (or, if Exclude, away
// from) declaring-type names matching Pattern, which may carry a leading
// or trailing "*" (§4.3). Profiles derive this from a class-scoped
// natural key and append it to the event-args passed to the event
// manager, mirroring the ClassInclude/ClassExclude installed on the
// native request itself.
type ClassPatternFilter struct {
	Pattern string
	Exclude bool
}

func (ClassPatternFilter) isEventArg() {}
