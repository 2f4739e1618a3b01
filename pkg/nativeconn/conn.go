// Package nativeconn declares the contract the request/event pipeline
// subsystem consumes from the low-level JDI-style debugger connection. The
// connection itself — wire protocol, process attach/launch, the actual
// debuggee transport — is an external collaborator and out of scope (§1);
// this package only names the primitives the core depends on (§6).
package nativeconn

import (
	"context"

	"github.com/jdibridge/bridge/pkg/jdiarg"
)

// Handle is an opaque native request handle returned by a Create call.
type Handle any

// EventKind enumerates the fixed debuggee event categories.
type EventKind string

const (
	KindBreakpoint                EventKind = "breakpoint"
	KindMethodEntry               EventKind = "method_entry"
	KindMethodExit                EventKind = "method_exit"
	KindMonitorWait               EventKind = "monitor_wait"
	KindMonitorWaited             EventKind = "monitor_waited"
	KindMonitorContendedEnter     EventKind = "monitor_contended_enter"
	KindMonitorContendedEntered   EventKind = "monitor_contended_entered"
	KindClassPrepare              EventKind = "class_prepare"
	KindClassUnload               EventKind = "class_unload"
	KindThreadStart               EventKind = "thread_start"
	KindThreadDeath               EventKind = "thread_death"
	KindException                 EventKind = "exception"
	KindAccessWatchpoint          EventKind = "access_watchpoint"
	KindModificationWatchpoint    EventKind = "modification_watchpoint"
	KindStep                      EventKind = "step"
	KindVMStart                   EventKind = "vm_start"
	KindVMDeath                   EventKind = "vm_death"
	KindVMDisconnect              EventKind = "vm_disconnect"
)

// IsTerminal reports whether kind signals the debuggee is gone for good
// (§5 "Terminal debuggee events"): every open pipeline must be torn down
// and every request manager must refuse further creates once one of these
// is actually observed through the dispatch path.
func IsTerminal(kind EventKind) bool {
	return kind == KindVMDeath || kind == KindVMDisconnect
}

// StepSize and StepDepth mirror JDI's step request granularity.
type StepSize int

const (
	StepSizeLine StepSize = iota
	StepSizeMin
)

type StepDepth int

const (
	StepDepthInto StepDepth = iota
	StepDepthOver
	StepDepthOut
)

// Location identifies where an event occurred.
type Location struct {
	ClassName  string
	MethodName string
	FileName   string
	LineNumber int
}

// Event is a single native event delivered by the debuggee.
type Event struct {
	Kind              EventKind
	RequestProperties map[string]string
	Location          *Location
	Thread            string
	Payload           map[string]any
}

// Conn is the low-level debugger connection surface the core depends on.
// A production adapter implements it against the real debuggee transport;
// nativeconntest.Fake implements it in-memory for tests.
type Conn interface {
	CreateBreakpointRequest(ctx context.Context, fileName string, line int, args ...jdiarg.RequestArg) (Handle, error)
	CreateMethodEntryRequest(ctx context.Context, className, methodName string, args ...jdiarg.RequestArg) (Handle, error)
	CreateMethodExitRequest(ctx context.Context, className, methodName string, args ...jdiarg.RequestArg) (Handle, error)
	CreateMonitorWaitRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateMonitorWaitedRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateMonitorContendedEnterRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateMonitorContendedEnteredRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateClassPrepareRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateClassUnloadRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateThreadStartRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateThreadDeathRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateExceptionRequest(ctx context.Context, exceptionClassName string, notifyCaught, notifyUncaught bool, args ...jdiarg.RequestArg) (Handle, error)
	CreateAccessWatchpointRequest(ctx context.Context, className, fieldName string, args ...jdiarg.RequestArg) (Handle, error)
	CreateModificationWatchpointRequest(ctx context.Context, className, fieldName string, args ...jdiarg.RequestArg) (Handle, error)
	CreateStepRequest(ctx context.Context, threadID string, size StepSize, depth StepDepth, args ...jdiarg.RequestArg) (Handle, error)
	CreateVMStartRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateVMDeathRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)
	CreateVMDisconnectRequest(ctx context.Context, args ...jdiarg.RequestArg) (Handle, error)

	Enable(ctx context.Context, h Handle) error
	Delete(ctx context.Context, h Handle) error

	// PollEvents blocks until at least one event is available, ctx is
	// cancelled, or the debuggee connection is gone, mirroring JDI's
	// EventQueue.remove(). It is the sole blocking call in the event
	// manager's dispatcher loop (§5).
	PollEvents(ctx context.Context) ([]Event, error)

	MainThread(ctx context.Context) (string, error)
	Classes(ctx context.Context) ([]string, error)

	// ListRequests returns every currently-enabled native request of kind,
	// mirroring JDI's EventRequestManager listing methods
	// (breakpointRequests(), methodEntryRequests(), ...). Used solely by
	// the engine's reconciliation sweep to compare native truth against
	// the in-memory indices; never consulted on the create/remove path.
	ListRequests(ctx context.Context, kind EventKind) ([]Handle, error)
}
