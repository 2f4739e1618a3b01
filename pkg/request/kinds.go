package request

import (
	"context"

	"github.com/jdibridge/bridge/pkg/audit"
	"github.com/jdibridge/bridge/pkg/jdiarg"
	"github.com/jdibridge/bridge/pkg/nativeconn"
)

// classScopedDefaults builds the kind-specific default-args callback that
// installs a class-inclusion filter derived from the natural key, per
// §4.2's "class-inclusion filter for class-scoped events".
func classScopedDefaults[K comparable](className func(K) string) DefaultsFunc[K] {
	return func(key K) []jdiarg.RequestArg {
		return []jdiarg.RequestArg{jdiarg.ClassInclude{Pattern: className(key)}}
	}
}

// NewBreakpointManager creates the per-kind manager for breakpoint requests.
func NewBreakpointManager(conn nativeconn.Conn, sink audit.Sink) *Manager[BreakpointKey] {
	create := func(ctx context.Context, key BreakpointKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateBreakpointRequest(ctx, key.FileName, key.LineNumber, args...)
	}
	return New(string(nativeconn.KindBreakpoint), conn, create, nil, BreakpointKey.String, sink)
}

// NewMethodEntryManager creates the per-kind manager for method-entry requests.
func NewMethodEntryManager(conn nativeconn.Conn, sink audit.Sink) *Manager[MethodKey] {
	create := func(ctx context.Context, key MethodKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateMethodEntryRequest(ctx, key.ClassName, key.MethodName, args...)
	}
	defaults := classScopedDefaults(func(k MethodKey) string { return k.ClassName })
	return New(string(nativeconn.KindMethodEntry), conn, create, defaults, MethodKey.String, sink)
}

// NewMethodExitManager creates the per-kind manager for method-exit requests.
func NewMethodExitManager(conn nativeconn.Conn, sink audit.Sink) *Manager[MethodKey] {
	create := func(ctx context.Context, key MethodKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateMethodExitRequest(ctx, key.ClassName, key.MethodName, args...)
	}
	defaults := classScopedDefaults(func(k MethodKey) string { return k.ClassName })
	return New(string(nativeconn.KindMethodExit), conn, create, defaults, MethodKey.String, sink)
}

// NewExceptionManager creates the per-kind manager for exception requests.
func NewExceptionManager(conn nativeconn.Conn, sink audit.Sink) *Manager[ExceptionKey] {
	create := func(ctx context.Context, key ExceptionKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateExceptionRequest(ctx, key.ExceptionClassName, key.NotifyCaught, key.NotifyUncaught, args...)
	}
	defaults := classScopedDefaults(func(k ExceptionKey) string { return k.ExceptionClassName })
	return New(string(nativeconn.KindException), conn, create, defaults, ExceptionKey.String, sink)
}

// NewAccessWatchpointManager creates the per-kind manager for field-access watchpoints.
func NewAccessWatchpointManager(conn nativeconn.Conn, sink audit.Sink) *Manager[WatchpointKey] {
	create := func(ctx context.Context, key WatchpointKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateAccessWatchpointRequest(ctx, key.ClassName, key.FieldName, args...)
	}
	defaults := classScopedDefaults(func(k WatchpointKey) string { return k.ClassName })
	return New(string(nativeconn.KindAccessWatchpoint), conn, create, defaults, WatchpointKey.String, sink)
}

// NewModificationWatchpointManager creates the per-kind manager for field-modification watchpoints.
func NewModificationWatchpointManager(conn nativeconn.Conn, sink audit.Sink) *Manager[WatchpointKey] {
	create := func(ctx context.Context, key WatchpointKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateModificationWatchpointRequest(ctx, key.ClassName, key.FieldName, args...)
	}
	defaults := classScopedDefaults(func(k WatchpointKey) string { return k.ClassName })
	return New(string(nativeconn.KindModificationWatchpoint), conn, create, defaults, WatchpointKey.String, sink)
}

// NewStepManager creates the per-kind manager for (single-shot) step requests.
func NewStepManager(conn nativeconn.Conn, sink audit.Sink) *Manager[StepKey] {
	create := func(ctx context.Context, key StepKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateStepRequest(ctx, key.ThreadID, key.Size, key.Depth, args...)
	}
	return New(string(nativeconn.KindStep), conn, create, nil, StepKey.String, sink)
}

// newUnitManager builds a manager for a kind whose natural key is at most
// one canonical request per distinct argument set.
func newUnitManager(kind nativeconn.EventKind, create CreateFunc[UnitKey], conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return New(string(kind), conn, create, nil, UnitKey.String, sink)
}

func NewMonitorWaitManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindMonitorWait, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateMonitorWaitRequest(ctx, args...)
	}, conn, sink)
}

func NewMonitorWaitedManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindMonitorWaited, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateMonitorWaitedRequest(ctx, args...)
	}, conn, sink)
}

func NewMonitorContendedEnterManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindMonitorContendedEnter, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateMonitorContendedEnterRequest(ctx, args...)
	}, conn, sink)
}

func NewMonitorContendedEnteredManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindMonitorContendedEntered, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateMonitorContendedEnteredRequest(ctx, args...)
	}, conn, sink)
}

func NewClassPrepareManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindClassPrepare, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateClassPrepareRequest(ctx, args...)
	}, conn, sink)
}

func NewClassUnloadManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindClassUnload, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateClassUnloadRequest(ctx, args...)
	}, conn, sink)
}

func NewThreadStartManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindThreadStart, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateThreadStartRequest(ctx, args...)
	}, conn, sink)
}

func NewThreadDeathManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindThreadDeath, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateThreadDeathRequest(ctx, args...)
	}, conn, sink)
}

func NewVMStartManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindVMStart, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateVMStartRequest(ctx, args...)
	}, conn, sink)
}

func NewVMDeathManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindVMDeath, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateVMDeathRequest(ctx, args...)
	}, conn, sink)
}

func NewVMDisconnectManager(conn nativeconn.Conn, sink audit.Sink) *Manager[UnitKey] {
	return newUnitManager(nativeconn.KindVMDisconnect, func(ctx context.Context, _ UnitKey, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
		return conn.CreateVMDisconnectRequest(ctx, args...)
	}, conn, sink)
}
