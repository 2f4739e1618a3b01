// Package engine wires the request managers, event manager, dispatcher
// and profile facades into one process-level object (§4.9), modeled on
// the teacher's queue.WorkerPool start/stop/health lifecycle and its
// orphan-detection ticker. It also installs the event manager's terminal
// hook (§5 "Terminal debuggee events"), so an observed VMDeath/VMDisconnect
// closes every open pipeline and marks every manager terminal without
// waiting for an operator-initiated Stop.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jdibridge/bridge/pkg/audit"
	"github.com/jdibridge/bridge/pkg/event"
	"github.com/jdibridge/bridge/pkg/jdiarg"
	"github.com/jdibridge/bridge/pkg/nativeconn"
	"github.com/jdibridge/bridge/pkg/profile"
	"github.com/jdibridge/bridge/pkg/request"
)

// terminalMarker is implemented by every *request.Manager[K] instantiation.
type terminalMarker interface {
	MarkTerminal()
}

// Health summarizes process liveness for the introspection API (§4.11).
type Health struct {
	DispatcherRunning bool
	ManagerKinds      []string
}

// Managers bundles one request.Manager per event kind.
type Managers struct {
	Breakpoint               *request.Manager[request.BreakpointKey]
	MethodEntry              *request.Manager[request.MethodKey]
	MethodExit               *request.Manager[request.MethodKey]
	Exception                *request.Manager[request.ExceptionKey]
	AccessWatchpoint         *request.Manager[request.WatchpointKey]
	ModificationWatchpoint   *request.Manager[request.WatchpointKey]
	Step                     *request.Manager[request.StepKey]
	MonitorWait              *request.Manager[request.UnitKey]
	MonitorWaited            *request.Manager[request.UnitKey]
	MonitorContendedEnter    *request.Manager[request.UnitKey]
	MonitorContendedEntered  *request.Manager[request.UnitKey]
	ClassPrepare             *request.Manager[request.UnitKey]
	ClassUnload              *request.Manager[request.UnitKey]
	ThreadStart              *request.Manager[request.UnitKey]
	ThreadDeath              *request.Manager[request.UnitKey]
	VMStart                  *request.Manager[request.UnitKey]
	VMDeath                  *request.Manager[request.UnitKey]
	VMDisconnect             *request.Manager[request.UnitKey]
}

// NewManagers constructs one request manager per event kind over conn,
// all sharing sink (audit.Noop{} disables persistence).
func NewManagers(conn nativeconn.Conn, sink audit.Sink) *Managers {
	return &Managers{
		Breakpoint:              request.NewBreakpointManager(conn, sink),
		MethodEntry:             request.NewMethodEntryManager(conn, sink),
		MethodExit:              request.NewMethodExitManager(conn, sink),
		Exception:               request.NewExceptionManager(conn, sink),
		AccessWatchpoint:        request.NewAccessWatchpointManager(conn, sink),
		ModificationWatchpoint:  request.NewModificationWatchpointManager(conn, sink),
		Step:                    request.NewStepManager(conn, sink),
		MonitorWait:             request.NewMonitorWaitManager(conn, sink),
		MonitorWaited:           request.NewMonitorWaitedManager(conn, sink),
		MonitorContendedEnter:   request.NewMonitorContendedEnterManager(conn, sink),
		MonitorContendedEntered: request.NewMonitorContendedEnteredManager(conn, sink),
		ClassPrepare:            request.NewClassPrepareManager(conn, sink),
		ClassUnload:             request.NewClassUnloadManager(conn, sink),
		ThreadStart:             request.NewThreadStartManager(conn, sink),
		ThreadDeath:             request.NewThreadDeathManager(conn, sink),
		VMStart:                 request.NewVMStartManager(conn, sink),
		VMDeath:                 request.NewVMDeathManager(conn, sink),
		VMDisconnect:            request.NewVMDisconnectManager(conn, sink),
	}
}

// SetDefaultSuspendPolicy applies policy to every manager (BRIDGE_DEFAULT_SUSPEND_POLICY).
// Must be called before Engine.Start.
func (m *Managers) SetDefaultSuspendPolicy(policy jdiarg.SuspendPolicy) {
	m.Breakpoint.SetDefaultSuspendPolicy(policy)
	m.MethodEntry.SetDefaultSuspendPolicy(policy)
	m.MethodExit.SetDefaultSuspendPolicy(policy)
	m.Exception.SetDefaultSuspendPolicy(policy)
	m.AccessWatchpoint.SetDefaultSuspendPolicy(policy)
	m.ModificationWatchpoint.SetDefaultSuspendPolicy(policy)
	m.Step.SetDefaultSuspendPolicy(policy)
	m.MonitorWait.SetDefaultSuspendPolicy(policy)
	m.MonitorWaited.SetDefaultSuspendPolicy(policy)
	m.MonitorContendedEnter.SetDefaultSuspendPolicy(policy)
	m.MonitorContendedEntered.SetDefaultSuspendPolicy(policy)
	m.ClassPrepare.SetDefaultSuspendPolicy(policy)
	m.ClassUnload.SetDefaultSuspendPolicy(policy)
	m.ThreadStart.SetDefaultSuspendPolicy(policy)
	m.ThreadDeath.SetDefaultSuspendPolicy(policy)
	m.VMStart.SetDefaultSuspendPolicy(policy)
	m.VMDeath.SetDefaultSuspendPolicy(policy)
	m.VMDisconnect.SetDefaultSuspendPolicy(policy)
}

func (m *Managers) terminalMarkers() []terminalMarker {
	return []terminalMarker{
		m.Breakpoint, m.MethodEntry, m.MethodExit, m.Exception,
		m.AccessWatchpoint, m.ModificationWatchpoint, m.Step,
		m.MonitorWait, m.MonitorWaited, m.MonitorContendedEnter, m.MonitorContendedEntered,
		m.ClassPrepare, m.ClassUnload, m.ThreadStart, m.ThreadDeath,
		m.VMStart, m.VMDeath, m.VMDisconnect,
	}
}

// Profiles bundles one profile facade per event kind, built over Managers.
type Profiles struct {
	Breakpoint               *profile.Profile[request.BreakpointKey]
	MethodEntry              *profile.Profile[request.MethodKey]
	MethodExit               *profile.Profile[request.MethodKey]
	Exception                *profile.Profile[request.ExceptionKey]
	AccessWatchpoint         *profile.Profile[request.WatchpointKey]
	ModificationWatchpoint   *profile.Profile[request.WatchpointKey]
	Step                     *profile.Profile[request.StepKey]
	MonitorWait              *profile.Profile[request.UnitKey]
	MonitorWaited            *profile.Profile[request.UnitKey]
	MonitorContendedEnter    *profile.Profile[request.UnitKey]
	MonitorContendedEntered  *profile.Profile[request.UnitKey]
	ClassPrepare             *profile.Profile[request.UnitKey]
	ClassUnload              *profile.Profile[request.UnitKey]
	ThreadStart              *profile.Profile[request.UnitKey]
	ThreadDeath              *profile.Profile[request.UnitKey]
	VMStart                  *profile.Profile[request.UnitKey]
	VMDeath                  *profile.Profile[request.UnitKey]
	VMDisconnect             *profile.Profile[request.UnitKey]
}

// NewProfiles constructs one profile facade per event kind over managers
// and evtMgr.
func NewProfiles(m *Managers, evtMgr *event.Manager) *Profiles {
	return &Profiles{
		Breakpoint:              profile.NewBreakpointProfile(m.Breakpoint, evtMgr),
		MethodEntry:             profile.NewMethodEntryProfile(m.MethodEntry, evtMgr),
		MethodExit:              profile.NewMethodExitProfile(m.MethodExit, evtMgr),
		Exception:               profile.NewExceptionProfile(m.Exception, evtMgr),
		AccessWatchpoint:        profile.NewAccessWatchpointProfile(m.AccessWatchpoint, evtMgr),
		ModificationWatchpoint:  profile.NewModificationWatchpointProfile(m.ModificationWatchpoint, evtMgr),
		Step:                    profile.NewStepProfile(m.Step, evtMgr),
		MonitorWait:             profile.NewMonitorWaitProfile(m.MonitorWait, evtMgr),
		MonitorWaited:           profile.NewMonitorWaitedProfile(m.MonitorWaited, evtMgr),
		MonitorContendedEnter:   profile.NewMonitorContendedEnterProfile(m.MonitorContendedEnter, evtMgr),
		MonitorContendedEntered: profile.NewMonitorContendedEnteredProfile(m.MonitorContendedEntered, evtMgr),
		ClassPrepare:            profile.NewClassPrepareProfile(m.ClassPrepare, evtMgr),
		ClassUnload:             profile.NewClassUnloadProfile(m.ClassUnload, evtMgr),
		ThreadStart:             profile.NewThreadStartProfile(m.ThreadStart, evtMgr),
		ThreadDeath:             profile.NewThreadDeathProfile(m.ThreadDeath, evtMgr),
		VMStart:                 profile.NewVMStartProfile(m.VMStart, evtMgr),
		VMDeath:                 profile.NewVMDeathProfile(m.VMDeath, evtMgr),
		VMDisconnect:            profile.NewVMDisconnectProfile(m.VMDisconnect, evtMgr),
	}
}

// Engine owns the whole request/event pipeline subsystem for one debuggee
// connection: the request managers, the event manager and its dispatcher,
// the profile facades, and a periodic reconciliation sweep.
type Engine struct {
	conn       nativeconn.Conn
	Managers   *Managers
	Profiles   *Profiles
	EventMgr   *event.Manager
	dispatcher *event.Dispatcher

	reconcileInterval time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an Engine over conn. reconcileInterval of zero disables the
// reconciliation sweep. dispatchBufferSize sizes the channel between the
// dispatcher's poll and dispatch loops (BRIDGE_DISPATCH_BUFFER_SIZE).
func New(conn nativeconn.Conn, sink audit.Sink, reconcileInterval time.Duration, dispatchBufferSize int) *Engine {
	mgrs := NewManagers(conn, sink)
	evtMgr := event.NewManager()

	evtMgr.SetTerminalHook(func(kind nativeconn.EventKind) {
		slog.Warn("terminal debuggee event observed, tearing down pipelines", "kind", kind)
		for _, m := range mgrs.terminalMarkers() {
			m.MarkTerminal()
		}
	})

	return &Engine{
		conn:              conn,
		Managers:          mgrs,
		Profiles:          NewProfiles(mgrs, evtMgr),
		EventMgr:          evtMgr,
		dispatcher:        event.NewDispatcher(conn, evtMgr, dispatchBufferSize),
		reconcileInterval: reconcileInterval,
	}
}

// Start begins the dispatcher goroutine and, if configured, the
// reconciliation sweep. Safe to call once; a second call is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		slog.Warn("engine already started, ignoring duplicate Start call")
		return
	}
	e.started = true

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.dispatcher.Start(runCtx)

	if e.reconcileInterval > 0 {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.runReconciliation(runCtx)
		}()
	}

	slog.Info("engine started", "reconcile_interval", e.reconcileInterval)
}

// Stop cancels the run context, marks every manager terminal (rejecting
// further creates), and waits for the dispatcher and reconciliation
// goroutines to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	cancel := e.cancel
	e.mu.Unlock()

	for _, m := range e.Managers.terminalMarkers() {
		m.MarkTerminal()
	}

	if cancel != nil {
		cancel()
	}
	e.dispatcher.Stop()
	e.wg.Wait()
	slog.Info("engine stopped")
}

// Health reports whether the dispatcher is running and the kinds of
// managers wired in (§4.11 GET /health).
func (e *Engine) Health() Health {
	e.mu.Lock()
	defer e.mu.Unlock()
	kinds := make([]string, 0, 18)
	for _, m := range e.Managers.terminalMarkers() {
		if k, ok := m.(interface{ Kind() string }); ok {
			kinds = append(kinds, k.Kind())
		}
	}
	return Health{DispatcherRunning: e.started, ManagerKinds: kinds}
}

// Entries returns every live request's (id, key) pair for kind, for the
// GET /requests/:kind introspection endpoint. The bool is false for an
// unrecognized kind.
func (e *Engine) Entries(kind string) ([]request.Entry, bool) {
	switch nativeconn.EventKind(kind) {
	case nativeconn.KindBreakpoint:
		return e.Managers.Breakpoint.Entries(), true
	case nativeconn.KindMethodEntry:
		return e.Managers.MethodEntry.Entries(), true
	case nativeconn.KindMethodExit:
		return e.Managers.MethodExit.Entries(), true
	case nativeconn.KindException:
		return e.Managers.Exception.Entries(), true
	case nativeconn.KindAccessWatchpoint:
		return e.Managers.AccessWatchpoint.Entries(), true
	case nativeconn.KindModificationWatchpoint:
		return e.Managers.ModificationWatchpoint.Entries(), true
	case nativeconn.KindStep:
		return e.Managers.Step.Entries(), true
	case nativeconn.KindMonitorWait:
		return e.Managers.MonitorWait.Entries(), true
	case nativeconn.KindMonitorWaited:
		return e.Managers.MonitorWaited.Entries(), true
	case nativeconn.KindMonitorContendedEnter:
		return e.Managers.MonitorContendedEnter.Entries(), true
	case nativeconn.KindMonitorContendedEntered:
		return e.Managers.MonitorContendedEntered.Entries(), true
	case nativeconn.KindClassPrepare:
		return e.Managers.ClassPrepare.Entries(), true
	case nativeconn.KindClassUnload:
		return e.Managers.ClassUnload.Entries(), true
	case nativeconn.KindThreadStart:
		return e.Managers.ThreadStart.Entries(), true
	case nativeconn.KindThreadDeath:
		return e.Managers.ThreadDeath.Entries(), true
	case nativeconn.KindVMStart:
		return e.Managers.VMStart.Entries(), true
	case nativeconn.KindVMDeath:
		return e.Managers.VMDeath.Entries(), true
	case nativeconn.KindVMDisconnect:
		return e.Managers.VMDisconnect.Entries(), true
	default:
		return nil, false
	}
}

// Counters returns the subscriber-count snapshot for kind's profile, for
// the GET /pipelines/:kind introspection endpoint. The bool is false for
// an unrecognized kind.
func (e *Engine) Counters(kind string) (map[string]int, bool) {
	switch nativeconn.EventKind(kind) {
	case nativeconn.KindBreakpoint:
		return e.Profiles.Breakpoint.Counters(), true
	case nativeconn.KindMethodEntry:
		return e.Profiles.MethodEntry.Counters(), true
	case nativeconn.KindMethodExit:
		return e.Profiles.MethodExit.Counters(), true
	case nativeconn.KindException:
		return e.Profiles.Exception.Counters(), true
	case nativeconn.KindAccessWatchpoint:
		return e.Profiles.AccessWatchpoint.Counters(), true
	case nativeconn.KindModificationWatchpoint:
		return e.Profiles.ModificationWatchpoint.Counters(), true
	case nativeconn.KindStep:
		return e.Profiles.Step.Counters(), true
	case nativeconn.KindMonitorWait:
		return e.Profiles.MonitorWait.Counters(), true
	case nativeconn.KindMonitorWaited:
		return e.Profiles.MonitorWaited.Counters(), true
	case nativeconn.KindMonitorContendedEnter:
		return e.Profiles.MonitorContendedEnter.Counters(), true
	case nativeconn.KindMonitorContendedEntered:
		return e.Profiles.MonitorContendedEntered.Counters(), true
	case nativeconn.KindClassPrepare:
		return e.Profiles.ClassPrepare.Counters(), true
	case nativeconn.KindClassUnload:
		return e.Profiles.ClassUnload.Counters(), true
	case nativeconn.KindThreadStart:
		return e.Profiles.ThreadStart.Counters(), true
	case nativeconn.KindThreadDeath:
		return e.Profiles.ThreadDeath.Counters(), true
	case nativeconn.KindVMStart:
		return e.Profiles.VMStart.Counters(), true
	case nativeconn.KindVMDeath:
		return e.Profiles.VMDeath.Counters(), true
	case nativeconn.KindVMDisconnect:
		return e.Profiles.VMDisconnect.Counters(), true
	default:
		return nil, false
	}
}

func (e *Engine) runReconciliation(ctx context.Context) {
	ticker := time.NewTicker(e.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.reconcileOnce(ctx)
		}
	}
}

// reconcileOnce compares each manager's in-memory listing against a fresh
// native listing, logging (never fixing) divergence. Read-only by
// construction — it only calls list/listById-equivalent accessors.
func (e *Engine) reconcileOnce(ctx context.Context) {
	reconcileOne(ctx, e.conn, nativeconn.KindBreakpoint, len(e.Managers.Breakpoint.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindMethodEntry, len(e.Managers.MethodEntry.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindMethodExit, len(e.Managers.MethodExit.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindException, len(e.Managers.Exception.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindAccessWatchpoint, len(e.Managers.AccessWatchpoint.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindModificationWatchpoint, len(e.Managers.ModificationWatchpoint.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindStep, len(e.Managers.Step.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindMonitorWait, len(e.Managers.MonitorWait.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindMonitorWaited, len(e.Managers.MonitorWaited.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindMonitorContendedEnter, len(e.Managers.MonitorContendedEnter.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindMonitorContendedEntered, len(e.Managers.MonitorContendedEntered.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindClassPrepare, len(e.Managers.ClassPrepare.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindClassUnload, len(e.Managers.ClassUnload.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindThreadStart, len(e.Managers.ThreadStart.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindThreadDeath, len(e.Managers.ThreadDeath.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindVMStart, len(e.Managers.VMStart.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindVMDeath, len(e.Managers.VMDeath.ListByID()))
	reconcileOne(ctx, e.conn, nativeconn.KindVMDisconnect, len(e.Managers.VMDisconnect.ListByID()))
}

func reconcileOne(ctx context.Context, conn nativeconn.Conn, kind nativeconn.EventKind, inMemoryCount int) {
	native, err := conn.ListRequests(ctx, kind)
	if err != nil {
		slog.Error("reconciliation: native listing failed", "kind", kind, "error", err)
		return
	}
	if len(native) != inMemoryCount {
		slog.Error("reconciliation: divergence between memory and native truth",
			"kind", kind, "memory_count", inMemoryCount, "native_count", len(native))
	}
}
