package profile

import (
	"fmt"

	"github.com/jdibridge/bridge/pkg/event"
	"github.com/jdibridge/bridge/pkg/jdiarg"
	"github.com/jdibridge/bridge/pkg/nativeconn"
	"github.com/jdibridge/bridge/pkg/request"
)

// classScopedCounterKey keys the pipeline counter on (natural-key,
// event-args), per the Open Question decision that class/method-scoped
// kinds distinguish subscriber counts by which method/class they target.
func classScopedCounterKey[K comparable](keyStr func(K) string) func(K, []jdiarg.EventArg) string {
	return func(key K, evtArgs []jdiarg.EventArg) string {
		return keyStr(key) + "|" + fmt.Sprintf("%#v", evtArgs)
	}
}

// unitCounterKey keys the pipeline counter on event-args alone: unit-key
// kinds have at most one canonical request, so their subscriber count is
// distinguished only by secondary event-time filters.
func unitCounterKey[K comparable](_ K, evtArgs []jdiarg.EventArg) string {
	return fmt.Sprintf("%#v", evtArgs)
}

// NewBreakpointProfile builds the breakpoint profile.
func NewBreakpointProfile(mgr *request.Manager[request.BreakpointKey], evtMgr *event.Manager) *Profile[request.BreakpointKey] {
	return New(nativeconn.KindBreakpoint, mgr, evtMgr, request.BreakpointKey.String, nil, classScopedCounterKey(request.BreakpointKey.String))
}

func classNameOfMethodKey(k request.MethodKey) string { return k.ClassName }

// NewMethodEntryProfile builds the method-entry profile.
func NewMethodEntryProfile(mgr *request.Manager[request.MethodKey], evtMgr *event.Manager) *Profile[request.MethodKey] {
	return New(nativeconn.KindMethodEntry, mgr, evtMgr, request.MethodKey.String, classNameOfMethodKey, classScopedCounterKey(request.MethodKey.String))
}

// NewMethodExitProfile builds the method-exit profile.
func NewMethodExitProfile(mgr *request.Manager[request.MethodKey], evtMgr *event.Manager) *Profile[request.MethodKey] {
	return New(nativeconn.KindMethodExit, mgr, evtMgr, request.MethodKey.String, classNameOfMethodKey, classScopedCounterKey(request.MethodKey.String))
}

func classNameOfExceptionKey(k request.ExceptionKey) string { return k.ExceptionClassName }

// NewExceptionProfile builds the exception profile.
func NewExceptionProfile(mgr *request.Manager[request.ExceptionKey], evtMgr *event.Manager) *Profile[request.ExceptionKey] {
	return New(nativeconn.KindException, mgr, evtMgr, request.ExceptionKey.String, classNameOfExceptionKey, classScopedCounterKey(request.ExceptionKey.String))
}

func classNameOfWatchpointKey(k request.WatchpointKey) string { return k.ClassName }

// NewAccessWatchpointProfile builds the field-access-watchpoint profile.
func NewAccessWatchpointProfile(mgr *request.Manager[request.WatchpointKey], evtMgr *event.Manager) *Profile[request.WatchpointKey] {
	return New(nativeconn.KindAccessWatchpoint, mgr, evtMgr, request.WatchpointKey.String, classNameOfWatchpointKey, classScopedCounterKey(request.WatchpointKey.String))
}

// NewModificationWatchpointProfile builds the field-modification-watchpoint profile.
func NewModificationWatchpointProfile(mgr *request.Manager[request.WatchpointKey], evtMgr *event.Manager) *Profile[request.WatchpointKey] {
	return New(nativeconn.KindModificationWatchpoint, mgr, evtMgr, request.WatchpointKey.String, classNameOfWatchpointKey, classScopedCounterKey(request.WatchpointKey.String))
}

// NewStepProfile builds the (single-shot) step profile. Single-shot
// removal is installed by the caller chaining a one-event take onto the
// returned pipeline's head and closing it (§4.2 "Step requests deviate").
func NewStepProfile(mgr *request.Manager[request.StepKey], evtMgr *event.Manager) *Profile[request.StepKey] {
	return New(nativeconn.KindStep, mgr, evtMgr, request.StepKey.String, nil, classScopedCounterKey(request.StepKey.String))
}

func newUnitProfile(kind nativeconn.EventKind, mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return New(kind, mgr, evtMgr, request.UnitKey.String, nil, unitCounterKey[request.UnitKey])
}

func NewMonitorWaitProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindMonitorWait, mgr, evtMgr)
}

func NewMonitorWaitedProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindMonitorWaited, mgr, evtMgr)
}

func NewMonitorContendedEnterProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindMonitorContendedEnter, mgr, evtMgr)
}

func NewMonitorContendedEnteredProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindMonitorContendedEntered, mgr, evtMgr)
}

func NewClassPrepareProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindClassPrepare, mgr, evtMgr)
}

func NewClassUnloadProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindClassUnload, mgr, evtMgr)
}

func NewThreadStartProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindThreadStart, mgr, evtMgr)
}

func NewThreadDeathProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindThreadDeath, mgr, evtMgr)
}

func NewVMStartProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindVMStart, mgr, evtMgr)
}

func NewVMDeathProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindVMDeath, mgr, evtMgr)
}

func NewVMDisconnectProfile(mgr *request.Manager[request.UnitKey], evtMgr *event.Manager) *Profile[request.UnitKey] {
	return newUnitProfile(nativeconn.KindVMDisconnect, mgr, evtMgr)
}
