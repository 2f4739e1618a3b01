// Package nativeconntest provides an in-memory fake of nativeconn.Conn for
// unit tests, mirroring the teacher project's narrow collaborator-fake style
// (see pkg/queue's SessionExecutor test doubles).
package nativeconntest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jdibridge/bridge/pkg/jdiarg"
	"github.com/jdibridge/bridge/pkg/nativeconn"
)

// ErrFakeCreateFailed is returned by Create* calls when the fake is
// configured to fail the next N creations (scenario F — creation failure
// rollback).
var ErrFakeCreateFailed = errors.New("fake: native creation refused")

type fakeHandle struct {
	id   int
	kind nativeconn.EventKind
	args []jdiarg.RequestArg
}

// Fake is a scriptable, in-memory nativeconn.Conn.
type Fake struct {
	mu sync.Mutex

	nextHandle int
	deleted    map[int]bool
	live       map[int]*fakeHandle
	createLog  []nativeconn.EventKind // ordered log of successful Create* calls

	failNextCreates int // number of subsequent Create* calls to fail

	pending []nativeconn.Event
	closed  bool
	cond    *sync.Cond

	mainThread string
	classes    []string
}

// New returns an empty Fake.
func New() *Fake {
	f := &Fake{deleted: make(map[int]bool), live: make(map[int]*fakeHandle)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// FailNextCreates configures the fake to refuse the next n Create* calls.
func (f *Fake) FailNextCreates(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNextCreates = n
}

// CreateLog returns the ordered kinds of every successful creation so far.
func (f *Fake) CreateLog() []nativeconn.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]nativeconn.EventKind, len(f.createLog))
	copy(out, f.createLog)
	return out
}

// DeleteCount reports how many handles have been deleted.
func (f *Fake) DeleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.deleted {
		if d {
			n++
		}
	}
	return n
}

func (f *Fake) create(kind nativeconn.EventKind, args []jdiarg.RequestArg) (nativeconn.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNextCreates > 0 {
		f.failNextCreates--
		return nil, fmt.Errorf("%s: %w", kind, ErrFakeCreateFailed)
	}

	f.nextHandle++
	h := &fakeHandle{id: f.nextHandle, kind: kind, args: append([]jdiarg.RequestArg(nil), args...)}
	f.live[h.id] = h
	f.createLog = append(f.createLog, kind)
	return h, nil
}

func (f *Fake) CreateBreakpointRequest(_ context.Context, _ string, _ int, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindBreakpoint, args)
}

func (f *Fake) CreateMethodEntryRequest(_ context.Context, _, _ string, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindMethodEntry, args)
}

func (f *Fake) CreateMethodExitRequest(_ context.Context, _, _ string, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindMethodExit, args)
}

func (f *Fake) CreateMonitorWaitRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindMonitorWait, args)
}

func (f *Fake) CreateMonitorWaitedRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindMonitorWaited, args)
}

func (f *Fake) CreateMonitorContendedEnterRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindMonitorContendedEnter, args)
}

func (f *Fake) CreateMonitorContendedEnteredRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindMonitorContendedEntered, args)
}

func (f *Fake) CreateClassPrepareRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindClassPrepare, args)
}

func (f *Fake) CreateClassUnloadRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindClassUnload, args)
}

func (f *Fake) CreateThreadStartRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindThreadStart, args)
}

func (f *Fake) CreateThreadDeathRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindThreadDeath, args)
}

func (f *Fake) CreateExceptionRequest(_ context.Context, _ string, _, _ bool, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindException, args)
}

func (f *Fake) CreateAccessWatchpointRequest(_ context.Context, _, _ string, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindAccessWatchpoint, args)
}

func (f *Fake) CreateModificationWatchpointRequest(_ context.Context, _, _ string, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindModificationWatchpoint, args)
}

func (f *Fake) CreateStepRequest(_ context.Context, _ string, _ nativeconn.StepSize, _ nativeconn.StepDepth, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindStep, args)
}

func (f *Fake) CreateVMStartRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindVMStart, args)
}

func (f *Fake) CreateVMDeathRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindVMDeath, args)
}

func (f *Fake) CreateVMDisconnectRequest(_ context.Context, args ...jdiarg.RequestArg) (nativeconn.Handle, error) {
	return f.create(nativeconn.KindVMDisconnect, args)
}

// ListRequests returns every non-deleted handle created for kind.
func (f *Fake) ListRequests(_ context.Context, kind nativeconn.EventKind) ([]nativeconn.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []nativeconn.Handle
	for id, h := range f.live {
		if h.kind == kind && !f.deleted[id] {
			out = append(out, h)
		}
	}
	return out, nil
}

// Enable is a no-op in the fake; creation already implies enablement.
func (f *Fake) Enable(_ context.Context, _ nativeconn.Handle) error {
	return nil
}

// Delete marks the handle deleted. Idempotent.
func (f *Fake) Delete(_ context.Context, h nativeconn.Handle) error {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return fmt.Errorf("nativeconntest: not a fake handle: %v", h)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted[fh.id] = true
	return nil
}

// Push enqueues an event for the next PollEvents call to return, in FIFO
// order, and wakes any blocked poller.
func (f *Fake) Push(ev nativeconn.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, ev)
	f.cond.Broadcast()
}

// Close marks the fake connection terminal, modeling vm-disconnect: once
// the pending events are drained, blocked and future PollEvents calls
// return immediately with no events and a nil error.
func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// PollEvents blocks until an event is pending, the fake is closed, or ctx
// is done.
func (f *Fake) PollEvents(ctx context.Context) ([]nativeconn.Event, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			f.cond.Broadcast()
			f.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.pending) == 0 && !f.closed && ctx.Err() == nil {
		f.cond.Wait()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(f.pending) == 0 && f.closed {
		return nil, nil
	}
	out := f.pending
	f.pending = nil
	return out, nil
}

// SetMainThread configures the value MainThread returns.
func (f *Fake) SetMainThread(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mainThread = id
}

func (f *Fake) MainThread(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mainThread, nil
}

// SetClasses configures the value Classes returns.
func (f *Fake) SetClasses(classes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes = classes
}

func (f *Fake) Classes(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.classes))
	copy(out, f.classes)
	return out, nil
}

var _ nativeconn.Conn = (*Fake)(nil)
