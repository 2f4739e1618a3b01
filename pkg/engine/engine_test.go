package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jdibridge/bridge/pkg/audit"
	"github.com/jdibridge/bridge/pkg/correlation"
	"github.com/jdibridge/bridge/pkg/event"
	"github.com/jdibridge/bridge/pkg/nativeconn"
	"github.com/jdibridge/bridge/pkg/nativeconn/nativeconntest"
	"github.com/jdibridge/bridge/pkg/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartStopIsIdempotentAndMarksManagersTerminal(t *testing.T) {
	fake := nativeconntest.New()
	e := New(fake, audit.Noop{}, 0, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	e.Start(ctx) // duplicate start must be a no-op, not a panic

	h := e.Health()
	assert.True(t, h.DispatcherRunning)
	assert.Len(t, h.ManagerKinds, 18)

	e.Stop()
	e.Stop() // duplicate stop must be a no-op

	_, err := e.Managers.Breakpoint.CreateWithId(context.Background(), request.BreakpointKey{FileName: "Foo.java", LineNumber: 1}, correlation.New(), nil)
	assert.Error(t, err, "creates after Stop must be rejected by the now-terminal manager")
}

func TestProfileSubscribeWorksThroughEngineWiring(t *testing.T) {
	fake := nativeconntest.New()
	e := New(fake, audit.Noop{}, 0, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Stop()

	key := request.BreakpointKey{FileName: "Foo.java", LineNumber: 42}
	stream, err := e.Profiles.Breakpoint.Subscribe(ctx, key)
	require.NoError(t, err)

	var got int
	stream.Subscribe(func(event.Item) { got++ })

	ids := e.Managers.Breakpoint.ListByID()
	require.Len(t, ids, 1)
	e.EventMgr.Dispatch(nativeconn.Event{
		Kind:              nativeconn.KindBreakpoint,
		RequestProperties: map[string]string{correlation.PropertyKey: ids[0].String()},
	})
	assert.Equal(t, 1, got)
}

func TestTerminalEventClosesPipelinesAndRejectsFurtherCreates(t *testing.T) {
	fake := nativeconntest.New()
	e := New(fake, audit.Noop{}, 0, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Stop()

	key := request.BreakpointKey{FileName: "Foo.java", LineNumber: 42}
	stream, err := e.Profiles.Breakpoint.Subscribe(ctx, key)
	require.NoError(t, err)

	closed := make(chan struct{})
	stream.OnClose(func() { close(closed) })

	// Drive the VMDeath event through the real dispatch path (fake.Push ->
	// PollEvents -> Dispatch), not a direct Dispatch call, so the test
	// exercises the same path a real debuggee disconnect would take.
	fake.Push(nativeconn.Event{Kind: nativeconn.KindVMDeath})

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("pipeline was not closed after a terminal debuggee event")
	}

	assert.Eventually(t, func() bool {
		_, err := e.Managers.Breakpoint.CreateWithId(context.Background(),
			request.BreakpointKey{FileName: "Bar.java", LineNumber: 1}, correlation.New(), nil)
		return errors.Is(err, request.ErrTerminalVM)
	}, time.Second, time.Millisecond, "manager must reject creates once terminal hook has run")
}

func TestReconciliationLogsDivergenceWithoutMutating(t *testing.T) {
	fake := nativeconntest.New()
	e := New(fake, audit.Noop{}, 10*time.Millisecond, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Stop()

	_, err := e.Managers.Breakpoint.CreateWithId(context.Background(), request.BreakpointKey{FileName: "Foo.java", LineNumber: 7}, correlation.New(), nil)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	assert.Len(t, e.Managers.Breakpoint.ListByID(), 1, "reconciliation sweep is read-only and must not remove in-memory state")
}
