package profile

import (
	"context"
	"testing"

	"github.com/jdibridge/bridge/pkg/correlation"
	"github.com/jdibridge/bridge/pkg/event"
	"github.com/jdibridge/bridge/pkg/nativeconn"
	"github.com/jdibridge/bridge/pkg/nativeconn/nativeconntest"
	"github.com/jdibridge/bridge/pkg/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeDeliversMatchingEvents(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := request.NewBreakpointManager(fake, nil)
	evtMgr := event.NewManager()
	p := NewBreakpointProfile(mgr, evtMgr)

	key := request.BreakpointKey{FileName: "Foo.java", LineNumber: 10}
	stream, err := p.Subscribe(ctx, key)
	require.NoError(t, err)

	var got int
	stream.Subscribe(func(i event.Item) { got++ })

	ids := mgr.ListByID()
	require.Len(t, ids, 1)
	props := map[string]string{correlation.PropertyKey: ids[0].String()}

	evtMgr.Dispatch(nativeconn.Event{Kind: nativeconn.KindBreakpoint, RequestProperties: props})
	assert.Equal(t, 1, got)
}

func TestTwoSubscribersShareOneNativeRequest(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := request.NewMethodEntryManager(fake, nil)
	evtMgr := event.NewManager()
	p := NewMethodEntryProfile(mgr, evtMgr)

	key := request.MethodKey{ClassName: "com.x.Foo", MethodName: "bar"}
	s1, err := p.Subscribe(ctx, key)
	require.NoError(t, err)
	s2, err := p.Subscribe(ctx, key)
	require.NoError(t, err)
	_ = s1
	_ = s2

	assert.Len(t, fake.CreateLog(), 1, "second subscribe should hit the memo cell, not create again")
}

func TestRequestTornDownOnlyAfterLastSubscriberCloses(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := request.NewMethodEntryManager(fake, nil)
	evtMgr := event.NewManager()
	p := NewMethodEntryProfile(mgr, evtMgr)

	key := request.MethodKey{ClassName: "com.x.Foo", MethodName: "bar"}
	s1, err := p.Subscribe(ctx, key)
	require.NoError(t, err)
	s2, err := p.Subscribe(ctx, key)
	require.NoError(t, err)

	s1.Close()
	assert.Equal(t, 0, fake.DeleteCount())

	s2.Close()
	assert.Equal(t, 1, fake.DeleteCount())
}

func TestOutOfBandRemovalCausesFreshSubscribeToRecreate(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := request.NewThreadStartManager(fake, nil)
	evtMgr := event.NewManager()
	p := NewThreadStartProfile(mgr, evtMgr)

	key := request.UnitKey{}
	s1, err := p.Subscribe(ctx, key)
	require.NoError(t, err)
	ids := mgr.ListByID()
	require.Len(t, ids, 1)
	assert.True(t, mgr.RemoveByID(ctx, ids[0]))
	s1.Close()
	assert.Equal(t, 1, fake.DeleteCount())

	_, err = p.Subscribe(ctx, key)
	require.NoError(t, err)
	assert.Len(t, fake.CreateLog(), 2, "request removed out-of-band must be recreated on next subscribe")
}

func TestSubscribeFailurePropagatesAndDoesNotMemoize(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	fake.FailNextCreates(1)
	mgr := request.NewBreakpointManager(fake, nil)
	evtMgr := event.NewManager()
	p := NewBreakpointProfile(mgr, evtMgr)

	key := request.BreakpointKey{FileName: "Foo.java", LineNumber: 3}
	_, err := p.Subscribe(ctx, key)
	require.Error(t, err)

	stream, err := p.Subscribe(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, stream)
}

func TestStepSingleShotClosesAfterFirstEvent(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := request.NewStepManager(fake, nil)
	evtMgr := event.NewManager()
	p := NewStepProfile(mgr, evtMgr)

	key := request.StepKey{ThreadID: "t1", Size: nativeconn.StepSize(0), Depth: nativeconn.StepDepth(0)}
	stream, err := p.SubscribeOnce(ctx, key)
	require.NoError(t, err)

	var got int
	stream.Subscribe(func(i event.Item) { got++ })

	ids := mgr.ListByID()
	require.Len(t, ids, 1)
	props := map[string]string{correlation.PropertyKey: ids[0].String()}

	evtMgr.Dispatch(nativeconn.Event{Kind: nativeconn.KindStep, RequestProperties: props})
	assert.Equal(t, 1, got)
	assert.Equal(t, 1, fake.DeleteCount())

	evtMgr.Dispatch(nativeconn.Event{Kind: nativeconn.KindStep, RequestProperties: props})
	assert.Equal(t, 1, got, "stream should have closed after the first event")
}
