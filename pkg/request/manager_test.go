package request

import (
	"context"
	"testing"

	"github.com/jdibridge/bridge/pkg/correlation"
	"github.com/jdibridge/bridge/pkg/jdiarg"
	"github.com/jdibridge/bridge/pkg/nativeconn/nativeconntest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThenGetByIdRoundTrips(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := NewMethodEntryManager(fake, nil)

	key := MethodKey{ClassName: "com.x.Foo", MethodName: "bar"}
	id, err := mgr.Create(ctx, key, nil)
	require.NoError(t, err)

	_, ok := mgr.GetByID(id)
	assert.True(t, ok)
	assert.True(t, mgr.Has(key))
}

func TestRemoveByIdThenGetByIdIsAbsent(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := NewMethodEntryManager(fake, nil)

	key := MethodKey{ClassName: "com.x.Foo", MethodName: "bar"}
	id, err := mgr.Create(ctx, key, nil)
	require.NoError(t, err)

	assert.True(t, mgr.RemoveByID(ctx, id))
	_, ok := mgr.GetByID(id)
	assert.False(t, ok)
	assert.False(t, mgr.Has(key))
}

func TestCreateWithSameKeyReusesId(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := NewMethodEntryManager(fake, nil)

	key := MethodKey{ClassName: "com.x.Foo", MethodName: "bar"}
	id1, err := mgr.Create(ctx, key, nil)
	require.NoError(t, err)
	id2, err := mgr.Create(ctx, key, nil)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, fake.CreateLog(), 1)
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := NewMethodEntryManager(fake, nil)

	key := MethodKey{ClassName: "com.x.Foo", MethodName: "bar"}
	_, err := mgr.Create(ctx, key, nil)
	require.NoError(t, err)

	assert.True(t, mgr.Remove(ctx, key))
	assert.False(t, mgr.Remove(ctx, key))
	assert.Equal(t, 1, fake.DeleteCount())
}

func TestCreationFailureLeavesNoState(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	fake.FailNextCreates(1)
	mgr := NewMethodEntryManager(fake, nil)

	key := MethodKey{ClassName: "com.x.Foo", MethodName: "bar"}
	_, err := mgr.Create(ctx, key, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNativeCreationFailed)
	assert.False(t, mgr.Has(key))

	// Retry with identical args performs a fresh attempt, no stale failure.
	id, err := mgr.Create(ctx, key, nil)
	require.NoError(t, err)
	assert.True(t, mgr.HasByID(id))
}

func TestOutOfBandRemovalThenFreshCreateYieldsNewId(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := NewMethodExitManager(fake, nil)

	key := MethodKey{ClassName: "A", MethodName: "m"}
	r1, err := mgr.Create(ctx, key, nil)
	require.NoError(t, err)

	assert.True(t, mgr.RemoveByID(ctx, r1))

	r2, err := mgr.Create(ctx, key, nil)
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)
}

func TestArgsByIdStripsUniqueIdProperty(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := NewBreakpointManager(fake, nil)

	key := BreakpointKey{FileName: "Foo.java", LineNumber: 10}
	id, err := mgr.Create(ctx, key, []jdiarg.RequestArg{jdiarg.CountFilter{N: 2}})
	require.NoError(t, err)

	args, ok := mgr.ArgsByID(id)
	require.True(t, ok)
	for _, a := range args {
		_, isUID := a.(jdiarg.UniqueIDProperty)
		assert.False(t, isUID, "unique-id property must not leak")
	}
}

func TestTerminalRejectsFurtherCreates(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := NewThreadStartManager(fake, nil)
	mgr.MarkTerminal()

	_, err := mgr.Create(ctx, UnitKey{}, nil)
	assert.ErrorIs(t, err, ErrTerminalVM)
}

func TestUserSuppliedUniqueIdIsHonoured(t *testing.T) {
	ctx := context.Background()
	fake := nativeconntest.New()
	mgr := NewBreakpointManager(fake, nil)

	want := correlation.New()
	key := BreakpointKey{FileName: "Foo.java", LineNumber: 1}
	got, err := mgr.CreateWithId(ctx, key, want, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
