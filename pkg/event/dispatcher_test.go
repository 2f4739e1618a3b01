package event

import (
	"context"
	"testing"
	"time"

	"github.com/jdibridge/bridge/pkg/nativeconn"
	"github.com/jdibridge/bridge/pkg/nativeconn/nativeconntest"
	"github.com/stretchr/testify/assert"
)

func TestDispatcherDeliversEventsThroughTheBufferedChannel(t *testing.T) {
	fake := nativeconntest.New()
	m := NewManager()
	stream := m.AddEventDataStream(nativeconn.KindBreakpoint)

	var got int
	stream.Subscribe(func(Item) { got++ })

	d := NewDispatcher(fake, m, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	for i := 0; i < 3; i++ {
		fake.Push(nativeconn.Event{Kind: nativeconn.KindBreakpoint})
	}

	assert.Eventually(t, func() bool { return got == 3 }, time.Second, time.Millisecond)
}

func TestNewDispatcherTreatsNonPositiveBufferSizeAsOne(t *testing.T) {
	fake := nativeconntest.New()
	m := NewManager()
	d := NewDispatcher(fake, m, 0)
	assert.Equal(t, 1, cap(d.eventCh))
}
