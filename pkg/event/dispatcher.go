package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jdibridge/bridge/pkg/nativeconn"
)

// Dispatcher runs the single dedicated poll loop that drains
// nativeconn.Conn.PollEvents (§5 "single dedicated dispatcher thread").
// Polling and dispatching run as two goroutines joined by a buffered
// channel, mirroring the teacher's pkg/events/listener.go command-channel
// shape (a buffered chan decoupling the caller from the loop doing the
// work): a burst of native events can queue up to BufferSize deep while a
// slow handler callback is still draining the previous one, instead of
// blocking the next PollEvents call. Both goroutines share the same stop
// channel guarded by sync.Once and the same WaitGroup, the way the
// teacher's Worker.run does.
type Dispatcher struct {
	conn    nativeconn.Conn
	manager *Manager

	eventCh chan nativeconn.Event

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher builds a Dispatcher over conn, fanning events out via
// manager through a channel buffered to bufferSize (BRIDGE_DISPATCH_BUFFER_SIZE).
// A non-positive bufferSize is treated as 1.
func NewDispatcher(conn nativeconn.Conn, manager *Manager, bufferSize int) *Dispatcher {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Dispatcher{
		conn:    conn,
		manager: manager,
		eventCh: make(chan nativeconn.Event, bufferSize),
		stopCh:  make(chan struct{}),
	}
}

// Start begins the poll and dispatch loops, each in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(2)
	go d.poll(ctx)
	go d.dispatch(ctx)
}

// Stop signals both loops to exit and waits for them to finish. Safe to
// call more than once. PollEvents is poll's only blocking call and is
// unblocked solely via ctx; callers must cancel the context Start was
// given (or close the underlying connection) for Stop to return promptly.
// Events still sitting in the buffer when Stop is called are dropped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	d.wg.Wait()
}

func (d *Dispatcher) poll(ctx context.Context) {
	defer d.wg.Done()

	log := slog.With("component", "event.Dispatcher", "loop", "poll")
	log.Info("poll loop started")

	for {
		select {
		case <-d.stopCh:
			log.Info("poll loop stopping")
			return
		case <-ctx.Done():
			log.Info("poll loop stopping, context cancelled")
			return
		default:
		}

		events, err := d.conn.PollEvents(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Error("poll failed, backing off", "error", err)
			d.sleep(250 * time.Millisecond)
			continue
		}

		for _, ev := range events {
			select {
			case d.eventCh <- ev:
			case <-d.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context) {
	defer d.wg.Done()

	log := slog.With("component", "event.Dispatcher", "loop", "dispatch")
	log.Info("dispatch loop started")

	for {
		select {
		case <-d.stopCh:
			log.Info("dispatch loop stopping")
			return
		case <-ctx.Done():
			log.Info("dispatch loop stopping, context cancelled")
			return
		case ev := <-d.eventCh:
			d.manager.Dispatch(ev)
		}
	}
}

func (d *Dispatcher) sleep(dur time.Duration) {
	select {
	case <-d.stopCh:
	case <-time.After(dur):
	}
}
