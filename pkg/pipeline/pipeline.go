// Package pipeline implements the push-stream primitive used to deliver
// event data to callers (§4.4). A Pipeline has no pull side: values are
// pushed in by whatever owns it (typically the event dispatcher) and fan
// out to every subscriber registered at the time of the push. Close is
// idempotent and runs registered close hooks exactly once, in registration
// order, guarding its shutdown with a closed flag rather than trusting
// callers not to double-stop.
package pipeline

import "sync"

// Pipeline is a push-based stream of values of type T.
type Pipeline[T any] struct {
	mu        sync.Mutex
	consumers []func(T)
	hooks     []func()
	closed    bool
}

// New returns an empty, open Pipeline.
func New[T any]() *Pipeline[T] {
	return &Pipeline[T]{}
}

// Subscribe registers fn to receive every value emitted after this call.
// Values emitted before Subscribe are not replayed.
func (p *Pipeline[T]) Subscribe(fn func(T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.consumers = append(p.consumers, fn)
}

// Emit pushes v to every current subscriber. A no-op once closed.
func (p *Pipeline[T]) Emit(v T) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	consumers := make([]func(T), len(p.consumers))
	copy(consumers, p.consumers)
	p.mu.Unlock()

	for _, c := range consumers {
		c(v)
	}
}

// OnClose registers fn to run when the pipeline closes. If it is already
// closed, fn runs immediately on the calling goroutine.
func (p *Pipeline[T]) OnClose(fn func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		fn()
		return
	}
	p.hooks = append(p.hooks, fn)
	p.mu.Unlock()
}

// Close tears the pipeline down, running every registered hook exactly
// once. Safe to call from multiple goroutines and more than once, including
// from inside one of its own hooks: every call after the first returns
// immediately.
func (p *Pipeline[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	hooks := p.hooks
	p.hooks = nil
	p.consumers = nil
	p.mu.Unlock()

	for _, h := range hooks {
		h()
	}
}

// Closed reports whether Close has run.
func (p *Pipeline[T]) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Map derives a new pipeline carrying f(v) for every v emitted by src.
// Closing src closes the derived pipeline.
func Map[T, U any](src *Pipeline[T], f func(T) U) *Pipeline[U] {
	out := New[U]()
	src.Subscribe(func(v T) { out.Emit(f(v)) })
	src.OnClose(out.Close)
	return out
}

// Filter derives a new pipeline carrying only the values of src for which
// pred holds. Closing src closes the derived pipeline.
func Filter[T any](src *Pipeline[T], pred func(T) bool) *Pipeline[T] {
	out := New[T]()
	src.Subscribe(func(v T) {
		if pred(v) {
			out.Emit(v)
		}
	})
	src.OnClose(out.Close)
	return out
}

// Noop returns a distinct handle onto src: every value and the eventual
// close propagate unchanged, but the new handle carries its own
// subscriber and close-hook lists. Used where a caller needs a pipeline
// handle of its own without altering what flows through it — e.g. giving
// each profile subscriber an independent close hook onto a shared stream.
func Noop[T any](src *Pipeline[T]) *Pipeline[T] {
	return Map(src, func(v T) T { return v })
}

// RefCounted runs onZero exactly once, the first time Release brings the
// count to zero or below. Acquire/Release may be called from any
// goroutine. It underlies UnionOutput's "last one out closes the door"
// teardown (§4.6's profile close-union: a shared request is torn down
// only once every output pipeline derived from it has closed).
type RefCounted struct {
	mu     sync.Mutex
	count  int
	fired  bool
	onZero func()
}

// NewRefCounted returns a ref counter that calls onZero once it reaches
// zero via Release.
func NewRefCounted(onZero func()) *RefCounted {
	return &RefCounted{onZero: onZero}
}

// Acquire increments the reference count.
func (r *RefCounted) Acquire() {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
}

// Count reports the current reference count, for introspection snapshots.
func (r *RefCounted) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Release decrements the reference count, firing onZero the first time
// the count reaches zero or below.
func (r *RefCounted) Release() {
	r.mu.Lock()
	r.count--
	fire := r.count <= 0 && !r.fired
	if fire {
		r.fired = true
	}
	r.mu.Unlock()
	if fire && r.onZero != nil {
		r.onZero()
	}
}

// UnionOutput acquires ref and returns a new handle forwarding every
// value emitted by src. The handle and src close together — whichever
// closes first closes the other — and the handle's close additionally
// releases ref. Each caller subscribing to a shared underlying request
// gets one of these over its own private src, so closing the handle both
// unsubscribes that caller's event stream and, once every other handle
// sharing ref has done the same, runs the request's native teardown
// (wired as ref's onZero) exactly once.
func UnionOutput[T any](src *Pipeline[T], ref *RefCounted) *Pipeline[T] {
	ref.Acquire()
	out := New[T]()
	src.Subscribe(out.Emit)
	src.OnClose(out.Close)
	out.OnClose(src.Close)
	out.OnClose(ref.Release)
	return out
}
