// Package profile implements the per-event-kind facade (§4.6): on
// subscribe it memoize-creates a request, opens a filtered event stream,
// tracks a per-key subscriber count, and tears the request down once the
// last subscriber closes. One Profile[K] instantiation serves every kind
// sharing a natural-key shape (class/method-scoped, unit-key, step);
// pkg/engine's NewProfiles builds one per event kind.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jdibridge/bridge/pkg/correlation"
	"github.com/jdibridge/bridge/pkg/event"
	"github.com/jdibridge/bridge/pkg/jdiarg"
	"github.com/jdibridge/bridge/pkg/memo"
	"github.com/jdibridge/bridge/pkg/nativeconn"
	"github.com/jdibridge/bridge/pkg/pipeline"
)

// Result is the memoization cell's output: the live request's id, or the
// error a failed native creation returned. A failed Result is stored by the
// cell but never served from it: the manager holds no record for its key,
// so the next Get finds it invalid and recomputes (Scenario F — creation
// failure rollback).
type Result struct {
	ID  correlation.UniqueID
	Err error
}

// Manager is the subset of request.Manager[K] a Profile depends on.
type Manager[K comparable] interface {
	CreateWithId(ctx context.Context, key K, id correlation.UniqueID, reqArgs []jdiarg.RequestArg) (correlation.UniqueID, error)
	Has(key K) bool
	RemoveByID(ctx context.Context, id correlation.UniqueID) bool
}

type cellInput[K comparable] struct {
	ctx  context.Context
	key  K
	args []jdiarg.RequestArg
}

type cellKey[K comparable] struct {
	natural   K
	argsCanon string
}

func canonicalArgs(args []jdiarg.RequestArg) string {
	return fmt.Sprintf("%#v", jdiarg.StripUniqueIDProperty(args))
}

// Profile composes a request manager and the event manager into the
// uniform per-kind subscribe protocol of §4.6.
type Profile[K comparable] struct {
	kind    nativeconn.EventKind
	mgr     Manager[K]
	evtMgr  *event.Manager
	keyStr  func(K) string
	classOf func(K) string // nil when kind is not class-scoped

	// counterKey derives the per-kind subscriber key (§3 PipelineCounter)
	// under which concurrently open pipelines for equivalent calls share a
	// single reference count.
	counterKey func(K, []jdiarg.EventArg) string

	cell *memo.Cell[cellInput[K], cellKey[K], Result]

	counterMu sync.Mutex
	counters  map[string]*pipeline.RefCounted
}

// New constructs a Profile for one event kind. classOf is nil unless kind
// is class-scoped, in which case it derives the class pattern from the
// natural key for the event-time class filter (§4.3).
func New[K comparable](
	kind nativeconn.EventKind,
	mgr Manager[K],
	evtMgr *event.Manager,
	keyStr func(K) string,
	classOf func(K) string,
	counterKey func(K, []jdiarg.EventArg) string,
) *Profile[K] {
	p := &Profile[K]{
		kind:       kind,
		mgr:        mgr,
		evtMgr:     evtMgr,
		keyStr:     keyStr,
		classOf:    classOf,
		counterKey: counterKey,
		counters:   make(map[string]*pipeline.RefCounted),
	}

	var cell *memo.Cell[cellInput[K], cellKey[K], Result]
	compute := func(in cellInput[K]) Result {
		id := correlation.New()
		if existing, ok := jdiarg.FindUniqueIDProperty(in.args); ok {
			id = existing.ID
		}
		got, err := mgr.CreateWithId(in.ctx, in.key, id, in.args)
		if err != nil {
			// Scenario F: drop any earlier entry for this key. The failed
			// Result that Get stores next is never served, because invalidFn
			// reports the key invalid while the manager holds no record.
			cell.Forget(cellKey[K]{natural: in.key, argsCanon: canonicalArgs(in.args)})
			return Result{Err: err}
		}
		return Result{ID: got}
	}
	keyFn := func(in cellInput[K]) cellKey[K] {
		return cellKey[K]{natural: in.key, argsCanon: canonicalArgs(in.args)}
	}
	invalidFn := func(k cellKey[K]) bool {
		// The request manager's listing is authoritative: if the record is
		// gone (e.g. removed out-of-band), the next subscribe must miss.
		return !mgr.Has(k.natural)
	}
	cell = memo.New(compute, keyFn, invalidFn)
	p.cell = cell
	return p
}

func (p *Profile[K]) refFor(counterKey string, onZero func()) *pipeline.RefCounted {
	p.counterMu.Lock()
	defer p.counterMu.Unlock()
	if r, ok := p.counters[counterKey]; ok {
		return r
	}
	r := pipeline.NewRefCounted(func() {
		onZero()
		p.counterMu.Lock()
		delete(p.counters, counterKey)
		p.counterMu.Unlock()
	})
	p.counters[counterKey] = r
	return r
}

// Counters returns a snapshot of the current subscriber count per pipeline
// key, for the GET /pipelines/:kind introspection endpoint.
func (p *Profile[K]) Counters() map[string]int {
	p.counterMu.Lock()
	defer p.counterMu.Unlock()
	out := make(map[string]int, len(p.counters))
	for k, r := range p.counters {
		out[k] = r.Count()
	}
	return out
}

// Subscribe implements the on<Event>WithData protocol: partition extraArgs,
// memoize-create the request, open a filtered event stream, and return a
// pipeline that tears the request down once every subscriber sharing its
// key has closed.
func (p *Profile[K]) Subscribe(ctx context.Context, key K, extraArgs ...any) (*pipeline.Pipeline[event.Item], error) {
	reqArgs, evtArgs, _ := jdiarg.Partition(extraArgs)

	res := p.cell.Get(cellInput[K]{ctx: ctx, key: key, args: reqArgs})
	if res.Err != nil {
		return nil, res.Err
	}
	slog.Debug("profile subscribe resolved request", "kind", p.kind, "key", p.keyStr(key), "request_id", res.ID.String())

	filters := make([]jdiarg.EventArg, 0, len(evtArgs)+2)
	filters = append(filters, jdiarg.UniqueIDFilter{ID: res.ID})
	if p.classOf != nil {
		filters = append(filters, jdiarg.ClassPatternFilter{Pattern: p.classOf(key)})
	}
	filters = append(filters, evtArgs...)

	raw := p.evtMgr.AddEventDataStream(p.kind, filters...)

	id := res.ID
	ref := p.refFor(p.counterKey(key, evtArgs), func() {
		p.mgr.RemoveByID(context.Background(), id)
	})

	return pipeline.UnionOutput(raw, ref), nil
}

// SubscribeOnce behaves like Subscribe but closes the returned pipeline
// after its first event, tearing the request down immediately afterward
// rather than waiting for the caller to close it. This is how step's
// single-shot behavior is installed: the manager itself knows nothing
// about single-shot semantics (§4.2 "the profile installs this behavior
// by chaining a remove onto the stream's head").
func (p *Profile[K]) SubscribeOnce(ctx context.Context, key K, extraArgs ...any) (*pipeline.Pipeline[event.Item], error) {
	stream, err := p.Subscribe(ctx, key, extraArgs...)
	if err != nil {
		return nil, err
	}
	var once sync.Once
	stream.Subscribe(func(event.Item) {
		once.Do(stream.Close)
	})
	return stream, nil
}
