// Package request implements the generic request-manager contract (§4.2):
// one instance per event kind, each owning a natural-key→id index and an
// id→record index, kept consistent under a single mutex the way the
// teacher's pkg/session.Manager guards its session map.
package request

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jdibridge/bridge/pkg/audit"
	"github.com/jdibridge/bridge/pkg/correlation"
	"github.com/jdibridge/bridge/pkg/jdiarg"
	"github.com/jdibridge/bridge/pkg/nativeconn"
)

// CreateFunc installs a native request for key with the given (already
// defaulted) request-args and returns its native handle.
type CreateFunc[K comparable] func(ctx context.Context, key K, args []jdiarg.RequestArg) (nativeconn.Handle, error)

// DefaultsFunc returns kind-specific request-arg defaults for key (e.g. a
// class-inclusion filter derived from the natural key), applied before any
// caller-supplied args are merged in.
type DefaultsFunc[K comparable] func(key K) []jdiarg.RequestArg

// KeyStringFunc renders a natural key for audit logging.
type KeyStringFunc[K comparable] func(key K) string

// Manager is a generic per-event-kind request manager (§4.2).
type Manager[K comparable] struct {
	kind     string
	conn     nativeconn.Conn
	create   CreateFunc[K]
	defaults DefaultsFunc[K]
	keyStr   KeyStringFunc[K]
	sink     audit.Sink

	mu       sync.RWMutex
	byKey    map[K]correlation.UniqueID
	byID     map[correlation.UniqueID]*Record[K]
	terminal bool

	defaultSuspendPolicy jdiarg.SuspendPolicy
}

// New constructs a Manager for one event kind. sink may be audit.Noop{}.
func New[K comparable](kind string, conn nativeconn.Conn, create CreateFunc[K], defaults DefaultsFunc[K], keyStr KeyStringFunc[K], sink audit.Sink) *Manager[K] {
	if sink == nil {
		sink = audit.Noop{}
	}
	return &Manager[K]{
		kind:                 kind,
		conn:                 conn,
		create:               create,
		defaults:             defaults,
		keyStr:               keyStr,
		sink:                 sink,
		byKey:                make(map[K]correlation.UniqueID),
		byID:                 make(map[correlation.UniqueID]*Record[K]),
		defaultSuspendPolicy: jdiarg.SuspendEventThread,
	}
}

// SetDefaultSuspendPolicy overrides the suspend policy applied when a
// caller's args don't specify one (BRIDGE_DEFAULT_SUSPEND_POLICY). Must be
// called before the manager starts serving creates; it is not guarded
// against concurrent CreateWithId calls.
func (m *Manager[K]) SetDefaultSuspendPolicy(p jdiarg.SuspendPolicy) {
	m.defaultSuspendPolicy = p
}

// Kind returns the event kind this manager owns.
func (m *Manager[K]) Kind() string { return m.kind }

// MarkTerminal fails fast on subsequent create calls (§5, §7 TerminalVM).
// Existing records are left in place; the event manager is responsible for
// closing pipelines, which drives removal through the ordinary path.
func (m *Manager[K]) MarkTerminal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminal = true
}

func hasArgOfType[T jdiarg.RequestArg](args []jdiarg.RequestArg) bool {
	for _, a := range args {
		if _, ok := a.(T); ok {
			return true
		}
	}
	return false
}

func (m *Manager[K]) applyDefaults(key K, args []jdiarg.RequestArg) []jdiarg.RequestArg {
	out := make([]jdiarg.RequestArg, 0, len(args)+3)
	if !hasArgOfType[jdiarg.EnabledArg](args) {
		out = append(out, jdiarg.EnabledArg{Enabled: true})
	}
	if !hasArgOfType[jdiarg.SuspendPolicyArg](args) {
		out = append(out, jdiarg.SuspendPolicyArg{Policy: m.defaultSuspendPolicy})
	}
	if m.defaults != nil {
		out = append(out, m.defaults(key)...)
	}
	out = append(out, args...)
	return out
}

// CreateWithId creates a request for key (or, if key already has a live
// request, returns that request's id, which may differ from id and whose
// args are left unchanged), stamping args with id as the unique-id
// property before calling the
// native layer. Atomic: neither index is written unless the native create
// succeeds (§4.2 "Crash safety on create").
func (m *Manager[K]) CreateWithId(ctx context.Context, key K, id correlation.UniqueID, reqArgs []jdiarg.RequestArg) (correlation.UniqueID, error) {
	m.mu.Lock()
	if m.terminal {
		m.mu.Unlock()
		return correlation.UniqueID{}, ErrTerminalVM
	}
	if existing, ok := m.byKey[key]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.mu.Unlock()

	stamped := append(jdiarg.StripUniqueIDProperty(reqArgs), jdiarg.UniqueIDProperty{ID: id})
	full := m.applyDefaults(key, stamped)

	native, err := m.create(ctx, key, full)
	if err != nil {
		return correlation.UniqueID{}, &CreationError{Kind: m.kind, Err: err}
	}
	if err := m.conn.Enable(ctx, native); err != nil {
		return correlation.UniqueID{}, &CreationError{Kind: m.kind, Err: err}
	}

	rec := &Record[K]{ID: id, Key: key, Native: native, Args: full}

	m.mu.Lock()
	// Re-check: a concurrent CreateWithId for the same key may have won the
	// race while the native call ran unlocked. The memoization cell upstream
	// serializes this per key in practice (§4.5), but the manager stays
	// correct standalone too — the loser's native request is torn down.
	if existing, ok := m.byKey[key]; ok {
		m.mu.Unlock()
		_ = m.conn.Delete(ctx, native)
		return existing, nil
	}
	m.byKey[key] = id
	m.byID[id] = rec
	m.mu.Unlock()

	m.audit(ctx, id, key, audit.TransitionCreated)
	slog.Info("request created", "kind", m.kind, "request_id", id.String(), "key", m.keyStr(key))
	return id, nil
}

// Create generates a fresh id and delegates to CreateWithId.
func (m *Manager[K]) Create(ctx context.Context, key K, reqArgs []jdiarg.RequestArg) (correlation.UniqueID, error) {
	return m.CreateWithId(ctx, key, correlation.New(), reqArgs)
}

// Has reports whether key has a live request.
func (m *Manager[K]) Has(key K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byKey[key]
	return ok
}

// HasByID reports whether id is live.
func (m *Manager[K]) HasByID(id correlation.UniqueID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byID[id]
	return ok
}

// Get returns the native handle for key, if live.
func (m *Manager[K]) Get(key K) (nativeconn.Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, false
	}
	return m.byID[id].Native, true
}

// GetByID returns the native handle for id, if live.
func (m *Manager[K]) GetByID(id correlation.UniqueID) (nativeconn.Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return rec.Native, true
}

// ArgsByID returns the (unique-id-stripped) request-args a live record was
// created with, so list/get never leaks the correlation id to callers.
func (m *Manager[K]) ArgsByID(id correlation.UniqueID) ([]jdiarg.RequestArg, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return jdiarg.StripUniqueIDProperty(rec.Args), true
}

// List returns the natural keys of all live requests.
func (m *Manager[K]) List() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]K, 0, len(m.byKey))
	for k := range m.byKey {
		out = append(out, k)
	}
	return out
}

// ListByID returns the ids of all live requests.
func (m *Manager[K]) ListByID() []correlation.UniqueID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]correlation.UniqueID, 0, len(m.byID))
	for id := range m.byID {
		out = append(out, id)
	}
	return out
}

// Entry is one live request rendered for introspection (§4.11): the
// correlation id and the natural key's string form, never the raw args
// (which may carry a unique-id property the API should not echo back).
type Entry struct {
	ID  string
	Key string
}

// Entries returns every live request's (id, key) pair for the /requests/:kind
// introspection endpoint.
func (m *Manager[K]) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.byID))
	for id, rec := range m.byID {
		out = append(out, Entry{ID: id.String(), Key: m.keyStr(rec.Key)})
	}
	return out
}

// Remove deletes the request indexed under key, if any. Idempotent: a
// second call for the same key (or an already-evicted one) returns false.
func (m *Manager[K]) Remove(ctx context.Context, key K) bool {
	m.mu.Lock()
	id, ok := m.byKey[key]
	if !ok {
		m.mu.Unlock()
		return false
	}
	rec := m.byID[id]
	delete(m.byKey, key)
	delete(m.byID, id)
	m.mu.Unlock()

	m.deleteNative(ctx, rec.Native, m.kind)
	m.audit(ctx, id, key, audit.TransitionRemoved)
	slog.Info("request removed", "kind", m.kind, "request_id", id.String(), "key", m.keyStr(key))
	return true
}

// RemoveByID deletes the request with the given id, if any, also evicting
// the matching key-index entry. Idempotent.
func (m *Manager[K]) RemoveByID(ctx context.Context, id correlation.UniqueID) bool {
	m.mu.Lock()
	rec, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.byID, id)
	delete(m.byKey, rec.Key)
	m.mu.Unlock()

	m.deleteNative(ctx, rec.Native, m.kind)
	m.audit(ctx, id, rec.Key, audit.TransitionRemoved)
	slog.Info("request removed", "kind", m.kind, "request_id", id.String(), "key", m.keyStr(rec.Key))
	return true
}

// deleteNative tolerates failure: the remote VM may already be gone
// (§5 "Terminal debuggee events", §7 "Removal failures are swallowed").
func (m *Manager[K]) deleteNative(ctx context.Context, h nativeconn.Handle, kind string) {
	if err := m.conn.Delete(ctx, h); err != nil {
		slog.Warn("native delete failed, ignoring", "kind", kind, "error", err)
	}
}

func (m *Manager[K]) audit(ctx context.Context, id correlation.UniqueID, key K, t audit.Transition) {
	rec := audit.Record{
		RequestKind: m.kind,
		RequestID:   id.String(),
		NaturalKey:  m.keyStr(key),
		Transition:  t,
		OccurredAt:  time.Now(),
	}
	if err := m.sink.Record(ctx, rec); err != nil {
		slog.Warn("audit sink failed, ignoring", "kind", m.kind, "error", err)
	}
}
