// Package event implements the event manager (§4.3): handler registration,
// filter evaluation against inbound native events, and the
// addEventDataStream primitive that profiles use to open a filtered
// pipeline of (event, auxiliary-data) pairs.
package event

import (
	"log/slog"
	"sync"

	"github.com/jdibridge/bridge/pkg/correlation"
	"github.com/jdibridge/bridge/pkg/jdiarg"
	"github.com/jdibridge/bridge/pkg/nativeconn"
	"github.com/jdibridge/bridge/pkg/pipeline"
)

// AuxData carries values extracted from event-args flagged for extraction
// (UserEventProperty.Extract), letting the profile layer propagate
// caller-supplied data back out without the manager knowing its shape.
type AuxData map[string]any

// Item is the value type pushed through a stream returned by
// AddEventDataStream.
type Item struct {
	Event nativeconn.Event
	Aux   AuxData
}

type handler struct {
	kind     nativeconn.EventKind
	filters  []jdiarg.EventArg
	callback func(nativeconn.Event, AuxData)
	close    func()
}

// Manager dispatches inbound native events to registered handlers after
// evaluating their filters. It is single-writer: Dispatch is meant to be
// called from exactly one goroutine (the dispatcher loop), matching the
// event manager's §4.3/§5 "single dedicated dispatcher thread" model.
type Manager struct {
	mu       sync.Mutex
	handlers map[nativeconn.EventKind][]*handler

	onTerminal func(nativeconn.EventKind)
}

// NewManager returns an empty event manager.
func NewManager() *Manager {
	return &Manager{handlers: make(map[nativeconn.EventKind][]*handler)}
}

// SetTerminalHook installs fn to run after a VMDeath/VMDisconnect event has
// been dispatched to its own handlers and every pipeline has been closed
// (§5 "Terminal debuggee events"). Engine wires this to mark every request
// manager terminal. Must be set before Start; not guarded against a
// concurrent Dispatch.
func (m *Manager) SetTerminalHook(fn func(nativeconn.EventKind)) {
	m.onTerminal = fn
}

// AddEventDataStream registers a handler for kind with filters and returns
// a fresh pipeline of matching (event, aux-data) pairs. Closing the
// returned pipeline unregisters the handler (§4.3 "Unsubscribing (pipeline
// close) removes the handler").
func (m *Manager) AddEventDataStream(kind nativeconn.EventKind, filters ...jdiarg.EventArg) *pipeline.Pipeline[Item] {
	out := pipeline.New[Item]()
	h := &handler{
		kind:    kind,
		filters: filters,
		callback: func(ev nativeconn.Event, aux AuxData) {
			out.Emit(Item{Event: ev, Aux: aux})
		},
		close: out.Close,
	}

	m.mu.Lock()
	m.handlers[kind] = append(m.handlers[kind], h)
	m.mu.Unlock()

	out.OnClose(func() { m.removeHandler(kind, h) })
	return out
}

// CloseAll closes every live pipeline across every event kind (§5 "Terminal
// debuggee events": a VMDeath/VMDisconnect dispatch must tear down every
// open stream, not just the ones registered for that kind). Each handler's
// own OnClose callback drives its removeHandler call, so the snapshot is
// taken and the lock released before any Close is invoked.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*handler, 0)
	for _, hs := range m.handlers {
		all = append(all, hs...)
	}
	m.mu.Unlock()

	for _, h := range all {
		h.close()
	}
}

func (m *Manager) removeHandler(kind nativeconn.EventKind, target *handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hs := m.handlers[kind]
	for i, h := range hs {
		if h == target {
			m.handlers[kind] = append(hs[:i], hs[i+1:]...)
			return
		}
	}
}

// Dispatch evaluates ev against every handler registered for its kind and
// invokes the callbacks of those that accept it. Must run on the single
// dispatcher goroutine (§5 ordering guarantees); handler callbacks must
// not block, since Dispatch is synchronous with respect to the poll loop.
// A panicking callback is caught and logged rather than taking down the
// dispatcher. If ev is a terminal debuggee event (VMDeath/VMDisconnect),
// every open pipeline across every kind is closed and the terminal hook
// runs, after this kind's own handlers have already seen it.
func (m *Manager) Dispatch(ev nativeconn.Event) {
	m.mu.Lock()
	hs := append([]*handler(nil), m.handlers[ev.Kind]...)
	m.mu.Unlock()

	for _, h := range hs {
		aux, ok := evaluate(h.filters, ev)
		if !ok {
			continue
		}
		invoke(h, ev, aux)
	}

	if nativeconn.IsTerminal(ev.Kind) {
		m.CloseAll()
		if m.onTerminal != nil {
			m.onTerminal(ev.Kind)
		}
	}
}

func invoke(h *handler, ev nativeconn.Event, aux AuxData) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked, dropping", "kind", ev.Kind, "panic", r)
		}
	}()
	h.callback(ev, aux)
}

// evaluate reports whether every filter in fs accepts ev, building any
// AuxData the filters extract along the way. All filters must accept.
func evaluate(fs []jdiarg.EventArg, ev nativeconn.Event) (AuxData, bool) {
	var aux AuxData
	for _, f := range fs {
		switch v := f.(type) {
		case jdiarg.UniqueIDFilter:
			if ev.RequestProperties[correlation.PropertyKey] != v.ID.String() {
				return nil, false
			}
		case jdiarg.MethodNameFilter:
			if ev.Location == nil || ev.Location.MethodName != v.Name {
				return nil, false
			}
		case jdiarg.ClassPatternFilter:
			if ev.Location == nil {
				return nil, false
			}
			matched := jdiarg.MatchesClassPattern(v.Pattern, ev.Location.ClassName)
			if v.Exclude {
				matched = !matched
			}
			if !matched {
				return nil, false
			}
		case jdiarg.UserEventProperty:
			val, present := ev.Payload[v.Key]
			if !present {
				return nil, false
			}
			if v.Extract {
				if aux == nil {
					aux = make(AuxData)
				}
				aux[v.Key] = val
			}
		}
	}
	return aux, true
}
