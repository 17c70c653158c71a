package livecookie

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Mirror keeps an in-memory copy of a Store's contents and serves synchronous
// reads against it. It registers a single "change" listener on the store at
// construction, so the copy is updated before any listener registered later
// (including every pass-through listener added via AddEventListener) observes
// the event.
//
// A Mirror never performs IO on a read path and its read methods never fail:
// before the initial load, and after any swallowed load error, reads simply
// report an empty store.
type Mirror struct {
	store Store
	self  ChangeListener

	loadOnce sync.Once

	mu       sync.RWMutex
	entries  []Cookie
	index    map[string]int
	snapshot []Cookie
	gen      uint64
	warnings []string
}

// NewMirror creates a Mirror over store and subscribes it to the store's
// change feed. The mirror is empty until Initialize runs or the first event
// arrives. A nil store (environment without a cookie store) yields a permanent
// no-op mirror: all reads return empty, nothing panics.
func NewMirror(store Store) *Mirror {
	m := &Mirror{
		store: store,
		index: make(map[string]int),
	}
	if store != nil {
		m.self = ListenerFunc(m.apply)
		store.AddEventListener(EventChange, m.self)
	}
	return m
}

// Initialize performs the one-time bulk load from the store. It is safe to
// call more than once; only the first call loads. A load failure is recorded
// as a warning and otherwise swallowed: the mirror stays empty until the next
// change event rather than surfacing IO state to synchronous callers.
func (m *Mirror) Initialize(ctx context.Context) {
	m.loadOnce.Do(func() {
		if m.store == nil {
			return
		}
		cookies, err := m.store.List(ctx)
		if err != nil {
			m.mu.Lock()
			m.warnings = append(m.warnings, fmt.Sprintf("livecookie: initial load failed: %v", err))
			m.mu.Unlock()
			return
		}
		// The listed contents are just another change batch: replace in
		// place, append the rest. Entries already mirrored from events that
		// raced ahead of the load keep their positions.
		m.apply(ChangeEvent{Changed: cookies})
	})
}

// Get returns the cookie named name, or false if the mirror holds no such
// cookie. It reflects every change event fully processed before the call.
func (m *Mirror) Get(name string) (Cookie, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[name]
	if !ok {
		return Cookie{}, false
	}
	return m.entries[i], true
}

// GetAll returns the mirror's cookies in insertion order. With no filter the
// returned slice is the same instance across calls until the next change
// event, so callers can detect "nothing changed" by identity. With name
// filters a fresh slice is built, preserving relative order.
func (m *Mirror) GetAll(names ...string) []Cookie {
	if len(names) == 0 {
		return m.stableAll()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Cookie, 0, len(names))
	for _, c := range m.entries {
		if slices.Contains(names, c.Name) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Mirror) stableAll() []Cookie {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()
	if snap != nil {
		return snap
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		m.snapshot = slices.Clone(m.entries)
		if m.snapshot == nil {
			m.snapshot = []Cookie{}
		}
	}
	return m.snapshot
}

// Generation returns a counter that increments once per applied change event
// (and once for the bulk load). Adapters can compare generations instead of
// relying on slice identity.
func (m *Mirror) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// Warnings returns problems swallowed so far (failed bulk load). The slice is
// a copy.
func (m *Mirror) Warnings() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.warnings)
}

// AddEventListener registers l directly on the underlying store's event feed.
// Only EventChange is supported; other kinds are ignored. Because the mirror's
// own listener was registered first, l always observes post-change Get/GetAll
// state. Each registration is independent, including duplicates.
func (m *Mirror) AddEventListener(kind string, l ChangeListener) {
	if m.store == nil {
		return
	}
	m.store.AddEventListener(kind, l)
}

// RemoveEventListener removes one matching registration from the underlying
// store. Removing a listener that was never added is a no-op.
func (m *Mirror) RemoveEventListener(kind string, l ChangeListener) {
	if m.store == nil {
		return
	}
	m.store.RemoveEventListener(kind, l)
}

// Close unregisters the mirror's internal store listener. Reads keep working
// against the last mirrored state. Intended for scoped instances (per-test
// mirrors) so subscriptions do not leak.
func (m *Mirror) Close() {
	if m.store == nil || m.self == nil {
		return
	}
	m.store.RemoveEventListener(EventChange, m.self)
}

// apply merges one change event into the mirror. Changed entries first:
// an existing name is replaced in place (position preserved), a new name is
// appended. Removed entries second: the entry is deleted and the gap closed
// without reordering the remainder. A name in both lists therefore nets to
// removed. Entries without a name are skipped without aborting the event.
func (m *Mirror) apply(ev ChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range ev.Changed {
		if c.Name == "" {
			continue
		}
		if i, ok := m.index[c.Name]; ok {
			m.entries[i] = c
			continue
		}
		m.entries = append(m.entries, c)
		m.index[c.Name] = len(m.entries) - 1
	}

	for _, c := range ev.Removed {
		if c.Name == "" {
			continue
		}
		i, ok := m.index[c.Name]
		if !ok {
			continue
		}
		m.entries = append(m.entries[:i], m.entries[i+1:]...)
		delete(m.index, c.Name)
		for j := i; j < len(m.entries); j++ {
			m.index[m.entries[j].Name] = j
		}
	}

	m.gen++
	m.snapshot = nil
}
