package livecookie

import (
	"context"
	"slices"
	"sync"
)

// MemStore is an in-memory Store. It is the single writer of truth in
// embedded setups and the reference backend for tests: every mutation
// advances the store's state and then dispatches one "change" event to
// listeners in registration order, so a Mirror subscribed to it is already
// current when consumer listeners fire.
type MemStore struct {
	emitter

	mu      sync.Mutex
	entries []Cookie
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// List returns a copy of the store's current cookies in insertion order.
func (s *MemStore) List(_ context.Context) ([]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries), nil
}

// AddEventListener registers l for kind "change". Other kinds are ignored.
func (s *MemStore) AddEventListener(kind string, l ChangeListener) {
	s.add(kind, l)
}

// RemoveEventListener removes one matching registration; unknown listeners
// are a no-op.
func (s *MemStore) RemoveEventListener(kind string, l ChangeListener) {
	s.remove(kind, l)
}

// Set adds or updates c by name and emits a change event. Cookies without a
// name are dropped silently.
func (s *MemStore) Set(c Cookie) {
	if c.Name == "" {
		return
	}
	s.mu.Lock()
	if i := s.indexOf(c.Name); i >= 0 {
		s.entries[i] = c
	} else {
		s.entries = append(s.entries, c)
	}
	s.mu.Unlock()

	s.emit(ChangeEvent{Changed: []Cookie{c}})
}

// Delete removes the cookie named name, if present, and emits a change event
// carrying the removed cookie. Deleting an absent name emits nothing.
func (s *MemStore) Delete(name string) {
	s.mu.Lock()
	i := s.indexOf(name)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	removed := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.mu.Unlock()

	s.emit(ChangeEvent{Removed: []Cookie{removed}})
}

// Replace swaps the store's entire contents for cookies and emits a single
// change event describing the difference: every cookie in the new set appears
// as changed, every name present before but not after appears as removed.
func (s *MemStore) Replace(cookies []Cookie) {
	kept := make([]Cookie, 0, len(cookies))
	seen := make(map[string]struct{}, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		kept = append(kept, c)
	}

	s.mu.Lock()
	var removed []Cookie
	for _, old := range s.entries {
		if _, ok := seen[old.Name]; !ok {
			removed = append(removed, old)
		}
	}
	s.entries = kept
	s.mu.Unlock()

	if len(kept) == 0 && len(removed) == 0 {
		return
	}
	s.emit(ChangeEvent{Changed: slices.Clone(kept), Removed: removed})
}

func (s *MemStore) indexOf(name string) int {
	for i, c := range s.entries {
		if c.Name == name {
			return i
		}
	}
	return -1
}
