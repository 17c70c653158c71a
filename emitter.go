package livecookie

import "sync"

// emitter is the shared listener set used by Store implementations. Listeners
// are kept in registration order; duplicates are allowed and each registration
// is independent. remove deletes the first matching registration only.
type emitter struct {
	mu        sync.Mutex
	listeners []ChangeListener
}

func (e *emitter) add(kind string, l ChangeListener) {
	if kind != EventChange || l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

func (e *emitter) remove(kind string, l ChangeListener) {
	if kind != EventChange || l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.listeners {
		if existing == l {
			// Shift rather than swap: dispatch order is part of the contract.
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// emit notifies listeners in registration order. The listener slice is copied
// before dispatch so callbacks may add or remove listeners without deadlock;
// such edits take effect from the next event.
func (e *emitter) emit(ev ChangeEvent) {
	e.mu.Lock()
	listeners := make([]ChangeListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		l.OnChange(ev)
	}
}
