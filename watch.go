package livecookie

import "sync"

// watcher bridges change notifications onto a channel. It re-reads the mirror
// on every notification, never caching a value across one, and coalesces: a
// receiver that falls behind sees the latest snapshot, not a backlog.
type watcher struct {
	mirror *Mirror
	names  []string
	ch     chan []Cookie

	mu     sync.Mutex
	closed bool
}

func (w *watcher) OnChange(ChangeEvent) {
	w.push()
}

func (w *watcher) push() {
	snap := w.mirror.GetAll(w.names...)

	// The store may dispatch an in-flight event after cancel removed us; the
	// closed check keeps that from hitting a closed channel.
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case <-w.ch:
	default:
	}
	w.ch <- snap
}

// Watch subscribes to the mirror and returns a channel that carries the
// current cookies (filtered by names, or all when none are given) after each
// change event, starting with the state at call time. The returned cancel
// func unsubscribes and closes the channel; it is safe to call more than
// once.
//
// Watch is the generic adapter contract: a framework binding drains the
// channel and pushes each snapshot into its own reactivity primitive.
func (m *Mirror) Watch(names ...string) (<-chan []Cookie, func()) {
	w := &watcher{
		mirror: m,
		names:  names,
		ch:     make(chan []Cookie, 1),
	}
	m.AddEventListener(EventChange, w)
	w.push()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.RemoveEventListener(EventChange, w)
			w.mu.Lock()
			w.closed = true
			w.mu.Unlock()
			close(w.ch)
		})
	}
	return w.ch, cancel
}
