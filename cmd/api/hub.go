package main

import (
	"sync"

	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/controller"
)

// viewHub fans controller views out to event stream clients. Each client
// holds at most one pending view; a newer view replaces an unread one, so a
// slow client never blocks the controller loop.
type viewHub struct {
	mu     sync.Mutex
	subs   map[chan controller.View]struct{}
	closed bool
}

func newViewHub() *viewHub {
	return &viewHub{subs: make(map[chan controller.View]struct{})}
}

// publish is registered as the controller update callback
func (h *viewHub) publish(v controller.View) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// subscribe returns a channel of views and a release func. The channel is
// closed on release or when the hub shuts down.
func (h *viewHub) subscribe() (<-chan controller.View, func()) {
	ch := make(chan controller.View, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *viewHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// close ends every stream
func (h *viewHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
