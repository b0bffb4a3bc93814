// Package input dispatches keyboard events to subscribed listeners.
package input

import "sync"

// Key identifies a key press relevant to the gallery.
type Key string

const (
	KeyEscape     Key = "Escape"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
)

// Listener handles a key and reports whether it consumed it.
type Listener func(Key) bool

// Bus delivers key presses to listeners, most recent subscriber first.
type Bus struct {
	mu        sync.Mutex
	next      int
	listeners []subscription
}

type subscription struct {
	id int
	fn Listener
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe adds fn and returns a function that removes it. The returned
// function may be called more than once.
func (b *Bus) Subscribe(fn Listener) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	b.listeners = append(b.listeners, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.listeners {
			if s.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Dispatch offers k to listeners until one consumes it.
func (b *Bus) Dispatch(k Key) bool {
	b.mu.Lock()
	ls := make([]Listener, len(b.listeners))
	for i, s := range b.listeners {
		ls[len(ls)-1-i] = s.fn
	}
	b.mu.Unlock()

	for _, fn := range ls {
		if fn(k) {
			return true
		}
	}
	return false
}

// Len returns the number of subscribed listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
