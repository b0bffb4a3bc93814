// Package page holds page-wide state shared by overlays, such as the scroll lock.
package page

import "sync"

// ScrollLock suspends page scrolling while at least one handle is held.
type ScrollLock struct {
	mu       sync.Mutex
	holders  int
	onChange func(locked bool)
}

// NewScrollLock creates a lock. onChange, if set, is called whenever the lock
// switches between locked and unlocked.
func NewScrollLock(onChange func(locked bool)) *ScrollLock {
	return &ScrollLock{onChange: onChange}
}

// Handle is one hold on a ScrollLock.
type Handle struct {
	lock *ScrollLock
	once sync.Once
}

// Acquire takes a hold and locks the page if it was unlocked.
func (l *ScrollLock) Acquire() *Handle {
	l.mu.Lock()
	l.holders++
	changed := l.holders == 1
	l.mu.Unlock()

	if changed && l.onChange != nil {
		l.onChange(true)
	}
	return &Handle{lock: l}
}

// Release gives the hold back. Releasing twice has no effect.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(h.lock.release)
}

func (l *ScrollLock) release() {
	l.mu.Lock()
	l.holders--
	changed := l.holders == 0
	l.mu.Unlock()

	if changed && l.onChange != nil {
		l.onChange(false)
	}
}

// Locked reports whether any handle is held.
func (l *ScrollLock) Locked() bool {
	return l.Holders() > 0
}

// Holders returns the number of handles currently held.
func (l *ScrollLock) Holders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holders
}
