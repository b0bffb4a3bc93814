package schedule

import "sync"

// Disposer is a per-lifecycle disposal set. Every task and cleanup registered
// with it is cancelled or run exactly once when Dispose is called. Anything
// registered after Dispose is cancelled (or run) immediately.
type Disposer struct {
	mu       sync.Mutex
	tasks    []Task
	cleanups []func()
	disposed bool
}

// NewDisposer returns an empty disposal set.
func NewDisposer() *Disposer {
	return &Disposer{}
}

// Add registers t and returns it for convenience.
func (d *Disposer) Add(t Task) Task {
	if t == nil {
		return t
	}
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		t.Cancel()
		return t
	}
	d.tasks = append(d.tasks, t)
	d.mu.Unlock()
	return t
}

// Defer registers a cleanup function, such as a listener unsubscribe.
func (d *Disposer) Defer(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		fn()
		return
	}
	d.cleanups = append(d.cleanups, fn)
	d.mu.Unlock()
}

// Dispose cancels all registered tasks and runs cleanups in reverse order.
// It is safe to call more than once.
func (d *Disposer) Dispose() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.disposed = true
	tasks := d.tasks
	cleanups := d.cleanups
	d.tasks = nil
	d.cleanups = nil
	d.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Disposed reports whether Dispose has been called.
func (d *Disposer) Disposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}
