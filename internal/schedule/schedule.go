// Package schedule provides cancellable timers and frame callbacks that run on a
// single cooperative loop.
package schedule

import (
	"sync/atomic"
	"time"
)

// FrameInterval is the rendering-frame boundary used by the real-time loop (60 Hz).
const FrameInterval = time.Second / 60

// Task is a scheduled callback that can be cancelled before it runs.
type Task interface {
	// Cancel prevents the callback from running. It reports whether this call
	// stopped a callback that had not yet started.
	Cancel() bool
}

// Scheduler runs callbacks one at a time on a cooperative loop.
// Post may be called from any goroutine; AfterFunc and RequestFrame are
// intended to be called from the loop itself.
type Scheduler interface {
	Post(fn func())
	AfterFunc(d time.Duration, fn func()) Task
	RequestFrame(fn func()) Task
}

type task struct {
	cancelled atomic.Bool
	started   atomic.Bool
	stop      func() bool
}

func newTask() *task {
	return &task{}
}

func (t *task) Cancel() bool {
	if t.started.Load() {
		return false
	}
	first := t.cancelled.CompareAndSwap(false, true)
	if first && t.stop != nil {
		t.stop()
	}
	return first
}

// fire runs fn unless the task was cancelled first.
func (t *task) fire(fn func()) {
	if t.cancelled.Load() {
		return
	}
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	fn()
}

// Cancelled reports whether the task was cancelled before running.
func (t *task) Cancelled() bool {
	return t.cancelled.Load()
}

var (
	_ Scheduler = (*Loop)(nil)
	_ Scheduler = (*Virtual)(nil)
)
