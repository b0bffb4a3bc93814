package schedule

import (
	"sync"
	"time"
)

// Loop is the real-time Scheduler. Callbacks are queued and executed in FIFO
// order by RunPending, either on the loop's own goroutine or, when a waker is
// configured, by an external event loop that calls RunPending when woken.
type Loop struct {
	frameInterval time.Duration
	wake          func()
	notify        chan struct{}
	done          chan struct{}

	mu          sync.Mutex
	queue       []func()
	frames      []frameRequest
	frameArmed  bool
	wakePending bool
	closed      bool
	closeOnce   sync.Once
}

type frameRequest struct {
	task *task
	fn   func()
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithWaker hands execution to an external event loop. wake is called (from
// any goroutine) when callbacks are pending; it must not block and the owner
// must respond by calling RunPending on its own loop.
func WithWaker(wake func()) LoopOption {
	return func(l *Loop) {
		l.wake = wake
	}
}

// WithFrameInterval overrides the frame boundary interval.
func WithFrameInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.frameInterval = d
		}
	}
}

// NewLoop creates a Loop. Without a waker it starts its own goroutine.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		frameInterval: FrameInterval,
		notify:        make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.wake == nil {
		go l.serve()
	}
	return l
}

func (l *Loop) serve() {
	for {
		select {
		case <-l.notify:
			l.RunPending()
		case <-l.done:
			return
		}
	}
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	needWake := !l.wakePending
	l.wakePending = true
	l.mu.Unlock()

	if !needWake {
		return
	}
	if l.wake != nil {
		l.wake()
		return
	}
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// RunPending executes every queued callback. Callbacks queued while running are
// picked up by the next wake.
func (l *Loop) RunPending() {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.wakePending = false
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
}

// AfterFunc runs fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Task {
	t := newTask()
	timer := time.AfterFunc(d, func() {
		l.Post(func() { t.fire(fn) })
	})
	t.stop = timer.Stop
	return t
}

// RequestFrame runs fn on the next frame boundary. Frames requested while a
// frame batch is running land on the following boundary.
func (l *Loop) RequestFrame(fn func()) Task {
	t := newTask()
	l.mu.Lock()
	l.frames = append(l.frames, frameRequest{task: t, fn: fn})
	arm := !l.frameArmed && !l.closed
	l.frameArmed = true
	l.mu.Unlock()

	if arm {
		time.AfterFunc(l.frameInterval, func() {
			l.Post(l.flushFrames)
		})
	}
	return t
}

func (l *Loop) flushFrames() {
	l.mu.Lock()
	batch := l.frames
	l.frames = nil
	l.frameArmed = false
	l.mu.Unlock()

	for _, fr := range batch {
		fr.task.fire(fr.fn)
	}
}

// Close stops the loop. Pending callbacks are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.frames = nil
		l.mu.Unlock()
		close(l.done)
	})
}
