package schedule

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Virtual is a deterministic Scheduler driven by hand. Timers fire only when
// Advance moves the clock past them, frames only when Frame is called, and
// posted callbacks only when Drain, Pump or Advance run them. All driving
// methods must be called from a single goroutine.
type Virtual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []virtualTimer
	frames []frameRequest
	posted []func()
	notify chan struct{}
}

type virtualTimer struct {
	due  time.Duration
	seq  uint64
	task *task
	fn   func()
}

// NewVirtual returns a virtual scheduler at time zero.
func NewVirtual() *Virtual {
	return &Virtual{notify: make(chan struct{}, 1)}
}

// Now returns the elapsed virtual time.
func (v *Virtual) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Post queues fn. Safe for use from any goroutine.
func (v *Virtual) Post(fn func()) {
	v.mu.Lock()
	v.posted = append(v.posted, fn)
	v.mu.Unlock()
	select {
	case v.notify <- struct{}{}:
	default:
	}
}

// AfterFunc schedules fn at Now()+d.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Task {
	t := newTask()
	v.mu.Lock()
	v.seq++
	v.timers = append(v.timers, virtualTimer{due: v.now + d, seq: v.seq, task: t, fn: fn})
	v.mu.Unlock()
	return t
}

// RequestFrame queues fn for the next Frame call.
func (v *Virtual) RequestFrame(fn func()) Task {
	t := newTask()
	v.mu.Lock()
	v.frames = append(v.frames, frameRequest{task: t, fn: fn})
	v.mu.Unlock()
	return t
}

// Frame runs one frame boundary. Frames requested during it wait for the next call.
func (v *Virtual) Frame() {
	v.Drain()
	v.mu.Lock()
	batch := v.frames
	v.frames = nil
	v.mu.Unlock()

	for _, fr := range batch {
		fr.task.fire(fr.fn)
	}
}

// Frames runs n frame boundaries.
func (v *Virtual) Frames(n int) {
	for i := 0; i < n; i++ {
		v.Frame()
	}
}

// Advance moves the clock forward by d, firing due timers in time order.
func (v *Virtual) Advance(d time.Duration) {
	v.Drain()
	v.mu.Lock()
	target := v.now + d
	v.mu.Unlock()

	for {
		v.mu.Lock()
		idx := v.nextDue(target)
		if idx < 0 {
			v.now = target
			v.mu.Unlock()
			return
		}
		tm := v.timers[idx]
		v.timers = append(v.timers[:idx], v.timers[idx+1:]...)
		v.now = tm.due
		v.mu.Unlock()

		tm.task.fire(tm.fn)
		v.Drain()
	}
}

func (v *Virtual) nextDue(target time.Duration) int {
	idx := -1
	for i, tm := range v.timers {
		if tm.due > target {
			continue
		}
		if idx < 0 || tm.due < v.timers[idx].due || (tm.due == v.timers[idx].due && tm.seq < v.timers[idx].seq) {
			idx = i
		}
	}
	return idx
}

// Pending returns the number of timers that are neither fired nor cancelled.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, tm := range v.timers {
		if !tm.task.Cancelled() {
			n++
		}
	}
	return n
}

// PendingFrames returns the number of live frame requests.
func (v *Virtual) PendingFrames() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, fr := range v.frames {
		if !fr.task.Cancelled() {
			n++
		}
	}
	return n
}

// Deadlines returns the due times of live timers, earliest first.
func (v *Virtual) Deadlines() []time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []time.Duration
	for _, tm := range v.timers {
		if !tm.task.Cancelled() {
			out = append(out, tm.due)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Drain runs every posted callback without blocking.
func (v *Virtual) Drain() int {
	n := 0
	for {
		v.mu.Lock()
		batch := v.posted
		v.posted = nil
		v.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
		}
		n += len(batch)
	}
}

// Pump waits until at least one callback has been posted, then drains.
func (v *Virtual) Pump(ctx context.Context) error {
	for {
		if v.Drain() > 0 {
			return nil
		}
		select {
		case <-v.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PumpUntil pumps posted callbacks until cond holds or ctx ends.
func (v *Virtual) PumpUntil(ctx context.Context, cond func() bool) error {
	for !cond() {
		if err := v.Pump(ctx); err != nil {
			return err
		}
	}
	return nil
}
