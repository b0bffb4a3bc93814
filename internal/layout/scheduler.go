package layout

import (
	"log/slog"
	"time"

	"github.com/MeKo-Tech/photogallery/internal/schedule"
)

// settleFrames is the number of frame boundaries to wait before measuring,
// so the first frame can apply styles and the second can lay them out.
const settleFrames = 2

// Options configures a Scheduler.
type Options struct {
	Base   time.Duration
	Step   time.Duration
	Logger *slog.Logger
}

// Scheduler measures tiles once layout settles and reveals them one by one in
// visual order. Its methods must be called on the scheduler loop.
type Scheduler struct {
	sched schedule.Scheduler
	opts  Options
	run   *schedule.Disposer
}

// NewScheduler creates a layout scheduler. Zero timing options take the defaults.
func NewScheduler(sched schedule.Scheduler, opts Options) *Scheduler {
	if opts.Base <= 0 {
		opts.Base = DefaultRevealBase
	}
	if opts.Step <= 0 {
		opts.Step = DefaultRevealStep
	}
	return &Scheduler{sched: sched, opts: opts}
}

// Delay returns the reveal delay for rank.
func (s *Scheduler) Delay(rank int) time.Duration {
	return s.opts.Base + time.Duration(rank)*s.opts.Step
}

// Run cancels any previous run, waits for layout to settle, then reports the
// visual order through onOrder and calls onReveal(index) for each tile at
// Delay(rank). Each reveal fires at most once per run.
func (s *Scheduler) Run(n int, probe Probe, onOrder func(order []int), onReveal func(index int)) {
	s.Cancel()
	run := schedule.NewDisposer()
	s.run = run

	s.afterFrames(run, settleFrames, func() {
		order, misses := visualOrder(n, probe)
		if len(misses) > 0 {
			s.log().Debug("Tiles not measured, ranking last", "count", len(misses), "indices", misses)
		}
		if onOrder != nil {
			onOrder(order)
		}
		for index, rank := range order {
			run.Add(s.sched.AfterFunc(s.Delay(rank), func() {
				if onReveal != nil {
					onReveal(index)
				}
			}))
		}
		if n > 0 {
			s.log().Debug("Reveal scheduled", "tiles", n, "last", s.Delay(n-1))
		}
	})
}

func (s *Scheduler) afterFrames(run *schedule.Disposer, n int, fn func()) {
	if n <= 0 {
		fn()
		return
	}
	run.Add(s.sched.RequestFrame(func() {
		if run.Disposed() {
			return
		}
		s.afterFrames(run, n-1, fn)
	}))
}

// Cancel stops the current run: pending frames and reveal timers never fire.
func (s *Scheduler) Cancel() {
	if s.run != nil {
		s.run.Dispose()
		s.run = nil
	}
}

// Active reports whether a run has been started and not cancelled.
func (s *Scheduler) Active() bool {
	return s.run != nil
}

func (s *Scheduler) log() *slog.Logger {
	if s.opts.Logger != nil {
		return s.opts.Logger
	}
	return slog.Default()
}
