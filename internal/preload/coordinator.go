// Package preload loads every image of a catalog in parallel and reports once
// all of them have settled.
package preload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/schedule"
	"github.com/MeKo-Tech/photogallery/internal/worker"
)

// DefaultWorkers bounds the number of concurrent loads.
const DefaultWorkers = 6

// Failure records an image that could not be loaded. It never aborts the batch.
type Failure struct {
	Index int
	Src   string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("preload %d (%s): %v", f.Index, f.Src, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Status is the settled outcome of one image.
type Status struct {
	Index   int
	Src     string
	Loaded  bool
	Asset   Asset
	Err     error
	Elapsed time.Duration
}

// Result is delivered once per run after every image has loaded or failed.
type Result struct {
	Statuses []Status
	Loaded   int
	Failed   int
}

// Failures returns the failed statuses as errors, in catalog order.
func (r Result) Failures() []error {
	var errs []error
	for _, s := range r.Statuses {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errs
}

// Options configures a Coordinator.
type Options struct {
	Workers int
	// OnProgress is called on the scheduler loop after each image settles.
	// Calls from a run that has been cancelled or restarted are dropped.
	OnProgress worker.ProgressFunc
	Logger     *slog.Logger
}

// Coordinator runs one preload batch at a time. Its methods must be called on
// the scheduler loop; the settle callback is delivered there too.
type Coordinator struct {
	sched   schedule.Scheduler
	loader  Loader
	opts    Options
	gen     uint64
	cancel  context.CancelFunc
	running bool
}

// New creates a coordinator that loads images through loader.
func New(sched schedule.Scheduler, loader Loader, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Coordinator{
		sched:  sched,
		loader: loader,
		opts:   opts,
	}
}

// Start issues a load for every image and calls onSettle exactly once when all
// have settled. A previous run that has not settled yet is cancelled and its
// onSettle is never called.
func (c *Coordinator) Start(images []catalog.Image, onSettle func(Result)) {
	c.Cancel()
	gen := c.gen
	c.running = true

	if len(images) == 0 {
		c.sched.Post(func() {
			c.settle(gen, Result{}, onSettle)
		})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	tasks := make([]worker.Task[Asset], len(images))
	for i, img := range images {
		tasks[i] = worker.Task[Asset]{
			Index: i,
			Run: func(ctx context.Context) (Asset, error) {
				return c.loader.Load(ctx, img)
			},
		}
	}

	c.log().Debug("Starting preload", "images", len(images), "workers", c.opts.Workers)
	pool := worker.New[Asset](worker.Config{
		Workers:    c.opts.Workers,
		OnProgress: c.progress(gen),
	})

	go func() {
		results := pool.Run(ctx, tasks)
		res := collect(images, results)
		c.sched.Post(func() {
			c.settle(gen, res, onSettle)
		})
	}()
}

// Cancel abandons the current run, if any. Its onSettle will not be called.
func (c *Coordinator) Cancel() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.running {
		c.log().Debug("Preload cancelled")
	}
	c.running = false
	c.gen++
}

// Running reports whether a run is waiting to settle.
func (c *Coordinator) Running() bool {
	return c.running
}

// progress forwards pool progress to the loop, tagged with the run's
// generation.
func (c *Coordinator) progress(gen uint64) worker.ProgressFunc {
	if c.opts.OnProgress == nil {
		return nil
	}
	return func(completed, total, failed int) {
		c.sched.Post(func() {
			if gen != c.gen || !c.running {
				return
			}
			c.opts.OnProgress(completed, total, failed)
		})
	}
}

func (c *Coordinator) settle(gen uint64, res Result, onSettle func(Result)) {
	if gen != c.gen || !c.running {
		return
	}
	c.running = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	for _, s := range res.Statuses {
		if s.Err != nil {
			c.log().Warn("Image failed to load", "index", s.Index, "src", s.Src, "error", s.Err)
		}
	}
	c.log().Info("Preload settled", "loaded", res.Loaded, "failed", res.Failed)

	if onSettle != nil {
		onSettle(res)
	}
}

func (c *Coordinator) log() *slog.Logger {
	if c.opts.Logger != nil {
		return c.opts.Logger
	}
	return slog.Default()
}

func collect(images []catalog.Image, results []worker.Result[Asset]) Result {
	res := Result{Statuses: make([]Status, len(images))}
	for i, img := range images {
		res.Statuses[i] = Status{Index: i, Src: img.Src}
	}
	for _, r := range results {
		s := &res.Statuses[r.Index]
		s.Elapsed = r.Elapsed
		if r.Err != nil {
			s.Err = &Failure{Index: r.Index, Src: s.Src, Err: r.Err}
			res.Failed++
			continue
		}
		s.Loaded = true
		s.Asset = r.Value
		res.Loaded++
	}
	return res
}
