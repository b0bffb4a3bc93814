// Package gallery owns one catalog generation at a time and ties preloading,
// reveal ordering, the lightbox and watermark export together for a view.
package gallery

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/MeKo-Tech/photogallery/internal/catalog"
	"github.com/MeKo-Tech/photogallery/internal/input"
	"github.com/MeKo-Tech/photogallery/internal/layout"
	"github.com/MeKo-Tech/photogallery/internal/lightbox"
	"github.com/MeKo-Tech/photogallery/internal/page"
	"github.com/MeKo-Tech/photogallery/internal/preload"
	"github.com/MeKo-Tech/photogallery/internal/schedule"
	"github.com/MeKo-Tech/photogallery/internal/watermark"
	"github.com/MeKo-Tech/photogallery/internal/worker"
)

var (
	// ErrNoImage is returned by Export when no image is shown in the lightbox.
	ErrNoImage = errors.New("no image shown")
	// ErrNoExporter is returned by Export when the gallery has no exporter.
	ErrNoExporter = errors.New("export not configured")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("gallery closed")
)

// DefaultColumns is the layout used when no probe is configured.
var DefaultColumns = layout.Columns{Count: 3, Width: 1200, Gap: 12}

// Exporter produces a watermarked download of an image.
type Exporter interface {
	Export(ctx context.Context, img catalog.Image, owner string, sink watermark.Sink) (string, error)
}

// Options configures a Gallery.
type Options struct {
	Loader preload.Loader
	// Probe returns the layout probe for the settled state. Nil lays the
	// catalog out with DefaultColumns.
	Probe      func(State) layout.Probe
	Exporter   Exporter
	Sink       watermark.Sink
	ScrollLock *page.ScrollLock
	Keys       *input.Bus
	Workers    int
	OnProgress worker.ProgressFunc
	Reveal     layout.Options
	// ExitDuration overrides the lightbox closing transition.
	ExitDuration time.Duration
	Logger       *slog.Logger
	// OnChange is called on the loop after every state change.
	OnChange func()
}

// ExportResult is delivered on the loop once an export finishes.
type ExportResult struct {
	Job  watermark.Job
	Path string
	Err  error
}

// Gallery is the generation owner. All methods must be called on the loop.
type Gallery struct {
	sched    schedule.Scheduler
	opts     Options
	preload  *preload.Coordinator
	layout   *layout.Scheduler
	lightbox *lightbox.Controller
	state    State
	closed   bool
}

// New creates an empty gallery.
func New(sched schedule.Scheduler, opts Options) *Gallery {
	if opts.Loader == nil {
		opts.Loader = preload.StaticLoader{}
	}
	if opts.Reveal.Logger == nil {
		opts.Reveal.Logger = opts.Logger
	}
	return &Gallery{
		sched: sched,
		opts:  opts,
		preload: preload.New(sched, opts.Loader, preload.Options{
			Workers:    opts.Workers,
			OnProgress: opts.OnProgress,
			Logger:     opts.Logger,
		}),
		layout: layout.NewScheduler(sched, opts.Reveal),
	}
}

// SetCatalog replaces the catalog and starts a new generation. Work still in
// flight for the previous generation is cancelled and its late results are
// discarded.
func (g *Gallery) SetCatalog(images []catalog.Image) {
	if g.closed {
		return
	}
	g.preload.Cancel()
	g.layout.Cancel()
	g.teardownLightbox()

	gen := g.state.Generation + 1
	g.state = newState(gen, images)
	g.log().Info("Catalog replaced", "generation", gen, "images", len(images))

	g.preload.Start(g.state.Images, func(res preload.Result) {
		g.settled(gen, res)
	})
	g.changed()
}

func (g *Gallery) settled(gen uint64, res preload.Result) {
	if gen != g.state.Generation {
		return
	}
	g.state.Ready = true
	g.state.Preload = res.Statuses
	g.changed()

	probe := g.probe()
	g.layout.Run(len(g.state.Images), probe,
		func(order []int) {
			if gen != g.state.Generation {
				return
			}
			g.state.Order = order
			g.changed()
		},
		func(index int) {
			if gen != g.state.Generation || g.state.Revealed[index] {
				return
			}
			g.state.Revealed[index] = true
			g.changed()
		},
	)
}

func (g *Gallery) probe() layout.Probe {
	if g.opts.Probe != nil {
		return g.opts.Probe(g.Snapshot())
	}
	return DefaultColumns.Place(g.state.Sized())
}

// Snapshot returns a copy of the current state.
func (g *Gallery) Snapshot() State {
	return g.state.clone()
}

// Open shows the image at index in the lightbox, replacing whatever it shows.
func (g *Gallery) Open(index int) error {
	if g.closed {
		return ErrClosed
	}
	if g.lightbox == nil {
		var lb *lightbox.Controller
		lb = lightbox.New(g.sched, g.opts.ScrollLock, g.opts.Keys, len(g.state.Images), lightbox.Options{
			ExitDuration: g.opts.ExitDuration,
			Logger:       g.opts.Logger,
			OnChange:     g.changed,
			OnClosed: func() {
				if g.lightbox == lb {
					g.lightbox = nil
					g.changed()
				}
			},
		})
		g.lightbox = lb
	}
	return g.lightbox.Activate(index)
}

// Lightbox returns the active lightbox, or nil when none is shown.
func (g *Gallery) Lightbox() *lightbox.Controller {
	return g.lightbox
}

// Current returns the image shown in the lightbox.
func (g *Gallery) Current() (catalog.Image, bool) {
	if g.lightbox == nil {
		return catalog.Image{}, false
	}
	i, ok := g.lightbox.Index()
	if !ok || i >= len(g.state.Images) {
		return catalog.Image{}, false
	}
	return g.state.Images[i], true
}

// Export writes a watermarked copy of the image currently shown. The work runs
// off the loop; done is called on the loop. Export never changes gallery or
// lightbox state.
func (g *Gallery) Export(ctx context.Context, owner string, done func(ExportResult)) error {
	if g.closed {
		return ErrClosed
	}
	if g.opts.Exporter == nil || g.opts.Sink == nil {
		return ErrNoExporter
	}
	img, ok := g.Current()
	if !ok {
		return ErrNoImage
	}

	exporter, sink := g.opts.Exporter, g.opts.Sink
	go func() {
		path, err := exporter.Export(ctx, img, owner, sink)
		g.sched.Post(func() {
			if err != nil {
				g.log().Warn("Export failed", "src", img.Src, "error", err)
			}
			if done != nil {
				done(ExportResult{Job: watermark.Job{Image: img, Owner: owner}, Path: path, Err: err})
			}
		})
	}()
	return nil
}

// Close cancels all work of the current generation and destroys the lightbox.
func (g *Gallery) Close() {
	if g.closed {
		return
	}
	g.closed = true
	g.preload.Cancel()
	g.layout.Cancel()
	g.teardownLightbox()
}

func (g *Gallery) teardownLightbox() {
	if g.lightbox != nil {
		g.lightbox.Teardown()
		g.lightbox = nil
	}
}

func (g *Gallery) changed() {
	if g.opts.OnChange != nil {
		g.opts.OnChange()
	}
}

func (g *Gallery) log() *slog.Logger {
	if g.opts.Logger != nil {
		return g.opts.Logger
	}
	return slog.Default()
}

// State is the view-facing state of one catalog generation.
type State struct {
	Generation uint64
	Images     []catalog.Image
	// Revealed[i] turns true once tile i has been revealed and stays true.
	Revealed []bool
	// Order maps tile index to visual rank; nil until layout has settled.
	Order   []int
	Ready   bool
	Preload []preload.Status
}

func newState(gen uint64, images []catalog.Image) State {
	return State{
		Generation: gen,
		Images:     slices.Clone(images),
		Revealed:   make([]bool, len(images)),
	}
}

func (s State) clone() State {
	s.Images = slices.Clone(s.Images)
	s.Revealed = slices.Clone(s.Revealed)
	s.Order = slices.Clone(s.Order)
	s.Preload = slices.Clone(s.Preload)
	return s
}

// RevealedCount returns how many tiles are revealed.
func (s State) RevealedCount() int {
	n := 0
	for _, r := range s.Revealed {
		if r {
			n++
		}
	}
	return n
}

// Sized returns the images with unknown dimensions filled in from the loaded
// assets, so layout can use natural sizes.
func (s State) Sized() []catalog.Image {
	out := slices.Clone(s.Images)
	for _, st := range s.Preload {
		if st.Index < 0 || st.Index >= len(out) || !st.Loaded {
			continue
		}
		if !out[st.Index].HasSize() && st.Asset.Width > 0 && st.Asset.Height > 0 {
			out[st.Index] = out[st.Index].WithSize(st.Asset.Width, st.Asset.Height)
		}
	}
	return out
}

// Status returns the preload status of tile i, if it has settled.
func (s State) Status(i int) (preload.Status, bool) {
	if i < 0 || i >= len(s.Preload) {
		return preload.Status{}, false
	}
	return s.Preload[i], true
}
