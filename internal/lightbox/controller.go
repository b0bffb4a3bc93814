// Package lightbox implements the full-screen image viewer state machine.
package lightbox

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/photogallery/internal/input"
	"github.com/MeKo-Tech/photogallery/internal/page"
	"github.com/MeKo-Tech/photogallery/internal/schedule"
)

// DefaultExitDuration is the length of the closing transition.
const DefaultExitDuration = 320 * time.Millisecond

var (
	// ErrOutOfRange is returned when activating an index outside the catalog.
	ErrOutOfRange = errors.New("lightbox index out of range")
	// ErrTornDown is returned when activating a controller after Teardown.
	ErrTornDown = errors.New("lightbox torn down")
)

// Phase is the lifecycle state of the lightbox.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseOpening
	PhaseOpen
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseOpening:
		return "opening"
	case PhaseOpen:
		return "open"
	case PhaseClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Focus is the control holding input focus while the lightbox is open.
type Focus int

const (
	FocusNone Focus = iota
	FocusNext
	FocusContainer
)

func (f Focus) String() string {
	switch f {
	case FocusNext:
		return "next"
	case FocusContainer:
		return "container"
	default:
		return "none"
	}
}

// Target is where a pointer press landed.
type Target int

const (
	// TargetBackdrop is the outer dialog surface itself.
	TargetBackdrop Target = iota
	// TargetContent is anything inside it: the image, caption or controls.
	TargetContent
)

// Options configures a Controller.
type Options struct {
	ExitDuration time.Duration
	// OnClosed is called once the closing transition completes.
	OnClosed func()
	// OnChange is called after every observable state change.
	OnChange func()
	Logger   *slog.Logger
}

// Controller drives one lightbox over a catalog of count images. All methods
// must be called on the scheduler loop.
type Controller struct {
	sched schedule.Scheduler
	lock  *page.ScrollLock
	keys  *input.Bus
	count int
	opts  Options

	phase Phase
	index int
	focus Focus

	// activation owns the opening frame, the exit timer and the key listener.
	activation *schedule.Disposer
	detachKeys func()
	handle     *page.Handle
	tornDown   bool
}

// New creates a closed controller. lock and keys may be nil.
func New(sched schedule.Scheduler, lock *page.ScrollLock, keys *input.Bus, count int, opts Options) *Controller {
	if opts.ExitDuration <= 0 {
		opts.ExitDuration = DefaultExitDuration
	}
	return &Controller{
		sched: sched,
		lock:  lock,
		keys:  keys,
		count: count,
		opts:  opts,
	}
}

// Activate opens the lightbox at index. Activating while already active
// replaces the current state in place; the scroll lock stays held.
func (c *Controller) Activate(index int) error {
	if c.tornDown {
		return ErrTornDown
	}
	if index < 0 || index >= c.count {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, index, c.count)
	}

	if c.phase != PhaseClosed {
		c.log().Debug("Replacing active lightbox", "from", c.index, "to", index, "phase", c.phase.String())
	}
	c.resetActivation()

	c.index = index
	c.phase = PhaseOpening
	c.focus = FocusNone

	run := c.activation
	run.Add(c.sched.RequestFrame(func() {
		if run.Disposed() {
			return
		}
		c.enterOpen()
	}))
	c.changed()
	return nil
}

func (c *Controller) enterOpen() {
	c.phase = PhaseOpen
	if c.count > 1 {
		c.focus = FocusNext
	} else {
		c.focus = FocusContainer
	}
	if c.handle == nil && c.lock != nil {
		c.handle = c.lock.Acquire()
	}
	if c.keys != nil {
		c.detachKeys = c.keys.Subscribe(c.handleKey)
		c.activation.Defer(c.unsubscribeKeys)
	}
	c.log().Debug("Lightbox open", "index", c.index, "focus", c.focus.String())
	c.changed()
}

// Next advances to the following image, wrapping around. Only valid while Open.
func (c *Controller) Next() {
	c.step(1)
}

// Prev moves to the preceding image, wrapping around. Only valid while Open.
func (c *Controller) Prev() {
	c.step(-1)
}

func (c *Controller) step(delta int) {
	if c.phase != PhaseOpen || c.count <= 1 {
		return
	}
	c.index = ((c.index+delta)%c.count + c.count) % c.count
	c.changed()
}

// RequestClose starts the closing transition. It reports whether the request
// was accepted, which only happens while Open.
func (c *Controller) RequestClose() bool {
	if c.phase != PhaseOpen {
		return false
	}
	c.phase = PhaseClosing
	c.focus = FocusNone
	c.unsubscribeKeys()

	run := c.activation
	run.Add(c.sched.AfterFunc(c.opts.ExitDuration, func() {
		if run.Disposed() {
			return
		}
		c.finishClose()
	}))
	c.changed()
	return true
}

func (c *Controller) finishClose() {
	c.resetActivation()
	c.releaseLock()
	c.phase = PhaseClosed
	c.log().Debug("Lightbox closed", "index", c.index)
	c.changed()
	if c.opts.OnClosed != nil {
		c.opts.OnClosed()
	}
}

// PointerDown handles a pointer press. Only a press on the backdrop itself closes.
func (c *Controller) PointerDown(target Target) {
	if target == TargetBackdrop {
		c.RequestClose()
	}
}

func (c *Controller) handleKey(k input.Key) bool {
	if c.phase != PhaseOpen {
		return false
	}
	switch k {
	case input.KeyEscape:
		return c.RequestClose()
	case input.KeyArrowRight:
		if c.count > 1 {
			c.Next()
			return true
		}
	case input.KeyArrowLeft:
		if c.count > 1 {
			c.Prev()
			return true
		}
	}
	return false
}

// Teardown destroys the lightbox immediately: pending frames and timers are
// cancelled, keys are detached and the scroll lock is released. It is safe to
// call more than once and OnClosed is not called.
func (c *Controller) Teardown() {
	if c.activation != nil {
		c.activation.Dispose()
		c.activation = nil
	}
	c.unsubscribeKeys()
	c.releaseLock()
	wasActive := c.phase != PhaseClosed
	c.phase = PhaseClosed
	c.focus = FocusNone
	c.tornDown = true
	if wasActive {
		c.changed()
	}
}

func (c *Controller) resetActivation() {
	if c.activation != nil {
		c.activation.Dispose()
	}
	c.unsubscribeKeys()
	c.activation = schedule.NewDisposer()
}

func (c *Controller) unsubscribeKeys() {
	if c.detachKeys != nil {
		c.detachKeys()
		c.detachKeys = nil
	}
}

func (c *Controller) releaseLock() {
	c.handle.Release()
	c.handle = nil
}

func (c *Controller) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.phase }

// Index returns the current image index; ok is false while Closed.
func (c *Controller) Index() (index int, ok bool) {
	return c.index, c.phase != PhaseClosed
}

// Focus returns the focused control.
func (c *Controller) Focus() Focus { return c.focus }

// Count returns the number of images the lightbox navigates.
func (c *Controller) Count() int { return c.count }

// Counter returns the "i / n" position label, or "" for a single image.
func (c *Controller) Counter() string {
	if c.count <= 1 || c.phase == PhaseClosed {
		return ""
	}
	return fmt.Sprintf("%d / %d", c.index+1, c.count)
}

func (c *Controller) log() *slog.Logger {
	if c.opts.Logger != nil {
		return c.opts.Logger
	}
	return slog.Default()
}
