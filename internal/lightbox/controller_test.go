package lightbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/photogallery/internal/input"
	"github.com/MeKo-Tech/photogallery/internal/page"
	"github.com/MeKo-Tech/photogallery/internal/schedule"
)

type fixture struct {
	v      *schedule.Virtual
	lock   *page.ScrollLock
	keys   *input.Bus
	c      *Controller
	closed int
}

func newFixture(t *testing.T, count int) *fixture {
	t.Helper()
	f := &fixture{
		v:    schedule.NewVirtual(),
		lock: page.NewScrollLock(nil),
		keys: input.NewBus(),
	}
	f.c = New(f.v, f.lock, f.keys, count, Options{
		OnClosed: func() { f.closed++ },
	})
	return f
}

func (f *fixture) open(t *testing.T, index int) {
	t.Helper()
	require.NoError(t, f.c.Activate(index))
	f.v.Frame()
	require.Equal(t, PhaseOpen, f.c.Phase())
}

func TestController_ActivateOpensOnNextFrame(t *testing.T) {
	f := newFixture(t, 3)

	require.NoError(t, f.c.Activate(1))
	assert.Equal(t, PhaseOpening, f.c.Phase())
	idx, ok := f.c.Index()
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.False(t, f.lock.Locked(), "scroll lock is taken on entering Open")
	assert.Equal(t, 0, f.keys.Len(), "keys are attached only while Open")

	f.v.Frame()
	assert.Equal(t, PhaseOpen, f.c.Phase())
	assert.Equal(t, FocusNext, f.c.Focus())
	assert.True(t, f.lock.Locked())
	assert.Equal(t, 1, f.keys.Len())
	assert.Equal(t, "2 / 3", f.c.Counter())
}

func TestController_SingleImageFocusesContainer(t *testing.T) {
	f := newFixture(t, 1)
	f.open(t, 0)

	assert.Equal(t, FocusContainer, f.c.Focus())
	assert.Empty(t, f.c.Counter())

	f.c.Next()
	f.c.Prev()
	assert.False(t, f.keys.Dispatch(input.KeyArrowRight))
	idx, _ := f.c.Index()
	assert.Equal(t, 0, idx)
}

func TestController_ActivateOutOfRange(t *testing.T) {
	f := newFixture(t, 3)
	assert.ErrorIs(t, f.c.Activate(3), ErrOutOfRange)
	assert.ErrorIs(t, f.c.Activate(-1), ErrOutOfRange)
	assert.Equal(t, PhaseClosed, f.c.Phase())
}

func TestController_NavigationRoundTrip(t *testing.T) {
	for _, count := range []int{2, 3, 7} {
		for start := 0; start < count; start++ {
			f := newFixture(t, count)
			f.open(t, start)

			f.c.Next()
			f.c.Prev()
			idx, _ := f.c.Index()
			assert.Equal(t, start, idx)

			f.c.Prev()
			f.c.Next()
			idx, _ = f.c.Index()
			assert.Equal(t, start, idx)
		}
	}
}

func TestController_ArrowKeysWrap(t *testing.T) {
	f := newFixture(t, 3)
	f.open(t, 0)

	assert.True(t, f.keys.Dispatch(input.KeyArrowLeft))
	idx, _ := f.c.Index()
	assert.Equal(t, 2, idx)

	assert.True(t, f.keys.Dispatch(input.KeyArrowRight))
	assert.True(t, f.keys.Dispatch(input.KeyArrowRight))
	idx, _ = f.c.Index()
	assert.Equal(t, 1, idx)
}

func TestController_NavigationIgnoredOutsideOpen(t *testing.T) {
	f := newFixture(t, 3)
	require.NoError(t, f.c.Activate(0))

	f.c.Next()
	idx, _ := f.c.Index()
	assert.Equal(t, 0, idx, "Opening ignores navigation")
	assert.False(t, f.c.RequestClose())
}

func TestController_CloseAfterExactly320ms(t *testing.T) {
	f := newFixture(t, 3)
	f.open(t, 2)

	assert.True(t, f.keys.Dispatch(input.KeyEscape))
	assert.Equal(t, PhaseClosing, f.c.Phase())
	assert.Equal(t, 0, f.keys.Len(), "keys detach when leaving Open")
	assert.False(t, f.c.RequestClose(), "already closing")

	f.v.Advance(319 * time.Millisecond)
	assert.Equal(t, PhaseClosing, f.c.Phase())
	assert.True(t, f.lock.Locked())
	assert.Equal(t, 0, f.closed)

	f.v.Advance(time.Millisecond)
	assert.Equal(t, PhaseClosed, f.c.Phase())
	assert.False(t, f.lock.Locked())
	assert.Equal(t, 1, f.closed)
	_, ok := f.c.Index()
	assert.False(t, ok)
	assert.Equal(t, 0, f.v.Pending())
}

func TestController_TeardownDuringClosingCancelsTimer(t *testing.T) {
	f := newFixture(t, 3)
	f.open(t, 0)
	f.c.RequestClose()
	f.v.Advance(100 * time.Millisecond)

	f.c.Teardown()
	assert.Equal(t, PhaseClosed, f.c.Phase())
	assert.False(t, f.lock.Locked())
	assert.Equal(t, 0, f.v.Pending())

	f.v.Advance(time.Second)
	assert.Equal(t, 0, f.closed)

	f.c.Teardown()
	assert.ErrorIs(t, f.c.Activate(0), ErrTornDown)
}

func TestController_TeardownWhileOpen(t *testing.T) {
	f := newFixture(t, 3)
	f.open(t, 1)

	f.c.Teardown()
	assert.False(t, f.lock.Locked())
	assert.Equal(t, 0, f.keys.Len())
	assert.False(t, f.keys.Dispatch(input.KeyEscape))
}

func TestController_TeardownBeforeFirstFrame(t *testing.T) {
	f := newFixture(t, 3)
	require.NoError(t, f.c.Activate(1))
	f.c.Teardown()

	f.v.Frames(2)
	assert.Equal(t, PhaseClosed, f.c.Phase())
	assert.False(t, f.lock.Locked())
	assert.Equal(t, 0, f.keys.Len())
}

func TestController_ReactivateKeepsSingleLock(t *testing.T) {
	f := newFixture(t, 4)
	f.open(t, 0)

	require.NoError(t, f.c.Activate(3))
	assert.Equal(t, PhaseOpening, f.c.Phase())
	assert.Equal(t, 1, f.lock.Holders())
	assert.Equal(t, 0, f.keys.Len())

	f.v.Frame()
	assert.Equal(t, 1, f.lock.Holders())
	assert.Equal(t, 1, f.keys.Len())

	f.c.RequestClose()
	require.NoError(t, f.c.Activate(2))
	f.v.Advance(time.Second)
	assert.Equal(t, PhaseOpening, f.c.Phase(), "replaced activation cancels the exit timer")
	f.v.Frame()
	assert.Equal(t, PhaseOpen, f.c.Phase())
	assert.Equal(t, 1, f.lock.Holders())
	assert.Equal(t, 0, f.closed)
}

func TestController_BackdropClosesContentDoesNot(t *testing.T) {
	f := newFixture(t, 2)
	f.open(t, 0)

	f.c.PointerDown(TargetContent)
	assert.Equal(t, PhaseOpen, f.c.Phase())

	f.c.PointerDown(TargetBackdrop)
	assert.Equal(t, PhaseClosing, f.c.Phase())
}

func TestController_ReopenAfterClose(t *testing.T) {
	f := newFixture(t, 2)
	f.open(t, 0)
	f.c.RequestClose()
	f.v.Advance(DefaultExitDuration)
	require.Equal(t, PhaseClosed, f.c.Phase())

	f.open(t, 1)
	assert.Equal(t, 1, f.lock.Holders())
	assert.Equal(t, 1, f.keys.Len())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "closed", PhaseClosed.String())
	assert.Equal(t, "opening", PhaseOpening.String())
	assert.Equal(t, "open", PhaseOpen.String())
	assert.Equal(t, "closing", PhaseClosing.String())
}
