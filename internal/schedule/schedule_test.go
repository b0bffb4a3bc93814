package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtual_TimersFireInDueOrder(t *testing.T) {
	v := NewVirtual()
	var got []int

	v.AfterFunc(30*time.Millisecond, func() { got = append(got, 3) })
	v.AfterFunc(10*time.Millisecond, func() { got = append(got, 1) })
	v.AfterFunc(20*time.Millisecond, func() { got = append(got, 2) })

	v.Advance(15 * time.Millisecond)
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 15*time.Millisecond, v.Now())

	v.Advance(100 * time.Millisecond)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, v.Pending())
}

func TestVirtual_TimerScheduledDuringAdvance(t *testing.T) {
	v := NewVirtual()
	var fired []time.Duration

	v.AfterFunc(10*time.Millisecond, func() {
		fired = append(fired, v.Now())
		v.AfterFunc(5*time.Millisecond, func() {
			fired = append(fired, v.Now())
		})
	})

	v.Advance(20 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}, fired)
}

func TestVirtual_CancelledTimerNeverRuns(t *testing.T) {
	v := NewVirtual()
	ran := false
	task := v.AfterFunc(10*time.Millisecond, func() { ran = true })

	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel(), "second cancel reports nothing stopped")

	v.Advance(time.Second)
	assert.False(t, ran)
}

func TestVirtual_FramesRequestedDuringFrameWaitForNext(t *testing.T) {
	v := NewVirtual()
	var steps []string

	v.RequestFrame(func() {
		steps = append(steps, "first")
		v.RequestFrame(func() { steps = append(steps, "second") })
	})

	v.Frame()
	assert.Equal(t, []string{"first"}, steps)
	assert.Equal(t, 1, v.PendingFrames())

	v.Frame()
	assert.Equal(t, []string{"first", "second"}, steps)
}

func TestVirtual_PumpRunsPostedFromOtherGoroutines(t *testing.T) {
	v := NewVirtual()
	var n int

	go v.Post(func() { n++ })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, v.PumpUntil(ctx, func() bool { return n == 1 }))
}

func TestDisposer_CancelsTasksAndRunsCleanups(t *testing.T) {
	v := NewVirtual()
	d := NewDisposer()
	var order []string

	d.Add(v.AfterFunc(10*time.Millisecond, func() { order = append(order, "timer") }))
	d.Add(v.RequestFrame(func() { order = append(order, "frame") }))
	d.Defer(func() { order = append(order, "a") })
	d.Defer(func() { order = append(order, "b") })

	d.Dispose()
	d.Dispose()

	v.Frame()
	v.Advance(time.Second)

	assert.Equal(t, []string{"b", "a"}, order)
	assert.True(t, d.Disposed())
}

func TestDisposer_AddAfterDisposeCancelsImmediately(t *testing.T) {
	v := NewVirtual()
	d := NewDisposer()
	d.Dispose()

	ran := false
	d.Add(v.AfterFunc(time.Millisecond, func() { ran = true }))
	cleaned := false
	d.Defer(func() { cleaned = true })

	v.Advance(time.Second)
	assert.False(t, ran)
	assert.True(t, cleaned)
}

func TestLoop_RunsPostedAndTimers(t *testing.T) {
	l := NewLoop(WithFrameInterval(time.Millisecond))
	defer l.Close()

	done := make(chan string, 3)
	l.Post(func() { done <- "post" })
	l.AfterFunc(5*time.Millisecond, func() { done <- "timer" })
	l.Post(func() {
		l.RequestFrame(func() { done <- "frame" })
	})

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case s := <-done:
			seen[s] = true
		case <-timeout:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
}

func TestLoop_CancelledTimerDoesNotRun(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var ran atomic.Bool
	task := l.AfterFunc(20*time.Millisecond, func() { ran.Store(true) })
	require.True(t, task.Cancel())

	time.Sleep(60 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestLoop_ExternalWaker(t *testing.T) {
	woken := make(chan struct{}, 8)
	l := NewLoop(WithWaker(func() { woken <- struct{}{} }))
	defer l.Close()

	n := 0
	l.Post(func() { n++ })
	l.Post(func() { n++ })

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("waker not called")
	}
	l.RunPending()
	assert.Equal(t, 2, n)
	assert.Len(t, woken, 0, "second post coalesced into the pending wake")
}

func TestLoop_FrameRequestedDuringFrameRunsNextBoundary(t *testing.T) {
	const interval = 20 * time.Millisecond
	l := NewLoop(WithFrameInterval(interval))
	t.Cleanup(l.Close)

	type stamp struct {
		at     time.Time
		nested bool
	}
	first := make(chan stamp, 1)
	second := make(chan time.Time, 1)

	var nestedRan atomic.Bool
	l.RequestFrame(func() {
		l.RequestFrame(func() {
			nestedRan.Store(true)
			second <- time.Now()
		})
		first <- stamp{at: time.Now(), nested: nestedRan.Load()}
	})
	l.RequestFrame(func() {
		assert.False(t, nestedRan.Load(), "nested frame joined the running batch")
	})

	var f stamp
	select {
	case f = <-first:
	case <-time.After(time.Second):
		t.Fatal("first frame never ran")
	}
	assert.False(t, f.nested)

	select {
	case at := <-second:
		assert.GreaterOrEqual(t, at.Sub(f.at), interval/2, "nested frame waited for the next boundary")
	case <-time.After(time.Second):
		t.Fatal("nested frame never ran")
	}
}
