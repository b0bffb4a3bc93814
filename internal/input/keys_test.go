package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DispatchMostRecentFirst(t *testing.T) {
	b := NewBus()
	var got []string

	b.Subscribe(func(k Key) bool {
		got = append(got, "first:"+string(k))
		return true
	})
	unsub := b.Subscribe(func(k Key) bool {
		got = append(got, "second:"+string(k))
		return k == KeyEscape
	})

	assert.True(t, b.Dispatch(KeyEscape))
	assert.True(t, b.Dispatch(KeyArrowLeft))
	assert.Equal(t, []string{"second:Escape", "second:ArrowLeft", "first:ArrowLeft"}, got)

	unsub()
	unsub()
	assert.Equal(t, 1, b.Len())
}

func TestBus_NoListeners(t *testing.T) {
	b := NewBus()
	assert.False(t, b.Dispatch(KeyArrowRight))
}

func TestBus_UnsubscribeDuringDispatch(t *testing.T) {
	b := NewBus()
	var unsub func()
	calls := 0
	unsub = b.Subscribe(func(Key) bool {
		calls++
		unsub()
		return true
	})

	b.Dispatch(KeyEscape)
	b.Dispatch(KeyEscape)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Len())
}
