package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrollLock_RefCounted(t *testing.T) {
	var changes []bool
	l := NewScrollLock(func(locked bool) { changes = append(changes, locked) })

	a := l.Acquire()
	b := l.Acquire()
	assert.True(t, l.Locked())
	assert.Equal(t, 2, l.Holders())

	a.Release()
	assert.True(t, l.Locked())

	b.Release()
	assert.False(t, l.Locked())
	assert.Equal(t, []bool{true, false}, changes)
}

func TestScrollLock_ReleaseIsIdempotent(t *testing.T) {
	l := NewScrollLock(nil)
	a := l.Acquire()
	b := l.Acquire()

	a.Release()
	a.Release()
	assert.Equal(t, 1, l.Holders())

	b.Release()
	assert.Equal(t, 0, l.Holders())

	var nilHandle *Handle
	nilHandle.Release()
}
