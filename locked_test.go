package llist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedKeys collects the values between the sentinels, in list order.
func lockedKeys(l *LockedList) []int {
	var keys []int
	for n := l.head.loadNext(); n != l.tail; n = n.loadNext() {
		keys = append(keys, n.val)
	}
	return keys
}

func TestLockedSentinels(t *testing.T) {
	l := NewLocked()
	assert.Equal(t, intMin, l.head.val)
	assert.Equal(t, intMax, l.tail.val)
	assert.Equal(t, l.tail, l.head.loadNext(), "empty list links head straight to tail")
	assert.Nil(t, l.tail.loadNext(), "tail terminates the list")
}

func TestLockedNodeLockReady(t *testing.T) {
	n := newLockedNode(7, nil)
	// The embedded lock must carry the free encoding from birth.
	n.lock.Lock()
	n.lock.Unlock()
	assert.Equal(t, 7, n.val)
}

func TestLockedInternalOrder(t *testing.T) {
	l := NewLocked()
	require.True(t, l.Add(3))
	require.True(t, l.Add(1))
	require.True(t, l.Add(2))
	assert.Equal(t, 3, l.Size())
	assert.Equal(t, []int{1, 2, 3}, lockedKeys(l))
}

func TestLockedFree(t *testing.T) {
	l := NewLocked()
	l.Add(1)
	l.Add(2)
	l.Free()
	assert.Nil(t, l.head)
	assert.Nil(t, l.tail)
}
