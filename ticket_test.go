package llist

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketLockInitialEncoding(t *testing.T) {
	l := NewTicketLock()
	assert.Equal(t, uint32(1), l.head, "fresh lock serves ticket 1")
	assert.Equal(t, uint32(0), l.tail, "fresh lock has issued no tickets")
}

func TestTicketLockUncontended(t *testing.T) {
	l := NewTicketLock()
	l.Lock()
	l.Unlock()
	l.Lock()
	l.Unlock()
	assert.Equal(t, l.tail+1, l.head, "released lock returns to the free encoding")
}

func TestTryLock(t *testing.T) {
	l := NewTicketLock()
	assert.True(t, l.TryLock(), "TryLock on a free lock")
	assert.False(t, l.TryLock(), "TryLock on a held lock")
	l.Unlock()
	assert.True(t, l.TryLock(), "TryLock after release")
	l.Unlock()
}

// A failed TryLock must not leave a ticket in the queue; if it did, the
// Lock below would wait forever on a ticket nobody holds.
func TestTryLockLeavesNoGhostTicket(t *testing.T) {
	l := NewTicketLock()
	l.Lock()
	for i := 0; i < 3; i++ {
		assert.False(t, l.TryLock())
	}
	l.Unlock()
	l.Lock()
	l.Unlock()
}

func TestSubAbs(t *testing.T) {
	assert.Equal(t, uint32(0), subAbs(7, 7))
	assert.Equal(t, uint32(3), subAbs(10, 7))
	assert.Equal(t, uint32(3), subAbs(7, 10))
}

func TestTicketLockMutualExclusion(t *testing.T) {
	const goroutines = 8
	const iters = 2000

	l := NewTicketLock()
	counter := 0 // deliberately unsynchronized; the lock is the only guard

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*iters, counter, "every increment happened under the lock")
}

// Waiters are admitted in ticket order.  Tickets are issued in a known
// order by gating each spawn on the previous goroutine having drawn its
// ticket, so the grant order must match the spawn order exactly.
func TestTicketLockFIFO(t *testing.T) {
	const waiters = 6

	l := NewTicketLock()
	l.Lock() // hold the lock so every waiter queues behind us

	var order []int
	for i := 0; i < waiters; i++ {
		i := i
		issued := atomic.LoadUint32(&l.tail)
		go func() {
			l.Lock()
			order = append(order, i)
			l.Unlock()
		}()
		for atomic.LoadUint32(&l.tail) == issued {
			time.Sleep(time.Millisecond)
		}
	}

	l.Unlock()

	// Our drain ticket is behind every waiter's, so one acquisition is
	// enough to know the queue has fully drained.
	l.Lock()
	got := append([]int(nil), order...)
	l.Unlock()

	require.Len(t, got, waiters)
	for i := 0; i < waiters; i++ {
		assert.Equal(t, i, got[i], "ticket %d granted out of order", i)
	}
}
