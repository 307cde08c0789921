// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package llist

import (
	"runtime"
	"sync/atomic"
)

// TicketLock is a FIFO spinlock.  A waiter draws a ticket by incrementing
// tail; the holder of the lock is whoever's ticket equals head, and
// releasing advances head to admit the next ticket in line.  Acquisition
// order is therefore exactly ticket issuance order and no waiter can be
// starved by later arrivals.
//
// The encoding deliberately starts at head=1, tail=0: the first ticket
// drawn is 1, which immediately equals head, so a fresh lock is free.  In
// general the lock is free exactly when head == tail+1 (mod 2^32).
//
// The zero value is NOT a usable lock; construct with NewTicketLock, or
// in-package with TicketLock{head: 1}.  The lock is not reentrant: a
// goroutine that re-acquires a lock it already holds waits for itself
// forever.
type TicketLock struct {
	head uint32 // ticket currently being served
	tail uint32 // last ticket issued
}

// NewTicketLock returns a ready, unheld lock.
func NewTicketLock() *TicketLock {
	return &TicketLock{head: 1, tail: 0}
}

// Spin tuning.  A waiter at distance d from the front burns d*spinUnit
// empty iterations between polls of head, so wake-up probes spread out
// instead of having every waiter hammer the same cache line.  Waiters far
// back in the queue yield their P entirely rather than burn cycles.
const (
	spinUnit   = 100
	spinDirect = 16
)

// pause burns n iterations.  It exists only to put distance between
// consecutive loads of head.
func pause(n uint32) {
	for i := uint32(0); i < n; i++ {
	}
}

// subAbs returns |a-b| on the uint32 ring.
func subAbs(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// Lock draws a ticket and waits until it is served.
func (t *TicketLock) Lock() {
	my := atomic.AddUint32(&t.tail, 1)
	for {
		cur := atomic.LoadUint32(&t.head)
		if cur == my {
			return
		}
		if dist := subAbs(my, cur); dist > spinDirect {
			runtime.Gosched()
		} else {
			pause(dist * spinUnit)
		}
	}
}

// TryLock acquires the lock iff it is currently free, without waiting.
// Drawing the ticket via CAS rather than a blind increment means a failed
// attempt leaves no ticket behind to stall the queue.
func (t *TicketLock) TryLock() bool {
	cur := atomic.LoadUint32(&t.tail)
	if atomic.LoadUint32(&t.head) != cur+1 {
		return false
	}
	return atomic.CompareAndSwapUint32(&t.tail, cur, cur+1)
}

// Unlock admits the next ticket.  Only the holder may call it; the
// increment needs no CAS because at most one goroutine is in the critical
// section.
func (t *TicketLock) Unlock() {
	atomic.AddUint32(&t.head, 1)
}
