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
	"sync/atomic"
	"unsafe"
)

// lockedNode is a list cell carrying its own ticket lock.  val never
// changes after the node is linked in; next is written only while the
// node's lock is held, but is read by lock-free traversals, hence the
// atomic accessors.
type lockedNode struct {
	val  int
	next unsafe.Pointer // *lockedNode
	lock TicketLock
}

func (n *lockedNode) loadNext() *lockedNode {
	return (*lockedNode)(atomic.LoadPointer(&n.next))
}

func (n *lockedNode) storeNext(to *lockedNode) {
	atomic.StorePointer(&n.next, unsafe.Pointer(to))
}

func newLockedNode(v int, next *lockedNode) *lockedNode {
	n := &lockedNode{val: v, lock: TicketLock{head: 1}}
	n.storeNext(next)
	return n
}

// LockedList is the fine-grained locking flavor of the set.  Mutators walk
// the list hand-over-hand: the lock on a node is taken before the lock on
// its predecessor is dropped, so the window being mutated is always pinned
// by at least one held lock.  Since every mutator acquires locks in list
// order, no acquisition cycle can form.
type LockedList struct {
	head *lockedNode // sentinel, val == intMin
	tail *lockedNode // sentinel, val == intMax
}

// NewLocked returns an empty set.
func NewLocked() *LockedList {
	tail := newLockedNode(intMax, nil)
	head := newLockedNode(intMin, tail)
	return &LockedList{head: head, tail: tail}
}

// Contains reports whether v is in the set.  The walk takes no locks: a
// concurrent unlink is a single pointer store in the predecessor, so the
// worst case is stepping onto a node that was just spliced out, whose val
// and next still read forward into the live list.
func (l *LockedList) Contains(v int) bool {
	cur := l.head.loadNext()
	for cur.val < v {
		cur = cur.loadNext()
	}
	return cur.val == v
}

// Add inserts v and returns true, or returns false if v was already
// present.  Insertion needs only the predecessor's lock: the new node is
// fully built before the single store that publishes it.
func (l *LockedList) Add(v int) bool {
	left := l.head
	left.lock.Lock()

	for left.loadNext().val < v {
		next := left.loadNext()
		next.lock.Lock()
		left.lock.Unlock()
		left = next
	}

	if left.loadNext().val == v {
		left.lock.Unlock()
		return false
	}

	left.storeNext(newLockedNode(v, left.loadNext()))
	left.lock.Unlock()
	return true
}

// Remove deletes v and returns true, or returns false if v was absent.
// Removal holds two locks: the predecessor's, so nobody can insert in
// front of the victim, and the victim's own, so nobody can be mid-mutation
// past it when it is unlinked.
func (l *LockedList) Remove(v int) bool {
	left := l.head
	left.lock.Lock()
	right := left.loadNext()
	right.lock.Lock()

	for right.val < v {
		left.lock.Unlock()
		left = right
		right = right.loadNext()
		right.lock.Lock()
	}

	if right.val != v {
		right.lock.Unlock()
		left.lock.Unlock()
		return false
	}

	left.storeNext(right.loadNext())
	right.lock.Unlock()
	left.lock.Unlock()
	return true
}

// Size counts the elements between the sentinels.  Meaningful only while
// no other goroutine is mutating the list.
func (l *LockedList) Size() int {
	size := 0
	for n := l.head.loadNext(); n != l.tail; n = n.loadNext() {
		size++
	}
	return size
}

// Free severs every link so the nodes can be collected, and poisons the
// list header.  Must not run concurrently with any other operation; the
// list is unusable afterwards.
func (l *LockedList) Free() {
	for n := l.head; n != nil; {
		next := n.loadNext()
		n.storeNext(nil)
		n = next
	}
	l.head, l.tail = nil, nil
}
