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

// harrisNode is a cell of the lock-free list.  next does double duty: its
// low-order bit is the deletion mark, and the remaining bits are the
// successor pointer.  Once the bit is set the word is frozen until the
// node is spliced out.  A tagged word still points into the node it came
// from, and every pool node stays reachable through its block until Free,
// so the collector is never confused by the tag.
type harrisNode struct {
	val  int
	next unsafe.Pointer // *harrisNode | mark bit
}

// The four tag helpers below are the whole mark-bit vocabulary: test,
// set, clear, and clear-then-dereference.
func isMarked(p unsafe.Pointer) bool {
	return uintptr(p)&1 != 0
}

func withMark(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) | 1)
}

func withoutMark(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) &^ 1)
}

func deref(p unsafe.Pointer) *harrisNode {
	return (*harrisNode)(withoutMark(p))
}

// HarrisList is the lock-free flavor of the set.  Removal is split into a
// logical step (marking the victim's next pointer) and a physical step
// (splicing the victim out), so no operation ever waits on another; a
// stalled goroutine can at worst force others to finish its splice for it.
type HarrisList struct {
	head *harrisNode // sentinel, val == intMin, never marked
	tail *harrisNode // sentinel, val == intMax, next is nil forever
	pool *nodePool
}

// NewHarris returns an empty set backed by a pool of the default
// geometry: PoolBlockCount blocks of PoolBlockSize nodes.
func NewHarris() *HarrisList {
	return NewHarrisSize(PoolBlockSize, PoolBlockCount)
}

// NewHarrisSize returns an empty set whose pool holds blockCount blocks
// of blockSize nodes each, bounding the list at blockSize*blockCount
// insertions over its lifetime.
func NewHarrisSize(blockSize, blockCount uint32) *HarrisList {
	if blockSize == 0 || blockCount == 0 {
		panic("llist: pool geometry must be nonzero")
	}
	tail := &harrisNode{val: intMax}
	head := &harrisNode{val: intMin, next: unsafe.Pointer(tail)}
	return &HarrisList{head: head, tail: tail, pool: newNodePool(blockSize, blockCount)}
}

// search returns the window (left, right) for v: right is the first live
// node with val >= v, left is the live node before it, and at some moment
// during the call left.next == right held.  That window is the
// precondition both Add and Remove need for their one-shot CAS.
//
// As a side effect, any run of marked nodes sitting between left and
// right is spliced out with a single CAS on left.next, so every traversal
// pays down deletions that earlier removers left unfinished.
func (l *HarrisList) search(v int) (left, right *harrisNode) {
search:
	for {
		// Pass 1: walk forward from head to the first live node at or
		// past v, remembering the last live node below v.  Marked nodes are skipped without touching left,
		// so left and right may end up non-adjacent.
		left = l.head
		for i := l.head; ; {
			nxt := atomic.LoadPointer(&i.next)
			if !isMarked(nxt) {
				if i.val >= v {
					right = i
					break
				}
				left = i
			}
			i = deref(nxt)
		}

		leftNext := atomic.LoadPointer(&left.next)
		if leftNext == unsafe.Pointer(right) {
			return left, right
		}

		// Pass 2: something sits between left and right.  If any of it is
		// unmarked, a concurrent insert won the window and splicing would
		// unlink a live node; start over.  The walk also starts over if
		// the chain no longer leads to right at all.
		for i := deref(leftNext); i != right; {
			if i == nil {
				continue search
			}
			nxt := atomic.LoadPointer(&i.next)
			if !isMarked(nxt) {
				continue search
			}
			i = deref(nxt)
		}

		// The run is all marked: one CAS splices it out.  A failure means
		// left.next moved under us; start over.
		if atomic.CompareAndSwapPointer(&left.next, withoutMark(leftNext), unsafe.Pointer(right)) {
			return left, right
		}
	}
}

// Contains reports whether v is in the set.
func (l *HarrisList) Contains(v int) bool {
	_, right := l.search(v)
	return right.val == v
}

// Add inserts v and returns true, or returns false if v was already
// present.  The node is drawn from the pool once and reused across
// retries; only its next pointer needs rewiring per attempt.
func (l *HarrisList) Add(v int) bool {
	var n *harrisNode
	for {
		left, right := l.search(v)
		if right.val == v {
			return false
		}

		if n == nil {
			n = l.pool.alloc()
			n.val = v
		}
		atomic.StorePointer(&n.next, unsafe.Pointer(right))

		if atomic.CompareAndSwapPointer(&left.next, unsafe.Pointer(right), unsafe.Pointer(n)) {
			return true
		}
	}
}

// Remove deletes v and returns true, or returns false if v was absent.
// The mark CAS is the whole deletion; the splice afterwards is a courtesy
// and its failure is benign, since any later search finishes the job.
func (l *HarrisList) Remove(v int) bool {
	for {
		left, right := l.search(v)
		if right.val != v {
			return false
		}

		nxt := atomic.LoadPointer(&right.next)
		if isMarked(nxt) {
			continue // someone else is mid-delete on this node
		}
		if atomic.CompareAndSwapPointer(&right.next, nxt, withMark(nxt)) {
			atomic.CompareAndSwapPointer(&left.next, unsafe.Pointer(right), nxt)
			return true
		}
	}
}

// Size counts the live elements between the sentinels, skipping nodes
// whose deletion is marked but not yet spliced.  Meaningful only while no
// other goroutine is mutating the list.
func (l *HarrisList) Size() int {
	size := 0
	for i := deref(atomic.LoadPointer(&l.head.next)); i != l.tail; {
		nxt := atomic.LoadPointer(&i.next)
		if !isMarked(nxt) {
			size++
		}
		i = deref(nxt)
	}
	return size
}

// Free drops every pool block and poisons the list header.  Must not run
// concurrently with any other operation; the list is unusable afterwards.
func (l *HarrisList) Free() {
	l.pool.release()
	l.head, l.tail = nil, nil
}
