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

// Package llist implements a concurrent sorted set of integers, backed by a
// singly linked list, in two interchangeable flavors that differ only in how
// they synchronize:
//
// LockedList guards each node with its own ticket lock and mutates the list
// under hand-over-hand locking: a thread walking toward its target always
// holds the lock of the node it stands on before releasing the one behind
// it.  Because every mutator threads the same lock chain front to back,
// lock acquisition order follows list order and no two mutators can ever
// deadlock.  Readers traverse without locks at all; an unlink is a single
// pointer store, so the worst a reader can see is a node that has just been
// spliced out, whose value and forward pointer are still intact.
//
// HarrisList takes the other classic route: no locks anywhere.  A node is
// deleted in two steps.  First the deleter "marks" the node by setting the
// low-order bit of its next pointer, which freezes that pointer and
// logically removes the node in one compare-and-swap.  Second, the node is
// physically spliced out of the list, either by the deleter itself or by
// whichever later traversal happens upon it.  Insertion is a single
// compare-and-swap of the predecessor's next pointer, which fails (and
// retries) if the predecessor was concurrently marked or re-linked.
//
// A node in the lock-free list moves through its life strictly forward:
//
//     ALIVE --CAS marks next--> LOGICALLY DELETED --any traversal splices-->
//     UNLINKED --Free--> reclaimed
//
// Both flavors keep the same shape: values strictly ascend from a head
// sentinel holding the smallest int to a tail sentinel holding the largest,
// so every traversal terminates without bounds checks and every operation
// works on an interior window of the list.  Callers' values must therefore
// lie strictly between the two sentinel values.
//
// Add, Remove and Contains are linearizable on both flavors.  Size is a
// plain traversal and is meaningful only while no other goroutine is
// mutating the list; the same holds for Free.
package llist

// Limits of the key space.  The sentinels own the two extremes.
const (
	intMax = int(^uint(0) >> 1)
	intMin = -intMax - 1
)

// Set is the surface shared by both list flavors.  Add and Remove report
// whether they changed the set.
type Set interface {
	Contains(v int) bool
	Add(v int) bool
	Remove(v int) bool
	Size() int
}

var (
	_ Set = (*LockedList)(nil)
	_ Set = (*HarrisList)(nil)
)
