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

// Default pool geometry for NewHarris.
const (
	PoolBlockSize  = 1_000_000
	PoolBlockCount = 500
)

// nodePool hands out harrisNodes by bumping a shared counter over a
// two-level array: blocks[counter/blockSize][counter%blockSize].  Slots
// are never returned; a logically deleted node stays owned by its block
// until release drops the whole pool.  This trades memory for never
// having to answer the hard question of when a lock-free reader is done
// with a node.
type nodePool struct {
	blocks    []unsafe.Pointer // each entry: nil or *[]harrisNode, written once
	blockSize uint32
	next      uint32 // bumped by every alloc, never decremented
}

func newNodePool(blockSize, blockCount uint32) *nodePool {
	p := &nodePool{
		blocks:    make([]unsafe.Pointer, blockCount),
		blockSize: blockSize,
	}
	// The first block is always needed; install it eagerly.
	first := make([]harrisNode, blockSize)
	atomic.StorePointer(&p.blocks[0], unsafe.Pointer(&first))
	return p
}

// alloc returns a fresh, zeroed slot.  Blocks past the first are
// installed lazily: every claimant of a slot in a missing block races one
// CAS to install it, and the losers abandon their allocation to the
// collector.  Running off the end of the block table panics; the pool
// never grows past its construction-time geometry.
func (p *nodePool) alloc() *harrisNode {
	idx := atomic.AddUint32(&p.next, 1) - 1
	id := idx / p.blockSize
	slot := idx % p.blockSize

	if id >= uint32(len(p.blocks)) {
		panic("llist: node pool exhausted")
	}

	bp := (*[]harrisNode)(atomic.LoadPointer(&p.blocks[id]))
	if bp == nil {
		fresh := make([]harrisNode, p.blockSize)
		atomic.CompareAndSwapPointer(&p.blocks[id], nil, unsafe.Pointer(&fresh))
		bp = (*[]harrisNode)(atomic.LoadPointer(&p.blocks[id]))
	}
	return &(*bp)[slot]
}

// release drops every block and exhausts the counter, so a use-after-free
// fails loudly in alloc instead of resurrecting freed memory.
func (p *nodePool) release() {
	for i := range p.blocks {
		atomic.StorePointer(&p.blocks[i], nil)
	}
	atomic.StoreUint32(&p.next, uint32(len(p.blocks))*p.blockSize)
}
