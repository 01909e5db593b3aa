// Package stacking lays out the stack frame of a function: it hands out
// aligned byte ranges for spilled and memory-resident values, and sizes the
// frame from the high-water mark and the callee-saved registers in use.
package stacking

import (
	"errors"
	"fmt"
	"math"

	"github.com/raymyers/ralph-ra/pkg/ctypes"
)

// ErrNoBlock is returned when no free block can satisfy a request. The block
// list always covers [0, MaxInt64], so this means the list is corrupt or the
// request is absurdly large.
var ErrNoBlock = errors.New("no block found")

// fit classifies how a free block satisfies a request, best last.
type fit int

const (
	fitAllocated fit = iota
	fitTooSmall
	fitPaddingBoth
	fitPaddingSingle
	fitPerfect
)

// block is an address range [start, end] in a list that covers the whole
// address space without gaps. No two adjacent blocks are both free.
type block struct {
	start, end int64
	free       bool
	prev, next *block
}

// satisfies reports how well b fits size bytes aligned to align.
func (b *block) satisfies(size, align int64) fit {
	if !b.free {
		return fitAllocated
	}
	start := ctypes.AlignUp(b.start, align)
	if start < b.start || start > b.end || size-1 > b.end-start {
		return fitTooSmall
	}
	leading := start != b.start
	trailing := start+size-1 != b.end
	switch {
	case !leading && !trailing:
		return fitPerfect
	case leading && trailing:
		return fitPaddingBoth
	}
	return fitPaddingSingle
}

// Block is a snapshot of one entry of the block list.
type Block struct {
	Start, End int64 // End is inclusive
	Free       bool
}

// Allocator is a first-fit/best-fit free-list allocator over one growable
// address range, starting at offset 0.
type Allocator struct {
	head      *block
	stackSize int64
	slots     map[int64]int64 // slot id -> address
}

// NewAllocator returns an allocator with nothing allocated.
func NewAllocator() *Allocator {
	return &Allocator{
		head:  &block{start: 0, end: math.MaxInt64, free: true},
		slots: make(map[int64]int64),
	}
}

// StackSize returns the high-water mark: one past the highest byte ever
// handed out.
func (a *Allocator) StackSize() int64 {
	return a.stackSize
}

// Allocate reserves size bytes aligned to align and returns their offset.
// A perfectly fitting block wins immediately; otherwise the first block
// needing padding on one side only is preferred over one needing both.
func (a *Allocator) Allocate(size, align int64) (int64, error) {
	size = max(size, 1)
	align = max(align, 1)

	var best *block
	bestFit := fitTooSmall
	for b := a.head; b != nil; b = b.next {
		f := b.satisfies(size, align)
		if f <= fitTooSmall {
			continue
		}
		if f > bestFit {
			best, bestFit = b, f
		}
		if f == fitPerfect {
			break
		}
	}
	if best == nil {
		return 0, fmt.Errorf("%w for %d bytes aligned to %d", ErrNoBlock, size, align)
	}

	a.split(best, ctypes.AlignUp(best.start, align), size)
	a.stackSize = max(a.stackSize, best.end+1)
	return best.start, nil
}

// AllocateType reserves room for a value of type t.
func (a *Allocator) AllocateType(t ctypes.Type) (int64, error) {
	return a.Allocate(ctypes.Sizeof(t), ctypes.Alignof(t))
}

// split carves [start, start+size-1] out of the free block b, leaving
// leading alignment padding and trailing size padding as free blocks.
func (a *Allocator) split(b *block, start, size int64) {
	end := start + size - 1
	if start != b.start {
		pad := &block{start: b.start, end: start - 1, free: true, prev: b.prev, next: b}
		if b.prev != nil {
			b.prev.next = pad
		} else {
			a.head = pad
		}
		b.prev = pad
	}
	if end != b.end {
		pad := &block{start: end + 1, end: b.end, free: true, prev: b, next: b.next}
		if b.next != nil {
			b.next.prev = pad
		}
		b.next = pad
	}
	b.start, b.end, b.free = start, end, false
}

// Free releases the allocation starting at address and merges it with free
// neighbours.
func (a *Allocator) Free(address int64) error {
	for b := a.head; b != nil; b = b.next {
		if b.start != address {
			continue
		}
		if b.free {
			return fmt.Errorf("stacking: double free at offset %d", address)
		}
		a.release(b)
		return nil
	}
	return fmt.Errorf("stacking: no allocation at offset %d", address)
}

func (a *Allocator) release(b *block) {
	b.free = true
	if p := b.prev; p != nil && p.free {
		b.start = p.start
		b.prev = p.prev
		if p.prev != nil {
			p.prev.next = b
		} else {
			a.head = b
		}
	}
	if n := b.next; n != nil && n.free {
		b.end = n.end
		b.next = n.next
		if n.next != nil {
			n.next.prev = b
		}
	}
}

// AllocateSlot returns the address of slot id, allocating room for a value
// of type t the first time the slot is seen.
func (a *Allocator) AllocateSlot(id int64, t ctypes.Type) (int64, error) {
	if addr, ok := a.slots[id]; ok {
		return addr, nil
	}
	addr, err := a.AllocateType(t)
	if err != nil {
		return 0, err
	}
	a.slots[id] = addr
	return addr, nil
}

// FreeSlot releases slot id. Unknown slots are ignored.
func (a *Allocator) FreeSlot(id int64) error {
	addr, ok := a.slots[id]
	if !ok {
		return nil
	}
	delete(a.slots, id)
	return a.Free(addr)
}

// Blocks returns a snapshot of the block list in address order.
func (a *Allocator) Blocks() []Block {
	var out []Block
	for b := a.head; b != nil; b = b.next {
		out = append(out, Block{Start: b.start, End: b.end, Free: b.free})
	}
	return out
}
