package asm

import "fmt"

// Kind tags pseudo-instructions the allocator treats structurally.
type Kind int

const (
	// KindOp is an ordinary target instruction.
	KindOp Kind = iota
	// KindSave saves the caller-saved registers in Regs before a call.
	// Registers carrying the call's results must not be listed.
	KindSave
	// KindRestore restores the registers saved by the KindSave with the same SaveID.
	KindRestore
	// KindPersist marks the VStack in Dsts[0] as live for the whole function.
	KindPersist
)

// Instruction is one entry of a Stream. Dsts are written, Srcs are read;
// registers nested in a destination memory operand are reads.
type Instruction struct {
	Op   string
	Dsts []Operand
	Srcs []Operand

	Kind   Kind
	SaveID int64
	Regs   []Operand // physical registers of a KindSave

	prev, next *Instruction
	stream     *Stream
}

// NewOp creates an ordinary instruction.
func NewOp(op string, dsts, srcs []Operand) *Instruction {
	return &Instruction{Op: op, Dsts: dsts, Srcs: srcs}
}

// Next returns the following instruction, or nil at the end of the stream.
func (i *Instruction) Next() *Instruction { return i.next }

// Prev returns the preceding instruction, or nil at the start of the stream.
func (i *Instruction) Prev() *Instruction { return i.prev }

// Operands returns sources followed by destinations.
func (i *Instruction) Operands() []Operand {
	ops := make([]Operand, 0, len(i.Srcs)+len(i.Dsts))
	ops = append(ops, i.Srcs...)
	return append(ops, i.Dsts...)
}

// Stream is a mutable doubly-linked sequence of instructions. Instructions
// are spliced in and out through explicit cursor operations, so callers
// iterate with
//
//	for insn := s.First(); insn != nil; {
//		next := insn.Next()
//		...
//		insn = next
//	}
//
// when they may remove the current instruction.
type Stream struct {
	head, tail *Instruction
	length     int
}

// NewStream builds a stream from insns in order.
func NewStream(insns ...*Instruction) *Stream {
	s := &Stream{}
	for _, insn := range insns {
		s.Append(insn)
	}
	return s
}

// First returns the first instruction, or nil if the stream is empty.
func (s *Stream) First() *Instruction { return s.head }

// Last returns the last instruction, or nil if the stream is empty.
func (s *Stream) Last() *Instruction { return s.tail }

// Len returns the number of instructions.
func (s *Stream) Len() int { return s.length }

// Slice returns the instructions in order.
func (s *Stream) Slice() []*Instruction {
	out := make([]*Instruction, 0, s.length)
	for insn := s.head; insn != nil; insn = insn.next {
		out = append(out, insn)
	}
	return out
}

func (s *Stream) adopt(insn *Instruction) {
	if insn.stream != nil {
		panic(fmt.Sprintf("asm: instruction %q is already linked", insn.Op))
	}
	insn.stream = s
	s.length++
}

func (s *Stream) owns(insn *Instruction) {
	if insn.stream != s {
		panic(fmt.Sprintf("asm: instruction %q is not part of this stream", insn.Op))
	}
}

// Append adds insn at the end.
func (s *Stream) Append(insn *Instruction) {
	s.adopt(insn)
	insn.prev = s.tail
	if s.tail != nil {
		s.tail.next = insn
	} else {
		s.head = insn
	}
	s.tail = insn
}

// InsertBefore links insn immediately before at.
func (s *Stream) InsertBefore(at, insn *Instruction) {
	s.owns(at)
	s.adopt(insn)
	insn.prev = at.prev
	insn.next = at
	if at.prev != nil {
		at.prev.next = insn
	} else {
		s.head = insn
	}
	at.prev = insn
}

// InsertAfter links insn immediately after at.
func (s *Stream) InsertAfter(at, insn *Instruction) {
	s.owns(at)
	s.adopt(insn)
	insn.prev = at
	insn.next = at.next
	if at.next != nil {
		at.next.prev = insn
	} else {
		s.tail = insn
	}
	at.next = insn
}

// Remove unlinks insn. Its Next and Prev are cleared.
func (s *Stream) Remove(insn *Instruction) {
	s.owns(insn)
	if insn.prev != nil {
		insn.prev.next = insn.next
	} else {
		s.head = insn.next
	}
	if insn.next != nil {
		insn.next.prev = insn.prev
	} else {
		s.tail = insn.prev
	}
	insn.prev, insn.next, insn.stream = nil, nil, nil
	s.length--
}

// Function is one allocation unit.
type Function struct {
	Name string
	Code *Stream
}

// MaxVirtualID returns the largest virtual register or stack slot id used
// in fn, or -1 if there is none.
func (fn *Function) MaxVirtualID() int64 {
	maxID := int64(-1)
	for insn := fn.Code.First(); insn != nil; insn = insn.Next() {
		Walk(insn.Operands(), func(op Operand, _ bool) {
			switch o := op.(type) {
			case VReg:
				maxID = max(maxID, o.ID)
			case VStack:
				maxID = max(maxID, o.ID)
			}
		})
	}
	return maxID
}

// Program is a list of functions.
type Program struct {
	Functions []*Function
}
