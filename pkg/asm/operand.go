// Package asm defines the instruction stream handed to register allocation:
// target instructions whose operands may still name virtual registers and
// virtual stack slots. Allocation rewrites the stream in place until only
// physical registers and frame offsets remain.
package asm

import (
	"fmt"
	"strconv"

	"github.com/raymyers/ralph-ra/pkg/ctypes"
	"github.com/raymyers/ralph-ra/pkg/target"
)

// Operand is a closed sum type. Every switch over operands must handle all
// of VReg, VStack, Reg, Imm, Sym, Mem and Frame.
type Operand interface {
	implOperand()
	String() string
}

// VReg is a virtual register. Ids are non-negative.
type VReg struct {
	ID   int64
	Type ctypes.Type
}

// VStack is a virtual stack slot, resolved to a Frame offset after allocation.
type VStack struct {
	ID   int64
	Type ctypes.Type
}

// Reg is a physical register operand.
type Reg struct {
	Reg target.Reg
}

// Imm is an immediate constant.
type Imm struct {
	Value int64
}

// Sym references a global symbol or label.
type Sym struct {
	Name string
}

// Mem is a memory operand: [Base + Index*Scale + Disp].
// Base and Index are nested operands and may be nil.
type Mem struct {
	Base  Operand
	Index Operand
	Scale int64
	Disp  int64
}

// Frame is a resolved stack location, Offset bytes into the frame.
type Frame struct {
	Offset int64
	Type   ctypes.Type
}

func (VReg) implOperand()   {}
func (VStack) implOperand() {}
func (Reg) implOperand()    {}
func (Imm) implOperand()    {}
func (Sym) implOperand()    {}
func (Mem) implOperand()    {}
func (Frame) implOperand()  {}

func (v VReg) String() string   { return fmt.Sprintf("v%d:%s", v.ID, v.Type) }
func (v VStack) String() string { return fmt.Sprintf("s%d:%s", v.ID, v.Type) }
func (r Reg) String() string    { return r.Reg.Name }
func (i Imm) String() string    { return "$" + strconv.FormatInt(i.Value, 10) }
func (s Sym) String() string    { return "@" + s.Name }
func (f Frame) String() string  { return fmt.Sprintf("[sp+%d]", f.Offset) }

func (m Mem) String() string {
	s := "["
	sep := ""
	if m.Base != nil {
		s += m.Base.String()
		sep = "+"
	}
	if m.Index != nil {
		s += sep + m.Index.String()
		if m.Scale > 1 {
			s += "*" + strconv.FormatInt(m.Scale, 10)
		}
		sep = "+"
	}
	switch {
	case m.Disp < 0:
		s += strconv.FormatInt(m.Disp, 10)
	case m.Disp > 0 || sep == "":
		s += sep + strconv.FormatInt(m.Disp, 10)
	}
	return s + "]"
}

// Nested returns the operands contained in op, or nil.
func Nested(op Operand) []Operand {
	switch o := op.(type) {
	case Mem:
		var nested []Operand
		if o.Base != nil {
			nested = append(nested, o.Base)
		}
		if o.Index != nil {
			nested = append(nested, o.Index)
		}
		return nested
	case VReg, VStack, Reg, Imm, Sym, Frame:
		return nil
	default:
		panic(fmt.Sprintf("asm: unhandled operand %T", op))
	}
}

// Walk calls fn for every operand in ops, descending into nested operands.
// nested is true for operands found inside a composite operand.
func Walk(ops []Operand, fn func(op Operand, nested bool)) {
	for _, op := range ops {
		walk(op, false, fn)
	}
}

func walk(op Operand, nested bool, fn func(Operand, bool)) {
	if op == nil {
		return
	}
	fn(op, nested)
	for _, inner := range Nested(op) {
		walk(inner, true, fn)
	}
}

// Rewrite replaces every operand in ops, nested ones included, with the
// result of fn. Composite operands are rebuilt from their rewritten parts
// before fn sees them.
func Rewrite(ops []Operand, fn func(Operand) Operand) {
	for i, op := range ops {
		ops[i] = rewrite(op, fn)
	}
}

func rewrite(op Operand, fn func(Operand) Operand) Operand {
	switch o := op.(type) {
	case nil:
		return nil
	case Mem:
		o.Base = rewrite(o.Base, fn)
		o.Index = rewrite(o.Index, fn)
		return fn(o)
	case VReg, VStack, Reg, Imm, Sym, Frame:
		return fn(o)
	default:
		panic(fmt.Sprintf("asm: unhandled operand %T", op))
	}
}
