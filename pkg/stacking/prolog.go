package stacking

import (
	"github.com/raymyers/ralph-ra/pkg/asm"
	"github.com/raymyers/ralph-ra/pkg/target"
)

// x86-64 special registers, looked up by name in the target catalog
const (
	StackPointer = "rsp"
	FramePointer = "rbp"
)

// GeneratePrologue generates the function prologue instructions
// x86-64 prologue:
//  1. Save the caller's frame pointer
//  2. Set up the new frame pointer
//  3. Save callee-saved registers
//  4. Allocate locals and padding
func GeneratePrologue(layout *FrameLayout, sp, fp target.Reg) []*asm.Instruction {
	prologue := []*asm.Instruction{
		asm.NewOp("push", nil, []asm.Operand{asm.Reg{Reg: fp}}),
		asm.NewOp("mov", []asm.Operand{asm.Reg{Reg: fp}}, []asm.Operand{asm.Reg{Reg: sp}}),
	}
	for _, r := range layout.CalleeSaved {
		prologue = append(prologue, asm.NewOp("push", nil, []asm.Operand{asm.Reg{Reg: r}}))
	}
	if layout.TotalSize > 0 {
		prologue = append(prologue, asm.NewOp("sub",
			[]asm.Operand{asm.Reg{Reg: sp}},
			[]asm.Operand{asm.Reg{Reg: sp}, asm.Imm{Value: layout.TotalSize}}))
	}
	return prologue
}

// GenerateEpilogue generates the instructions undoing GeneratePrologue.
// The return itself stays in the function body.
func GenerateEpilogue(layout *FrameLayout, sp, fp target.Reg) []*asm.Instruction {
	var epilogue []*asm.Instruction
	if layout.TotalSize > 0 {
		epilogue = append(epilogue, asm.NewOp("add",
			[]asm.Operand{asm.Reg{Reg: sp}},
			[]asm.Operand{asm.Reg{Reg: sp}, asm.Imm{Value: layout.TotalSize}}))
	}
	// Restore callee-saved registers in reverse order
	for i := len(layout.CalleeSaved) - 1; i >= 0; i-- {
		epilogue = append(epilogue, asm.NewOp("pop", []asm.Operand{asm.Reg{Reg: layout.CalleeSaved[i]}}, nil))
	}
	epilogue = append(epilogue, asm.NewOp("pop", []asm.Operand{asm.Reg{Reg: fp}}, nil))
	return epilogue
}

// IsLeafFunction returns true if the function doesn't call other functions
func IsLeafFunction(fn *asm.Function) bool {
	for insn := fn.Code.First(); insn != nil; insn = insn.Next() {
		if insn.Kind == asm.KindOp && insn.Op == "call" {
			return false
		}
	}
	return true
}
