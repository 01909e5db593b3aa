package asm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Printer outputs instruction streams in the listing syntax read by Parse.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new listing printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram outputs every function of prog
func (p *Printer) PrintProgram(prog *Program) {
	for i, fn := range prog.Functions {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.PrintFunction(fn)
	}
}

// PrintFunction outputs one function
func (p *Printer) PrintFunction(fn *Function) {
	fmt.Fprintf(p.w, "%s:\n", fn.Name)
	for insn := fn.Code.First(); insn != nil; insn = insn.Next() {
		fmt.Fprintf(p.w, "\t%s\n", FormatInstruction(insn))
	}
}

// FormatInstruction renders one instruction.
func FormatInstruction(insn *Instruction) string {
	switch insn.Kind {
	case KindSave:
		return ".save " + strconv.FormatInt(insn.SaveID, 10) + joinOperands(" ", insn.Regs)
	case KindRestore:
		return ".restore " + strconv.FormatInt(insn.SaveID, 10)
	case KindPersist:
		return ".persist" + joinOperands(" ", insn.Dsts)
	}

	var sb strings.Builder
	sb.WriteString(insn.Op)
	sb.WriteString(joinOperands(" ", insn.Dsts))
	if len(insn.Srcs) > 0 {
		sb.WriteString(" <-")
		sb.WriteString(joinOperands(" ", insn.Srcs))
	}
	return sb.String()
}

func joinOperands(prefix string, ops []Operand) string {
	if len(ops) == 0 {
		return ""
	}
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return prefix + strings.Join(parts, ", ")
}
