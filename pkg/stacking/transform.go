package stacking

import (
	"fmt"

	"github.com/raymyers/ralph-ra/pkg/asm"
	"github.com/raymyers/ralph-ra/pkg/target"
)

// InsertFrame wraps an allocated function in its prologue and epilogues.
// The epilogue is placed before every ret. A leaf function that needs no
// stack and saves no registers is left untouched.
func InsertFrame(fn *asm.Function, catalog *target.Catalog, layout *FrameLayout) error {
	if IsLeafFunction(fn) && layout.TotalSize == 0 && len(layout.CalleeSaved) == 0 {
		return nil
	}
	sp, err := frameReg(catalog, StackPointer)
	if err != nil {
		return err
	}
	fp, err := frameReg(catalog, FramePointer)
	if err != nil {
		return err
	}

	code := fn.Code
	first := code.First()
	for _, insn := range GeneratePrologue(layout, sp, fp) {
		if first == nil {
			code.Append(insn)
		} else {
			code.InsertBefore(first, insn)
		}
	}

	for insn := first; insn != nil; insn = insn.Next() {
		if insn.Kind != asm.KindOp || insn.Op != "ret" {
			continue
		}
		for _, e := range GenerateEpilogue(layout, sp, fp) {
			code.InsertBefore(insn, e)
		}
	}
	return nil
}

func frameReg(catalog *target.Catalog, name string) (target.Reg, error) {
	r, ok := catalog.Lookup(name)
	if !ok {
		return target.Reg{}, fmt.Errorf("stacking: catalog %q has no %s register", catalog.Name, name)
	}
	return r.Group.Views[0], nil
}
