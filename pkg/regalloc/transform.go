package regalloc

import (
	"math"
	"sort"

	"github.com/raymyers/ralph-ra/pkg/asm"
	"github.com/raymyers/ralph-ra/pkg/target"
)

// rewrite replaces every virtual register with its physical register,
// resized to the width of the reference, and drops copies that became
// moves of a register onto itself.
func (a *Allocator) rewrite() error {
	var err error
	replace := func(op asm.Operand) asm.Operand {
		v, ok := op.(asm.VReg)
		if !ok {
			return op
		}
		reg, ok := a.assigned[v.ID]
		if !ok {
			if err == nil {
				err = a.internalf("no register assigned to virtual register %d (%s)", v.ID, v.Type)
			}
			return op
		}
		return asm.Reg{Reg: reg.Resized(v.Type)}
	}

	code := a.fn.Code
	for insn := code.First(); insn != nil; {
		next := insn.Next()
		asm.Rewrite(insn.Srcs, replace)
		asm.Rewrite(insn.Dsts, replace)
		if err != nil {
			return err
		}
		if a.redundant(insn) {
			a.tracef("drop %s\n", asm.FormatInstruction(insn))
			code.Remove(insn)
		}
		insn = next
	}
	return nil
}

// redundant reports whether insn copies a register onto the very same
// view of itself. On x86-64 a 32-bit "mov eax <- eax" also clears the
// upper half of rax, so dropping it relies on the copied value never
// being read wider than it was copied. A copy that changes width renders
// as two different views, like "mov rax <- eax", and is kept.
func (a *Allocator) redundant(insn *asm.Instruction) bool {
	if !a.target.IsCopy(insn) || len(insn.Dsts) != 1 || len(insn.Srcs) != 1 {
		return false
	}
	dst, ok := insn.Dsts[0].(asm.Reg)
	if !ok {
		return false
	}
	src, ok := insn.Srcs[0].(asm.Reg)
	return ok && dst == src
}

type savedReg struct {
	reg  asm.Reg
	slot asm.VStack
}

// expandSaves turns each .save into stores of the listed registers that
// the function uses, and the matching .restore into the loads. Registers
// the function never touches need no saving.
func (a *Allocator) expandSaves() {
	var used []target.Reg
	for _, reg := range a.assigned {
		used = append(used, reg)
	}
	for reg := range a.used {
		used = append(used, reg)
	}
	inUse := func(r target.Reg) bool {
		for _, u := range used {
			if u.Intersects(r) {
				return true
			}
		}
		return false
	}

	code := a.fn.Code
	saves := make(map[int64][]savedReg)
	for insn := code.First(); insn != nil; {
		next := insn.Next()
		switch insn.Kind {
		case asm.KindSave:
			var saved []savedReg
			for _, op := range insn.Regs {
				r, ok := op.(asm.Reg)
				if !ok || !inUse(r.Reg) {
					continue
				}
				wide := asm.Reg{Reg: r.Reg.Group.Views[0]}
				slot := asm.VStack{ID: a.fresh(), Type: a.target.SlotType(wide.Reg)}
				code.InsertBefore(insn, a.target.Store(slot, wide))
				saved = append(saved, savedReg{reg: wide, slot: slot})
			}
			saves[insn.SaveID] = saved
			code.Remove(insn)
		case asm.KindRestore:
			for _, s := range saves[insn.SaveID] {
				code.InsertBefore(insn, a.target.Restore(s.reg, s.slot))
			}
			code.Remove(insn)
		}
		insn = next
	}
}

// assignStack gives every stack slot a frame offset. A slot is allocated
// at its first reference and released after its last one, so slots with
// disjoint lifetimes share memory. Slots marked persistent live for the
// whole function.
func (a *Allocator) assignStack() error {
	code := a.fn.Code
	lastUse := make(map[int64]int64)
	var pos int64
	for insn := code.First(); insn != nil; {
		next := insn.Next()
		if insn.Kind == asm.KindPersist {
			asm.Walk(insn.Dsts, func(op asm.Operand, _ bool) {
				if s, ok := op.(asm.VStack); ok {
					lastUse[s.ID] = math.MaxInt64
				}
			})
			code.Remove(insn)
			insn = next
			continue
		}
		asm.Walk(insn.Operands(), func(op asm.Operand, _ bool) {
			if s, ok := op.(asm.VStack); ok {
				if last, seen := lastUse[s.ID]; !seen || last < pos {
					lastUse[s.ID] = pos
				}
			}
		})
		pos++
		insn = next
	}

	dies := make(map[int64][]int64)
	for id, last := range lastUse {
		dies[last] = append(dies[last], id)
	}
	for _, ids := range dies {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	pos = 0
	for insn := code.First(); insn != nil; insn = insn.Next() {
		if err := a.placeSlots(insn.Srcs); err != nil {
			return err
		}
		written := stackIDs(insn.Dsts)
		for _, id := range dies[pos] {
			if written[id] {
				continue
			}
			if err := a.free(id); err != nil {
				return err
			}
		}
		if err := a.placeSlots(insn.Dsts); err != nil {
			return err
		}
		for _, id := range dies[pos] {
			if !written[id] {
				continue
			}
			if err := a.free(id); err != nil {
				return err
			}
		}
		pos++
	}
	return nil
}

func (a *Allocator) placeSlots(ops []asm.Operand) error {
	var err error
	asm.Rewrite(ops, func(op asm.Operand) asm.Operand {
		s, ok := op.(asm.VStack)
		if !ok || err != nil {
			return op
		}
		addr, allocErr := a.stack.AllocateSlot(s.ID, s.Type)
		if allocErr != nil {
			err = a.internalf("stack slot %d: %v", s.ID, allocErr)
			return op
		}
		a.slots[s.ID] = addr
		return asm.Frame{Offset: addr, Type: s.Type}
	})
	return err
}

func (a *Allocator) free(id int64) error {
	if err := a.stack.FreeSlot(id); err != nil {
		return a.internalf("stack slot %d: %v", id, err)
	}
	return nil
}

// stackIDs returns the ids of the stack slots in ops, nested ones included.
func stackIDs(ops []asm.Operand) map[int64]bool {
	ids := make(map[int64]bool)
	asm.Walk(ops, func(op asm.Operand, _ bool) {
		if s, ok := op.(asm.VStack); ok {
			ids[s.ID] = true
		}
	})
	return ids
}
