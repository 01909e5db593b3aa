package regalloc

import (
	"sort"

	"github.com/raymyers/ralph-ra/pkg/asm"
	"github.com/raymyers/ralph-ra/pkg/ctypes"
)

// chooseSpills picks intervals to demote until every pending spill has at
// least excess of its members chosen. Candidates are taken by how many
// pending spills mention them, then by length, then by id. An interval is
// only taken while it still helps an unsatisfied pending spill.
func (p *pass) chooseSpills() ([]IntervalID, error) {
	tally := make(map[IntervalID]int)
	for _, ps := range p.pending {
		for id := range ps.members {
			tally[p.resolve(id)]++
		}
	}

	var order []IntervalID
	for id := range tally {
		if !p.intervals[id].temp {
			order = append(order, id)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if tally[a] != tally[b] {
			return tally[a] > tally[b]
		}
		if la, lb := p.intervals[a].Len(), p.intervals[b].Len(); la != lb {
			return la > lb
		}
		return a < b
	})

	chosen := NewIDSet()
	var victims []IntervalID
	for _, id := range order {
		if p.satisfied(chosen) {
			break
		}
		if !p.helps(id, chosen) {
			continue
		}
		chosen.Add(id)
		victims = append(victims, id)
	}
	if !p.satisfied(chosen) {
		return nil, p.a.internalf("cannot spill enough %s intervals: %d pending, candidates %v",
			p.supplier.Name, len(p.pending), order)
	}
	return victims, nil
}

// covered counts the members of ps that are in chosen.
func (p *pass) covered(ps pendingSpill, chosen IDSet) int {
	n := 0
	for id := range ps.members {
		if chosen.Contains(p.resolve(id)) {
			n++
		}
	}
	return n
}

func (p *pass) satisfied(chosen IDSet) bool {
	for _, ps := range p.pending {
		if p.covered(ps, chosen) < ps.excess {
			return false
		}
	}
	return true
}

// helps reports whether id belongs to a pending spill still short of
// chosen members.
func (p *pass) helps(id IntervalID, chosen IDSet) bool {
	for _, ps := range p.pending {
		if p.covered(ps, chosen) >= ps.excess {
			continue
		}
		for m := range ps.members {
			if p.resolve(m) == id {
				return true
			}
		}
	}
	return false
}

// spill moves every virtual register of the chosen intervals to a stack
// slot, one slot per interval. Each instruction touching one of them is
// given a fresh temporary, loaded from the slot before the instruction
// when read and stored back after it when written.
func (a *Allocator) spill(p *pass, victims []IntervalID) {
	group := make(map[int64]IntervalID)
	for _, id := range victims {
		for _, m := range p.members(id) {
			if m.Synthetic() {
				continue
			}
			group[int64(m)] = id
			if !a.temps[int64(m)] {
				a.spilled = append(a.spilled, int64(m))
			}
		}
	}

	// the slot holds the widest view of the value seen in the stream
	widest := make(map[IntervalID]ctypes.Type)
	for insn := a.fn.Code.First(); insn != nil; insn = insn.Next() {
		asm.Walk(insn.Operands(), func(op asm.Operand, _ bool) {
			v, ok := op.(asm.VReg)
			if !ok {
				return
			}
			id, ok := group[v.ID]
			if !ok {
				return
			}
			if t, seen := widest[id]; !seen || ctypes.Sizeof(v.Type) > ctypes.Sizeof(t) {
				widest[id] = v.Type
			}
		})
	}
	slots := make(map[int64]asm.VStack, len(group))
	for _, id := range victims {
		slot := asm.VStack{ID: a.fresh(), Type: widest[id]}
		for m, owner := range group {
			if owner == id {
				slots[m] = slot
			}
		}
		a.tracef("spill %s to %s\n", id, slot)
	}

	for insn := a.fn.Code.First(); insn != nil; {
		next := insn.Next()
		if insn.Kind == asm.KindOp {
			a.spillInstruction(insn, slots)
		}
		insn = next
	}
}

func (a *Allocator) spillInstruction(insn *asm.Instruction, slots map[int64]asm.VStack) {
	read := make(map[int64]bool)
	written := make(map[int64]bool)
	asm.Walk(insn.Srcs, func(op asm.Operand, _ bool) {
		if v, ok := op.(asm.VReg); ok {
			if _, spilled := slots[v.ID]; spilled {
				read[v.ID] = true
			}
		}
	})
	// registers inside a destination memory operand are read
	asm.Walk(insn.Dsts, func(op asm.Operand, nested bool) {
		if v, ok := op.(asm.VReg); ok {
			if _, spilled := slots[v.ID]; spilled {
				if nested {
					read[v.ID] = true
				} else {
					written[v.ID] = true
				}
			}
		}
	})
	if len(read) == 0 && len(written) == 0 {
		return
	}

	var ids []int64
	for id := range slots {
		if read[id] || written[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	temps := make(map[int64]int64, len(ids))
	for _, id := range ids {
		t := a.fresh()
		a.temps[t] = true
		temps[id] = t
	}
	replace := func(op asm.Operand) asm.Operand {
		if v, ok := op.(asm.VReg); ok {
			if t, spilled := temps[v.ID]; spilled {
				return asm.VReg{ID: t, Type: v.Type}
			}
		}
		return op
	}
	asm.Rewrite(insn.Srcs, replace)
	asm.Rewrite(insn.Dsts, replace)

	code := a.fn.Code
	for _, id := range ids {
		if read[id] {
			slot := slots[id]
			code.InsertBefore(insn, a.target.Restore(asm.VReg{ID: temps[id], Type: slot.Type}, slot))
		}
	}
	for i := len(ids) - 1; i >= 0; i-- {
		if id := ids[i]; written[id] {
			slot := slots[id]
			code.InsertAfter(insn, a.target.Store(slot, asm.VReg{ID: temps[id], Type: slot.Type}))
		}
	}
}
