package regalloc

import (
	"fmt"

	"github.com/raymyers/ralph-ra/pkg/asm"
	"github.com/raymyers/ralph-ra/pkg/target"
)

// pass is the state of one round of allocation for one supplier. It is
// rebuilt from the stream every round and dropped afterwards.
type pass struct {
	a        *Allocator
	supplier *target.Supplier

	intervals map[IntervalID]*Interval
	positions map[*asm.Instruction]int64
	copies    map[int64]bool            // positions of register copies
	coalesced map[IntervalID]IntervalID   // absorbed id -> absorbing id
	pending   []pendingSpill

	generation    map[string]IntervalID // current synthetic id per register name
	nextSynthetic IntervalID
}

func newPass(a *Allocator, s *target.Supplier) *pass {
	return &pass{
		a:          a,
		supplier:   s,
		intervals:  make(map[IntervalID]*Interval),
		positions:  make(map[*asm.Instruction]int64),
		copies:     make(map[int64]bool),
		coalesced:  make(map[IntervalID]IntervalID),
		generation: make(map[string]IntervalID),
	}
}

// analyze numbers the instructions and computes one interval per virtual
// register of the supplier and per generation of each physical register
// overlapping it. Caller-save pseudo-instructions are not numbered.
func (p *pass) analyze() {
	var pos int64
	for insn := p.a.fn.Code.First(); insn != nil; insn = insn.Next() {
		if insn.Kind == asm.KindSave || insn.Kind == asm.KindRestore {
			continue
		}
		p.positions[insn] = pos
		isCopy := p.a.target.IsCopy(insn)
		if isCopy {
			p.copies[pos] = true
		}

		asm.Walk(insn.Srcs, func(op asm.Operand, _ bool) {
			p.touch(op, pos, false)
		})
		// a copy into a physical register starts a new value in it
		asm.Walk(insn.Dsts, func(op asm.Operand, nested bool) {
			p.touch(op, pos, isCopy && !nested)
		})
		pos++
	}
}

func (p *pass) touch(op asm.Operand, pos int64, newGeneration bool) {
	switch o := op.(type) {
	case asm.VReg:
		if !p.a.owns(p.supplier, o.Type) {
			return
		}
		id := IntervalID(o.ID)
		iv := p.interval(id, pos)
		iv.temp = p.a.temps[o.ID]
	case asm.Reg:
		if !p.supplier.Overlaps(o.Reg) {
			return
		}
		id, ok := p.generation[o.Reg.Name]
		if !ok || newGeneration {
			p.nextSynthetic--
			id = p.nextSynthetic
			p.generation[o.Reg.Name] = id
		}
		p.interval(id, pos).Assigned = o.Reg
	case asm.VStack, asm.Imm, asm.Sym, asm.Mem, asm.Frame:
	default:
		panic(fmt.Sprintf("regalloc: unhandled operand %T", op))
	}
}

func (p *pass) interval(id IntervalID, pos int64) *Interval {
	iv, ok := p.intervals[id]
	if !ok {
		iv = newInterval(pos)
		p.intervals[id] = iv
		return iv
	}
	iv.extend(pos)
	return iv
}

// ids returns the live interval ids in ascending order.
func (p *pass) ids() []IntervalID {
	ids := make([]IntervalID, 0, len(p.intervals))
	for id := range p.intervals {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// resolve follows the coalescing chain of id to its representative.
func (p *pass) resolve(id IntervalID) IntervalID {
	for {
		next, ok := p.coalesced[id]
		if !ok {
			return id
		}
		id = next
	}
}

// absorbed returns the coalesced-away ids in ascending order.
func (p *pass) absorbed() []IntervalID {
	ids := make([]IntervalID, 0, len(p.coalesced))
	for id := range p.coalesced {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// members returns id and every id coalesced into it.
func (p *pass) members(id IntervalID) []IntervalID {
	out := []IntervalID{id}
	for _, absorbed := range p.absorbed() {
		if p.resolve(absorbed) == id {
			out = append(out, absorbed)
		}
	}
	sortIDs(out)
	return out
}

func (p *pass) dump(round int) {
	if w := p.a.opts.Intervals; w != nil {
		fmt.Fprintf(w, "%s: intervals %s round %d\n", p.a.fn.Name, p.supplier.Name, round)
		for _, id := range p.ids() {
			fmt.Fprintf(w, "\t%s %s\n", id, p.intervals[id])
		}
		for _, id := range p.absorbed() {
			fmt.Fprintf(w, "\t%s -> %s\n", id, p.coalesced[id])
		}
	}
	if w := p.a.opts.Graph; w != nil {
		fmt.Fprintf(w, "%s: graph %s round %d\n", p.a.fn.Name, p.supplier.Name, round)
		for _, id := range p.ids() {
			fmt.Fprintf(w, "\t%s:", id)
			for _, n := range p.intervals[id].Interference.Sorted() {
				fmt.Fprintf(w, " %s", n)
			}
			fmt.Fprintln(w)
		}
		for _, ps := range p.pending {
			fmt.Fprintf(w, "\tpending %v excess %d\n", ps.members.Sorted(), ps.excess)
		}
	}
}
