// Package regalloc maps the virtual registers of a function onto the
// physical registers of a target by graph coloring over live intervals.
//
// Each register supplier of the target catalog is allocated separately:
//
//	analyze -> buildGraph -> (coalesce -> buildGraph)* -> color
//
// When the interference graph shows more simultaneously live values than
// the supplier has registers, intervals are spilled to stack slots and the
// supplier's pipeline reruns on the rewritten stream. Afterwards every
// virtual register is replaced by its physical register, caller-save
// pseudo-instructions are expanded and stack slots are given frame offsets.
package regalloc

import (
	"fmt"
	"io"
	"sort"

	"github.com/raymyers/ralph-ra/pkg/asm"
	"github.com/raymyers/ralph-ra/pkg/ctypes"
	"github.com/raymyers/ralph-ra/pkg/stacking"
	"github.com/raymyers/ralph-ra/pkg/target"
)

// Target supplies the machine-specific pieces of allocation.
type Target interface {
	Catalog() *target.Catalog
	// IsCopy reports whether insn copies one register into another.
	IsCopy(insn *asm.Instruction) bool
	// Store builds an instruction writing src to slot.
	Store(slot asm.VStack, src asm.Operand) *asm.Instruction
	// Restore builds an instruction loading slot into dst.
	Restore(dst asm.Operand, slot asm.VStack) *asm.Instruction
	// SlotType is the type of the slot a saved register is stored in.
	SlotType(r target.Reg) ctypes.Type
}

// Options configures diagnostics. Nil writers are disabled.
type Options struct {
	Trace     io.Writer // coalesces, spill decisions and assignments
	Intervals io.Writer // interval table of every pass
	Graph     io.Writer // interference graph of every pass
}

// Allocator allocates one function. It is not safe for concurrent use; a
// Catalog may be shared by allocators running in parallel.
type Allocator struct {
	target  Target
	catalog *target.Catalog
	fn      *asm.Function
	opts    Options

	assigned map[int64]target.Reg // virtual register id -> register
	used     map[target.Reg]bool  // physical registers named by the stream
	temps    map[int64]bool       // registers introduced by spilling
	spilled  []int64
	nextID   int64

	stack *stacking.Allocator
	slots map[int64]int64
}

// Result holds the assignment tables of one function.
type Result struct {
	Registers map[int64]target.Reg // virtual register id -> register
	Slots     map[int64]int64      // stack slot id -> frame offset
	Spilled   []int64              // virtual registers demoted to memory
	StackSize int64                // high-water mark of the slot area

	catalog *target.Catalog
	used    map[target.Reg]bool
}

// AssignedRegisters returns every physical register the function uses,
// assigned or named explicitly, in catalog preference order.
func (r *Result) AssignedRegisters() []target.Reg {
	seen := make(map[target.Reg]bool)
	var regs []target.Reg
	add := func(reg target.Reg) {
		if !seen[reg] {
			seen[reg] = true
			regs = append(regs, reg)
		}
	}
	for _, reg := range r.Registers {
		add(reg)
	}
	for reg := range r.used {
		add(reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		pi, pj := r.catalog.Priority(regs[i]), r.catalog.Priority(regs[j])
		if pi != pj {
			return pi < pj
		}
		return regs[i].Name < regs[j].Name
	})
	return regs
}

// New prepares the allocation of fn. fn is rewritten in place by Run.
func New(t Target, fn *asm.Function, opts Options) *Allocator {
	return &Allocator{
		target:   t,
		catalog:  t.Catalog(),
		fn:       fn,
		opts:     opts,
		assigned: make(map[int64]target.Reg),
		used:     make(map[target.Reg]bool),
		temps:    make(map[int64]bool),
		nextID:   fn.MaxVirtualID() + 1,
		stack:    stacking.NewAllocator(),
		slots:    make(map[int64]int64),
	}
}

// AllocateFunction runs the whole pipeline on fn.
func AllocateFunction(t Target, fn *asm.Function, opts Options) (*Result, error) {
	return New(t, fn, opts).Run()
}

// Run allocates registers supplier by supplier, then rewrites the stream
// and lays out the stack slots.
func (a *Allocator) Run() (*Result, error) {
	for _, s := range a.catalog.Suppliers {
		if err := a.allocateSupplier(s); err != nil {
			return nil, err
		}
	}
	if err := a.rewrite(); err != nil {
		return nil, err
	}
	a.expandSaves()
	if err := a.assignStack(); err != nil {
		return nil, err
	}

	spilled := append([]int64(nil), a.spilled...)
	sort.Slice(spilled, func(i, j int) bool { return spilled[i] < spilled[j] })
	return &Result{
		Registers: a.assigned,
		Slots:     a.slots,
		Spilled:   spilled,
		StackSize: a.stack.StackSize(),
		catalog:   a.catalog,
		used:      a.used,
	}, nil
}

func (a *Allocator) allocateSupplier(s *target.Supplier) error {
	for round := 1; ; round++ {
		p := newPass(a, s)
		p.analyze()
		p.buildGraph()
		for p.coalesce() {
			p.buildGraph()
		}
		p.dump(round)

		if len(p.pending) == 0 {
			return p.color()
		}
		victims, err := p.chooseSpills()
		if err != nil {
			return err
		}
		a.spill(p, victims)
	}
}

// owns reports whether values of type t are allocated from s.
func (a *Allocator) owns(s *target.Supplier, t ctypes.Type) bool {
	return a.catalog.SupplierFor(t) == s
}

// fresh returns an id not used by any virtual register or stack slot.
func (a *Allocator) fresh() int64 {
	id := a.nextID
	a.nextID++
	return id
}

func (a *Allocator) record(id IntervalID, reg target.Reg) {
	if id.Synthetic() {
		a.used[reg] = true
		return
	}
	a.assigned[int64(id)] = reg
	a.tracef("assign %s %s\n", id, reg)
}

func (a *Allocator) tracef(format string, args ...any) {
	if a.opts.Trace != nil {
		fmt.Fprintf(a.opts.Trace, "%s: "+format, append([]any{a.fn.Name}, args...)...)
	}
}
