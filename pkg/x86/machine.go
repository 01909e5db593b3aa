// Package x86 supplies the x86-64 hooks the register allocator needs:
// the register catalog, copy recognition and spill code factories.
package x86

import (
	_ "embed"

	"github.com/raymyers/ralph-ra/pkg/asm"
	"github.com/raymyers/ralph-ra/pkg/ctypes"
	"github.com/raymyers/ralph-ra/pkg/target"
)

//go:embed x86_64.yaml
var catalogYAML []byte

// CatalogYAML returns the built-in catalog source.
func CatalogYAML() []byte {
	return catalogYAML
}

// copyOps are register-to-register moves that preserve the value.
var copyOps = map[string]bool{
	"mov":    true,
	"movss":  true,
	"movsd":  true,
	"movaps": true,
	"movq":   true,
}

// Machine implements regalloc.Target for x86-64.
type Machine struct {
	catalog *target.Catalog
}

// New returns a Machine using the built-in System V catalog.
func New() (*Machine, error) {
	catalog, err := target.LoadCatalog(catalogYAML)
	if err != nil {
		return nil, err
	}
	return &Machine{catalog: catalog}, nil
}

// NewWithCatalog returns a Machine allocating from a custom catalog.
func NewWithCatalog(catalog *target.Catalog) *Machine {
	return &Machine{catalog: catalog}
}

func (m *Machine) Catalog() *target.Catalog {
	return m.catalog
}

// IsCopy reports whether insn moves one register into another.
func (m *Machine) IsCopy(insn *asm.Instruction) bool {
	if insn.Kind != asm.KindOp || !copyOps[insn.Op] {
		return false
	}
	if len(insn.Dsts) != 1 || len(insn.Srcs) != 1 {
		return false
	}
	return isRegister(insn.Dsts[0]) && isRegister(insn.Srcs[0])
}

func isRegister(op asm.Operand) bool {
	switch op.(type) {
	case asm.VReg, asm.Reg:
		return true
	}
	return false
}

// Store writes src into slot.
func (m *Machine) Store(slot asm.VStack, src asm.Operand) *asm.Instruction {
	return asm.NewOp(moveFor(slot.Type), []asm.Operand{slot}, []asm.Operand{src})
}

// Restore reads slot into dst.
func (m *Machine) Restore(dst asm.Operand, slot asm.VStack) *asm.Instruction {
	return asm.NewOp(moveFor(slot.Type), []asm.Operand{dst}, []asm.Operand{slot})
}

// SlotType is the type of the stack slot a caller-saved register is saved
// to. Vector registers only ever hold scalar floats here, so their low 8
// bytes suffice.
func (m *Machine) SlotType(r target.Reg) ctypes.Type {
	if r.Size > 8 {
		return ctypes.Double()
	}
	return ctypes.Long()
}

func moveFor(t ctypes.Type) string {
	if f, ok := t.(ctypes.Tfloat); ok {
		if f.Size == ctypes.F32 {
			return "movss"
		}
		return "movsd"
	}
	return "mov"
}
