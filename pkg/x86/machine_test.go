package x86

import (
	"testing"

	"github.com/raymyers/ralph-ra/pkg/asm"
	"github.com/raymyers/ralph-ra/pkg/ctypes"
)

func newMachine(t *testing.T) (*Machine, *asm.Parser) {
	t.Helper()
	m, err := New()
	if err != nil {
		t.Fatalf("built-in catalog: %v", err)
	}
	return m, asm.NewParser(m.Catalog())
}

func TestBuiltinCatalog(t *testing.T) {
	m, _ := newMachine(t)
	c := m.Catalog()

	if got := c.SupplierFor(ctypes.Long()).Count(); got != 14 {
		t.Errorf("gpr supplies %d registers, want 14", got)
	}
	if got := c.SupplierFor(ctypes.Double()).Count(); got != 16 {
		t.Errorf("sse supplies %d registers, want 16", got)
	}
	for _, name := range []string{"rsp", "rbp"} {
		r, ok := c.Lookup(name)
		if !ok {
			t.Fatalf("%s missing", name)
		}
		for _, s := range c.Suppliers {
			if s.Overlaps(r) {
				t.Errorf("%s is handed out by %s", name, s.Name)
			}
		}
	}
	r12, _ := c.Lookup("r12d")
	if !c.IsCalleeSaved(r12) {
		t.Error("r12d should be callee-saved")
	}
	ah, _ := c.Lookup("ah")
	al, _ := c.Lookup("al")
	if ah.Intersects(al) {
		t.Error("ah and al are disjoint")
	}
	if got := ah.Resized(ctypes.Long()).Name; got != "rax" {
		t.Errorf("ah resized to long = %s", got)
	}
}

func TestIsCopy(t *testing.T) {
	m, p := newMachine(t)
	tests := []struct {
		line string
		want bool
	}{
		{"mov v1:long <- v2:long", true},
		{"mov rax <- v2:long", true},
		{"movsd xmm1 <- xmm0", true},
		{"movq rdi <- rax", true},
		{"mov v1:long <- $1", false},
		{"mov v1:long <- [rsp+8]", false},
		{"mov [v1:ptr] <- v2:long", false},
		{"add v1:long <- v1:long, v2:long", false},
		{"movsx v1:long <- v2:int", false},
		{".persist s1:long", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			insn, err := p.ParseInstruction(tt.line)
			if err != nil {
				t.Fatal(err)
			}
			if got := m.IsCopy(insn); got != tt.want {
				t.Errorf("IsCopy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpillCode(t *testing.T) {
	m, _ := newMachine(t)
	rax, _ := m.Catalog().Lookup("rax")
	xmm0, _ := m.Catalog().Lookup("xmm0")

	tests := []struct {
		typ    ctypes.Type
		reg    asm.Operand
		store  string
		reload string
	}{
		{ctypes.Long(), asm.Reg{Reg: rax}, "mov s7:long <- rax", "mov rax <- s7:long"},
		{ctypes.Int(), asm.VReg{ID: 3, Type: ctypes.Int()}, "mov s7:int <- v3:int", "mov v3:int <- s7:int"},
		{ctypes.Float(), asm.Reg{Reg: xmm0}, "movss s7:float <- xmm0", "movss xmm0 <- s7:float"},
		{ctypes.Double(), asm.Reg{Reg: xmm0}, "movsd s7:double <- xmm0", "movsd xmm0 <- s7:double"},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			slot := asm.VStack{ID: 7, Type: tt.typ}
			if got := asm.FormatInstruction(m.Store(slot, tt.reg)); got != tt.store {
				t.Errorf("Store = %q, want %q", got, tt.store)
			}
			if got := asm.FormatInstruction(m.Restore(tt.reg, slot)); got != tt.reload {
				t.Errorf("Restore = %q, want %q", got, tt.reload)
			}
		})
	}
}

func TestSlotType(t *testing.T) {
	m, _ := newMachine(t)
	tests := []struct {
		reg  string
		want ctypes.Type
	}{
		{"rax", ctypes.Long()},
		{"ecx", ctypes.Long()},
		{"xmm3", ctypes.Double()},
	}
	for _, tt := range tests {
		t.Run(tt.reg, func(t *testing.T) {
			r, ok := m.Catalog().Lookup(tt.reg)
			if !ok {
				t.Fatalf("%s missing", tt.reg)
			}
			if got := m.SlotType(r); !ctypes.Equal(got, tt.want) {
				t.Errorf("SlotType = %s, want %s", got, tt.want)
			}
		})
	}
}
