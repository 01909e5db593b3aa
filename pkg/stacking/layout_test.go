package stacking

import (
	"testing"

	"github.com/raymyers/ralph-ra/pkg/target"
)

func TestComputeLayoutEmpty(t *testing.T) {
	layout := ComputeLayout(0, nil)

	if layout.LocalSize != 0 {
		t.Errorf("LocalSize = %d, want 0", layout.LocalSize)
	}
	if layout.CalleeSaveSize != 0 {
		t.Errorf("CalleeSaveSize = %d, want 0", layout.CalleeSaveSize)
	}
	// return address + saved rbp already keep rsp aligned
	if layout.TotalSize != 0 {
		t.Errorf("TotalSize = %d, want 0", layout.TotalSize)
	}
}

func TestComputeLayoutAlignment(t *testing.T) {
	g := &target.Group{Name: "b"}
	rbx := target.Reg{Name: "rbx", Size: 8, Group: g}
	g.Views = []target.Reg{rbx}

	tests := []struct {
		name        string
		stackSize   int64
		calleeSaved []target.Reg
		wantTotal   int64
		wantPadding int64
	}{
		{"locals only", 12, nil, 16, 4},
		{"exact", 32, nil, 32, 0},
		{"one push", 0, []target.Reg{rbx}, 8, 8},
		{"one push with locals", 8, []target.Reg{rbx}, 8, 0},
		{"two pushes", 4, []target.Reg{rbx, rbx}, 16, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := ComputeLayout(tt.stackSize, tt.calleeSaved)
			if layout.TotalSize != tt.wantTotal {
				t.Errorf("TotalSize = %d, want %d", layout.TotalSize, tt.wantTotal)
			}
			if layout.Padding != tt.wantPadding {
				t.Errorf("Padding = %d, want %d", layout.Padding, tt.wantPadding)
			}
			frame := 2*pointerSize + layout.CalleeSaveSize + layout.TotalSize
			if frame%stackAlignment != 0 {
				t.Errorf("frame of %d bytes leaves rsp misaligned", frame)
			}
		})
	}
}
