package stacking

import (
	"github.com/raymyers/ralph-ra/pkg/ctypes"
	"github.com/raymyers/ralph-ra/pkg/target"
)

const (
	stackAlignment = 16 // System V requires rsp % 16 == 0 at call sites
	pointerSize    = 8
)

// x86-64 frame layout (called function's view):
//
//	+---------------------------+  <- rsp before the call
//	| return address            |
//	| saved rbp                 |  <- rbp
//	| callee-saved registers    |
//	| padding                   |
//	| locals and spill slots    |  [rsp+0 ... rsp+LocalSize-1]
//	+---------------------------+  <- rsp (16-byte aligned)

// FrameLayout describes the concrete stack frame of one function.
type FrameLayout struct {
	CalleeSaved    []target.Reg // pushed after rbp, in this order
	CalleeSaveSize int64        // bytes pushed for CalleeSaved
	LocalSize      int64        // stack allocator high-water mark
	Padding        int64        // bytes inserted to keep rsp aligned
	TotalSize      int64        // amount subtracted from rsp after the pushes
}

// ComputeLayout sizes the frame for stackSize bytes of slots and the given
// callee-saved registers.
func ComputeLayout(stackSize int64, calleeSaved []target.Reg) *FrameLayout {
	layout := &FrameLayout{
		CalleeSaved:    calleeSaved,
		CalleeSaveSize: int64(len(calleeSaved)) * pointerSize,
		LocalSize:      stackSize,
	}

	// return address + saved rbp precede the callee saves
	fixed := 2*pointerSize + layout.CalleeSaveSize
	aligned := ctypes.AlignUp(fixed+layout.LocalSize, stackAlignment)
	layout.TotalSize = aligned - fixed
	layout.Padding = layout.TotalSize - layout.LocalSize
	return layout
}

