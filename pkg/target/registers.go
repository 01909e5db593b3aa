// Package target describes the physical resources of a machine that the
// register allocator maps virtual registers onto. A Catalog is loaded once
// per target and is read-only afterwards.
package target

import "github.com/raymyers/ralph-ra/pkg/ctypes"

// Group is one piece of hardware storage, e.g. the x86 "a" register that
// rax, eax, ax, ah and al are views of.
type Group struct {
	Name  string
	Views []Reg // widest view first
}

// Reg is a named view of a register group: Size bytes starting at byte
// Offset of the group's storage.
type Reg struct {
	Name   string
	Size   int64
	Offset int64
	Group  *Group
}

// Valid reports whether r names a register. The zero Reg does not.
func (r Reg) Valid() bool {
	return r.Group != nil
}

func (r Reg) String() string {
	if !r.Valid() {
		return "<none>"
	}
	return r.Name
}

// Intersects reports whether r and o denote overlapping hardware storage.
func (r Reg) Intersects(o Reg) bool {
	if !r.Valid() || !o.Valid() || r.Group != o.Group {
		return false
	}
	return r.Offset < o.Offset+o.Size && o.Offset < r.Offset+r.Size
}

// Resized returns the view of the same storage that holds a value of type t:
// the offset-0 view whose size matches. Registers without such a view (e.g.
// vector registers holding a scalar float) are returned unchanged.
func (r Reg) Resized(t ctypes.Type) Reg {
	return r.ResizedTo(ctypes.Sizeof(t))
}

// ResizedTo is Resized for an explicit byte size.
func (r Reg) ResizedTo(size int64) Reg {
	if !r.Valid() || r.Size == size {
		return r
	}
	for _, v := range r.Group.Views {
		if v.Offset == 0 && v.Size == size {
			return v
		}
	}
	return r
}

// Supplier is a pool of interchangeable registers, listed from most to
// least preferred, together with the types it can hold.
type Supplier struct {
	Name      string
	Registers []Reg
	Accepts   func(ctypes.Type) bool
}

// Count returns the number of registers the supplier hands out.
func (s *Supplier) Count() int {
	return len(s.Registers)
}

// Index returns the position of the register intersecting r, or -1.
func (s *Supplier) Index(r Reg) int {
	for i, reg := range s.Registers {
		if reg.Intersects(r) {
			return i
		}
	}
	return -1
}

// Overlaps reports whether r shares storage with any register of s.
func (s *Supplier) Overlaps(r Reg) bool {
	return s.Index(r) >= 0
}

// AcceptClasses builds an Accepts predicate from a list of type classes.
func AcceptClasses(classes ...ctypes.Class) func(ctypes.Type) bool {
	return func(t ctypes.Type) bool {
		c := ctypes.ClassOf(t)
		for _, want := range classes {
			if c == want {
				return true
			}
		}
		return false
	}
}
