package ctypes

// Storage layout follows the System V x86-64 psABI, section 3.1.2.

// Class groups types by the register file able to hold them.
type Class int

const (
	ClassVoid Class = iota
	ClassInteger
	ClassPointer
	ClassFloat
	ClassAggregate
)

func (c Class) String() string {
	switch c {
	case ClassInteger:
		return "integer"
	case ClassPointer:
		return "pointer"
	case ClassFloat:
		return "float"
	case ClassAggregate:
		return "aggregate"
	}
	return "void"
}

// ParseClass maps a class name back to its Class.
func ParseClass(name string) (Class, bool) {
	for _, c := range []Class{ClassVoid, ClassInteger, ClassPointer, ClassFloat, ClassAggregate} {
		if c.String() == name {
			return c, true
		}
	}
	return ClassVoid, false
}

// ClassOf returns the class of t.
func ClassOf(t Type) Class {
	switch t.(type) {
	case Tint, Tlong:
		return ClassInteger
	case Tpointer:
		return ClassPointer
	case Tfloat:
		return ClassFloat
	case Tarray, Tstruct, Tunion:
		return ClassAggregate
	}
	return ClassVoid
}

// IsScalar reports whether t fits in a single register.
func IsScalar(t Type) bool {
	switch ClassOf(t) {
	case ClassInteger, ClassPointer, ClassFloat:
		return true
	}
	return false
}

// Sizeof returns the size of t in bytes.
func Sizeof(t Type) int64 {
	switch tt := t.(type) {
	case Tint:
		switch tt.Size {
		case I8, IBool:
			return 1
		case I16:
			return 2
		}
		return 4
	case Tlong, Tpointer:
		return 8
	case Tfloat:
		if tt.Size == F32 {
			return 4
		}
		return 8
	case Tarray:
		return Sizeof(tt.Elem) * tt.Size
	case Tstruct:
		var size int64
		for _, f := range tt.Fields {
			size = AlignUp(size, alignof(f.Type, true)) + Sizeof(f.Type)
		}
		return AlignUp(size, Alignof(tt))
	case Tunion:
		var size int64
		for _, f := range tt.Fields {
			size = max(size, Sizeof(f.Type))
		}
		return AlignUp(size, Alignof(tt))
	}
	return 0
}

// Alignof returns the alignment of t in bytes.
func Alignof(t Type) int64 {
	return alignof(t, false)
}

func alignof(t Type, member bool) int64 {
	switch tt := t.(type) {
	case Tarray:
		// Local arrays of 16 bytes or more are 16-byte aligned.
		if !member && Sizeof(tt) >= 16 {
			return 16
		}
		return alignof(tt.Elem, member)
	case Tstruct:
		return maxFieldAlign(tt.Fields)
	case Tunion:
		return maxFieldAlign(tt.Fields)
	case Tvoid:
		return 1
	}
	return Sizeof(t)
}

func maxFieldAlign(fields []Field) int64 {
	align := int64(1)
	for _, f := range fields {
		align = max(align, alignof(f.Type, true))
	}
	return align
}

// AlignUp rounds n up to a multiple of align.
func AlignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		return n + align - r
	}
	return n
}
