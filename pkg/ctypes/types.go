// Package ctypes defines the C data types carried by virtual registers and
// virtual stack slots, together with their x86-64 storage layout.
package ctypes

import (
	"strconv"
	"strings"
)

// Type is the interface for all C types
type Type interface {
	implType()
	String() string
}

// Signedness represents signed/unsigned for integer types
type Signedness int

const (
	Signed Signedness = iota
	Unsigned
)

func (s Signedness) String() string {
	if s == Signed {
		return "signed"
	}
	return "unsigned"
}

// IntSize represents the size of integer types narrower than long
type IntSize int

const (
	I8 IntSize = iota
	I16
	I32
	IBool
)

func (s IntSize) String() string {
	names := []string{"i8", "i16", "i32", "ibool"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// FloatSize represents the size of floating-point types
type FloatSize int

const (
	F32 FloatSize = iota
	F64
)

func (s FloatSize) String() string {
	if s == F32 {
		return "f32"
	}
	return "f64"
}

// Tvoid represents the void type
type Tvoid struct{}

// Tint represents char, short, int and _Bool
type Tint struct {
	Size IntSize
	Sign Signedness
}

// Tlong represents the 64-bit long type
type Tlong struct {
	Sign Signedness
}

// Tfloat represents float and double
type Tfloat struct {
	Size FloatSize
}

// Tpointer represents pointer types
type Tpointer struct {
	Elem Type
}

// Tarray represents fixed-size array types
type Tarray struct {
	Elem Type
	Size int64
}

// Tstruct represents struct types
type Tstruct struct {
	Name   string
	Fields []Field
}

// Tunion represents union types
type Tunion struct {
	Name   string
	Fields []Field
}

// Field represents a struct or union field
type Field struct {
	Name string
	Type Type
}

func (Tvoid) implType()    {}
func (Tint) implType()     {}
func (Tlong) implType()    {}
func (Tfloat) implType()   {}
func (Tpointer) implType() {}
func (Tarray) implType()   {}
func (Tstruct) implType()  {}
func (Tunion) implType()   {}

// String methods print the spelling accepted by Parse, so listings
// round-trip through the printer.

func (Tvoid) String() string { return "void" }

func (t Tint) String() string {
	var name string
	switch t.Size {
	case I8:
		name = "char"
	case I16:
		name = "short"
	case IBool:
		return "bool"
	default:
		name = "int"
	}
	if t.Sign == Unsigned {
		return "u" + name
	}
	return name
}

func (t Tlong) String() string {
	if t.Sign == Unsigned {
		return "ulong"
	}
	return "long"
}

func (t Tfloat) String() string {
	if t.Size == F32 {
		return "float"
	}
	return "double"
}

func (Tpointer) String() string { return "ptr" }

func (t Tarray) String() string {
	// C order: the outermost length comes first
	var dims strings.Builder
	var elem Type = t
	for {
		arr, ok := elem.(Tarray)
		if !ok {
			break
		}
		dims.WriteString("[" + strconv.FormatInt(arr.Size, 10) + "]")
		elem = arr.Elem
	}
	if elem == nil {
		return "?" + dims.String()
	}
	return elem.String() + dims.String()
}

func (t Tstruct) String() string {
	return aggregateString("struct", t.Name, t.Fields)
}

func (t Tunion) String() string {
	return aggregateString("union", t.Name, t.Fields)
}

func aggregateString(kind, name string, fields []Field) string {
	if name != "" {
		return kind + " " + name
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Type.String()
	}
	return kind + "{" + strings.Join(parts, ",") + "}"
}

// Common type constructors

// Int returns a signed 32-bit int type
func Int() Type {
	return Tint{Size: I32, Sign: Signed}
}

// UInt returns an unsigned 32-bit int type
func UInt() Type {
	return Tint{Size: I32, Sign: Unsigned}
}

// Char returns a signed char type
func Char() Type {
	return Tint{Size: I8, Sign: Signed}
}

// UChar returns an unsigned char type
func UChar() Type {
	return Tint{Size: I8, Sign: Unsigned}
}

// Short returns a signed short type
func Short() Type {
	return Tint{Size: I16, Sign: Signed}
}

// Bool returns the _Bool type
func Bool() Type {
	return Tint{Size: IBool, Sign: Unsigned}
}

// Long returns a signed long type
func Long() Type {
	return Tlong{Sign: Signed}
}

// ULong returns an unsigned long type
func ULong() Type {
	return Tlong{Sign: Unsigned}
}

// Float returns a float (32-bit) type
func Float() Type {
	return Tfloat{Size: F32}
}

// Double returns a double (64-bit) type
func Double() Type {
	return Tfloat{Size: F64}
}

// Void returns the void type
func Void() Type {
	return Tvoid{}
}

// Pointer returns a pointer to the given type
func Pointer(elem Type) Type {
	return Tpointer{Elem: elem}
}

// Array returns an array type
func Array(elem Type, size int64) Type {
	return Tarray{Elem: elem, Size: size}
}

// Equal checks if two types are equal
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch ta := a.(type) {
	case Tvoid:
		_, ok := b.(Tvoid)
		return ok
	case Tint:
		tb, ok := b.(Tint)
		return ok && ta.Size == tb.Size && ta.Sign == tb.Sign
	case Tlong:
		tb, ok := b.(Tlong)
		return ok && ta.Sign == tb.Sign
	case Tfloat:
		tb, ok := b.(Tfloat)
		return ok && ta.Size == tb.Size
	case Tpointer:
		_, ok := b.(Tpointer)
		return ok
	case Tarray:
		tb, ok := b.(Tarray)
		return ok && ta.Size == tb.Size && Equal(ta.Elem, tb.Elem)
	case Tstruct:
		tb, ok := b.(Tstruct)
		return ok && ta.Name == tb.Name && fieldsEqual(ta.Fields, tb.Fields)
	case Tunion:
		tb, ok := b.(Tunion)
		return ok && ta.Name == tb.Name && fieldsEqual(ta.Fields, tb.Fields)
	}
	return false
}

func fieldsEqual(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}
