package ctypes

import (
	"fmt"
	"strconv"
	"strings"
)

var scalarNames = map[string]Type{
	"char":   Char(),
	"uchar":  UChar(),
	"short":  Short(),
	"ushort": Tint{Size: I16, Sign: Unsigned},
	"int":    Int(),
	"uint":   UInt(),
	"bool":   Bool(),
	"long":   Long(),
	"ulong":  ULong(),
	"float":  Float(),
	"double": Double(),
	"ptr":    Pointer(Void()),
	"void":   Void(),
}

// Parse reads a type in the spelling produced by Type.String:
// a scalar name, "struct{T,...}" or "union{T,...}", followed by any
// number of "[N]" array suffixes.
func Parse(s string) (Type, error) {
	s = strings.TrimSpace(s)
	base := s
	var dims []int64
	for strings.HasSuffix(base, "]") {
		open := strings.LastIndex(base, "[")
		if open < 0 {
			return nil, fmt.Errorf("type %q: unbalanced ']'", s)
		}
		n, err := strconv.ParseInt(base[open+1:len(base)-1], 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("type %q: bad array length %q", s, base[open+1:len(base)-1])
		}
		dims = append(dims, n)
		base = base[:open]
	}

	t, err := parseBase(base)
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", s, err)
	}
	// dims were collected right to left, which is the nesting order
	for _, n := range dims {
		t = Array(t, n)
	}
	return t, nil
}

func parseBase(s string) (Type, error) {
	if t, ok := scalarNames[s]; ok {
		return t, nil
	}
	for _, kind := range []string{"struct", "union"} {
		if !strings.HasPrefix(s, kind+"{") || !strings.HasSuffix(s, "}") {
			continue
		}
		var fields []Field
		for i, part := range splitTopLevel(s[len(kind)+1 : len(s)-1]) {
			ft, err := Parse(part)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: "f" + strconv.Itoa(i), Type: ft})
		}
		if kind == "struct" {
			return Tstruct{Fields: fields}, nil
		}
		return Tunion{Fields: fields}, nil
	}
	return nil, fmt.Errorf("unknown type name %q", s)
}

// splitTopLevel splits on commas outside of braces.
func splitTopLevel(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
