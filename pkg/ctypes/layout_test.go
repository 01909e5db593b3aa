package ctypes

import "testing"

func TestSizeAndAlignment(t *testing.T) {
	tests := []struct {
		typ   string
		size  int64
		align int64
	}{
		{"char", 1, 1},
		{"bool", 1, 1},
		{"short", 2, 2},
		{"int", 4, 4},
		{"long", 8, 8},
		{"ptr", 8, 8},
		{"float", 4, 4},
		{"double", 8, 8},
		{"char[3]", 3, 1},
		{"int[4]", 16, 16}, // local arrays of 16+ bytes
		{"char[15]", 15, 1},
		{"struct{char,int}", 8, 4},
		{"struct{char,long,char}", 24, 8},
		{"struct{int[4],char}", 20, 4}, // member arrays keep element alignment
		{"union{char[5],int}", 8, 4},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			typ, err := Parse(tt.typ)
			if err != nil {
				t.Fatal(err)
			}
			if got := Sizeof(typ); got != tt.size {
				t.Errorf("Sizeof = %d, want %d", got, tt.size)
			}
			if got := Alignof(typ); got != tt.align {
				t.Errorf("Alignof = %d, want %d", got, tt.align)
			}
		})
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		typ  Type
		want Class
	}{
		{Int(), ClassInteger},
		{ULong(), ClassInteger},
		{Pointer(Int()), ClassPointer},
		{Double(), ClassFloat},
		{Array(Int(), 2), ClassAggregate},
		{Void(), ClassVoid},
	}
	for _, tt := range tests {
		if got := ClassOf(tt.typ); got != tt.want {
			t.Errorf("ClassOf(%v) = %v, want %v", tt.typ, got, tt.want)
		}
		if c, ok := ParseClass(tt.want.String()); !ok || c != tt.want {
			t.Errorf("ParseClass(%q) = %v, %v", tt.want.String(), c, ok)
		}
	}
	if IsScalar(Array(Int(), 1)) {
		t.Error("arrays are not scalar")
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct{ n, align, want int64 }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 4, 12},
		{5, 1, 5},
		{5, 0, 5},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}
