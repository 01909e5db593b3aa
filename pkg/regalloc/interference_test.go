package regalloc

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

// randomBody builds a straight-line function over n virtual registers.
func randomBody(seed int64, n, length int) string {
	rng := rand.New(rand.NewSource(seed))
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "mov v%d:long <- $%d\n", i, i)
	}
	for i := 0; i < length; i++ {
		dst, src := rng.Intn(n)+1, rng.Intn(n)+1
		switch rng.Intn(3) {
		case 0:
			fmt.Fprintf(&sb, "add v%d:long <- v%d:long, v%d:long\n", dst, dst, src)
		case 1:
			fmt.Fprintf(&sb, "mov v%d:long <- v%d:long\n", dst, src)
		default:
			fmt.Fprintf(&sb, "mov [v%d:ptr+8] <- v%d:long\n", n+1, src)
		}
	}
	for i := 1; i <= n+1; i++ {
		fmt.Fprintf(&sb, "push <- v%d:long\n", i)
	}
	return sb.String()
}

func TestInterferenceSymmetry(t *testing.T) {
	m := x86Machine(t)
	for seed := int64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			p := analyzed(t, m, randomBody(seed, 8, 40))
			p.buildGraph()
			for a, ia := range p.intervals {
				for b, ib := range p.intervals {
					if a == b {
						continue
					}
					if ia.Interference.Contains(b) != ib.Interference.Contains(a) {
						t.Errorf("%s and %s disagree on interference", a, b)
					}
					if ia.Interference.Contains(b) != ia.Overlaps(ib) {
						t.Errorf("%s %s and %s %s: interference %v, overlap %v",
							a, ia, b, ib, ia.Interference.Contains(b), ia.Overlaps(ib))
					}
				}
			}
		})
	}
}

func TestNoOverlapSameRegister(t *testing.T) {
	m := x86Machine(t)
	for seed := int64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			p := analyzed(t, m, randomBody(seed, 10, 60))
			p.buildGraph()
			for p.coalesce() {
				p.buildGraph()
			}
			if len(p.pending) != 0 {
				t.Fatalf("unexpected pending spills with %d registers", p.supplier.Count())
			}
			if err := p.color(); err != nil {
				t.Fatal(err)
			}
			for a, ia := range p.intervals {
				for b, ib := range p.intervals {
					if a != b && ia.Overlaps(ib) && ia.Assigned.Intersects(ib.Assigned) {
						t.Errorf("%s %s and %s %s share a register", a, ia, b, ib)
					}
				}
			}
		})
	}
}

func TestPendingSpills(t *testing.T) {
	tests := []struct {
		name        string
		gprs        []string
		wantExcess  []int
		wantMembers []int
	}{
		{"fits", []string{"rax", "rcx", "rdx"}, nil, nil},
		{"one short", []string{"rax", "rcx"}, []int{1}, []int{3}},
		{"two short", []string{"rax"}, []int{1, 2}, []int{2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := analyzed(t, testMachine(t, tt.gprs...), `
				mov v1:long <- $1
				mov v2:long <- $2
				mov v3:long <- $3
				push <- v1:long, v2:long, v3:long
			`)
			p.buildGraph()
			if len(p.pending) != len(tt.wantExcess) {
				t.Fatalf("%d pending spills, want %d", len(p.pending), len(tt.wantExcess))
			}
			for i, ps := range p.pending {
				if ps.excess != tt.wantExcess[i] {
					t.Errorf("pending %d excess %d, want %d", i, ps.excess, tt.wantExcess[i])
				}
				if len(ps.members) != tt.wantMembers[i] {
					t.Errorf("pending %d has members %v", i, ps.members.Sorted())
				}
			}
		})
	}
}

func TestPendingSpillsAroundTemporaries(t *testing.T) {
	tests := []struct {
		name       string
		intervals  map[IntervalID][2]int64
		temps      []IntervalID
		wantExcess []int
		wantSpill  []IntervalID
	}{
		{
			// the reloads never overlap each other
			name:       "disjoint reloads",
			intervals:  map[IntervalID][2]int64{2: {0, 10}, 5: {1, 2}, 6: {4, 5}},
			temps:      []IntervalID{5, 6},
			wantExcess: []int{1, 1},
			wantSpill:  []IntervalID{2},
		},
		{
			name:       "excess capped at spillable members",
			intervals:  map[IntervalID][2]int64{2: {0, 10}, 5: {1, 4}, 6: {2, 3}},
			temps:      []IntervalID{5, 6},
			wantExcess: []int{1, 1},
			wantSpill:  []IntervalID{2},
		},
		{
			name:      "only temporaries",
			intervals: map[IntervalID][2]int64{5: {0, 1}, 6: {1, 2}},
			temps:     []IntervalID{5, 6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := spillPass(t, tt.intervals, tt.temps)
			p.buildGraph()
			var excess []int
			for _, ps := range p.pending {
				excess = append(excess, ps.excess)
			}
			if !reflect.DeepEqual(excess, tt.wantExcess) {
				t.Fatalf("excess = %v, want %v", excess, tt.wantExcess)
			}
			if len(p.pending) == 0 {
				return
			}
			got, err := p.chooseSpills()
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.wantSpill) {
				t.Errorf("chooseSpills() = %v, want %v", got, tt.wantSpill)
			}
		})
	}
}

func TestDegreeCountsFixedNeighbors(t *testing.T) {
	// v1 overlaps both uses of rax, so with one register it cannot stay
	p := analyzed(t, testMachine(t, "rax"), `
		mov v1:long <- $1
		mov rax <- $2
		push <- rax, v1:long
	`)
	p.buildGraph()
	if len(p.pending) != 1 {
		t.Fatalf("%d pending spills, want 1", len(p.pending))
	}
	if got := p.pending[0].members.Sorted(); len(got) != 1 || got[0] != 1 {
		t.Errorf("pending members %v, want only the free v1", got)
	}
}
