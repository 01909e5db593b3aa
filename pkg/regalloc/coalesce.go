package regalloc

import "github.com/raymyers/ralph-ra/pkg/target"

// coalesce merges at most one pair of intervals joined by a copy. The
// caller rebuilds the graph after every merge and calls again until
// nothing merges.
func (p *pass) coalesce() bool {
	for _, id := range p.ids() {
		if p.tryCoalesce(id) {
			return true
		}
	}
	return false
}

// tryCoalesce absorbs into A a neighbor B that starts at the copy where A
// ends. The merged interval keeps B's register if B is fixed, else A's.
func (p *pass) tryCoalesce(id IntervalID) bool {
	a := p.intervals[id]
	if !p.copies[a.To] {
		return false
	}
	for _, other := range a.Interference.Sorted() {
		b := p.intervals[other]
		if a.To != b.From || a.From == b.From {
			continue
		}
		if a.Fixed() && b.Fixed() && !a.Assigned.Intersects(b.Assigned) {
			continue
		}
		reg := a.Assigned
		if b.Fixed() {
			reg = b.Assigned
		}
		if reg.Valid() && p.conflicts(reg, id, other) {
			continue
		}

		p.coalesced[other] = id
		delete(p.intervals, other)
		a.To = b.To
		a.Assigned = reg
		a.temp = a.temp && b.temp
		p.a.tracef("coalesce %s into %s %s\n", other, id, a)
		return true
	}
	return false
}

// conflicts reports whether reg is held by a fixed neighbor of a or b
// other than a and b themselves.
func (p *pass) conflicts(reg target.Reg, a, b IntervalID) bool {
	for _, id := range []IntervalID{a, b} {
		for n := range p.intervals[id].Interference {
			if n == a || n == b {
				continue
			}
			if o := p.intervals[n]; o.Fixed() && o.Assigned.Intersects(reg) {
				return true
			}
		}
	}
	return false
}
