package regalloc

// pendingSpill records that at least excess of members must leave the
// supplier's registers before it can be colored.
type pendingSpill struct {
	members IDSet
	excess  int
}

// buildGraph recomputes the interference sets of all intervals and the
// pending spills. Two intervals interfere iff their closed ranges overlap.
//
// For a free interval A, S is A plus the neighbors that hold a register
// by the time color reaches A: the fixed ones and the free ones with a
// smaller id. When |S| exceeds the number of registers, the free members
// of S are recorded as a pending spill. Its excess is capped at the
// number of members that are not spill temporaries, since only those can
// be chosen; a set with none of them is not recorded and a later color
// failure is reported instead.
func (p *pass) buildGraph() {
	ids := p.ids()
	for _, id := range ids {
		p.intervals[id].Interference = NewIDSet()
	}
	for i, id := range ids {
		iv := p.intervals[id]
		for _, other := range ids[i+1:] {
			o := p.intervals[other]
			if iv.Overlaps(o) {
				iv.Interference.Add(other)
				o.Interference.Add(id)
			}
		}
	}

	p.pending = nil
	k := p.supplier.Count()
	for _, id := range ids {
		iv := p.intervals[id]
		if iv.Fixed() {
			continue
		}
		group := []IntervalID{id}
		for _, n := range iv.Interference.Sorted() {
			if p.intervals[n].Fixed() || n < id {
				group = append(group, n)
			}
		}
		excess := len(group) - k
		if excess <= 0 {
			continue
		}

		free := NewIDSet()
		spillable := 0
		for _, m := range group {
			member := p.intervals[m]
			if member.Fixed() {
				continue
			}
			free.Add(m)
			if !member.temp {
				spillable++
			}
		}
		if excess = min(excess, spillable); excess > 0 {
			p.pending = append(p.pending, pendingSpill{members: free, excess: excess})
		}
	}
}
