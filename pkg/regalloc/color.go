package regalloc

import "github.com/raymyers/ralph-ra/pkg/target"

// color gives every free interval the first register of the supplier not
// intersecting a register already held by a neighbor, in ascending id
// order, and records the assignment of every interval and of every id
// coalesced into one.
func (p *pass) color() error {
	for _, id := range p.ids() {
		iv := p.intervals[id]
		if !iv.Fixed() {
			reg, ok := p.pick(iv)
			if !ok {
				return p.a.internalf("no %s register left for %s %s", p.supplier.Name, id, iv)
			}
			iv.Assigned = reg
		}
		p.a.record(id, iv.Assigned)
	}
	for _, id := range p.absorbed() {
		p.a.record(id, p.intervals[p.resolve(id)].Assigned)
	}
	return nil
}

func (p *pass) pick(iv *Interval) (target.Reg, bool) {
	for _, candidate := range p.supplier.Registers {
		taken := false
		for n := range iv.Interference {
			if o := p.intervals[n]; o.Fixed() && o.Assigned.Intersects(candidate) {
				taken = true
				break
			}
		}
		if !taken {
			return candidate, true
		}
	}
	return target.Reg{}, false
}
