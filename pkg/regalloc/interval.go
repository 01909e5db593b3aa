package regalloc

import (
	"fmt"
	"sort"

	"github.com/raymyers/ralph-ra/pkg/target"
)

// IntervalID names a live interval. Non-negative ids are the ids of the
// virtual registers they describe and are assigned upstream. Negative ids
// are minted by the analyzer for uses of physical registers; real virtual
// register ids are never negative.
type IntervalID int64

// Synthetic reports whether id stands for a physical register use.
func (id IntervalID) Synthetic() bool {
	return id < 0
}

func (id IntervalID) String() string {
	if id.Synthetic() {
		return fmt.Sprintf("p%d", -id)
	}
	return fmt.Sprintf("v%d", int64(id))
}

// IDSet is a set of interval ids.
type IDSet map[IntervalID]struct{}

// NewIDSet creates a set holding ids.
func NewIDSet(ids ...IntervalID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IDSet) Add(id IntervalID) {
	s[id] = struct{}{}
}

func (s IDSet) Contains(id IntervalID) bool {
	_, ok := s[id]
	return ok
}

// Copy returns an independent copy of s.
func (s IDSet) Copy() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c.Add(id)
	}
	return c
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []IntervalID {
	ids := make([]IntervalID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []IntervalID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Interval is the closed range of positions [From, To] over which a value
// must stay in one register. An interval with an Assigned register is
// fixed; a free one is colored by the allocator.
type Interval struct {
	From, To     int64
	Interference IDSet
	Assigned     target.Reg

	// temp marks intervals of registers introduced by spilling. They are
	// already as short as they can get and are never chosen for spilling.
	temp bool
}

func newInterval(pos int64) *Interval {
	return &Interval{From: pos, To: pos, Interference: NewIDSet()}
}

// Fixed reports whether the interval already holds a physical register.
func (iv *Interval) Fixed() bool {
	return iv.Assigned.Valid()
}

// Overlaps reports whether the two closed ranges share a position.
func (iv *Interval) Overlaps(o *Interval) bool {
	return iv.From <= o.To && o.From <= iv.To
}

// Len is the number of positions covered.
func (iv *Interval) Len() int64 {
	return iv.To - iv.From + 1
}

func (iv *Interval) extend(pos int64) {
	iv.From = min(iv.From, pos)
	iv.To = max(iv.To, pos)
}

func (iv *Interval) String() string {
	s := fmt.Sprintf("[%d,%d]", iv.From, iv.To)
	if iv.Fixed() {
		s += " " + iv.Assigned.Name
	}
	return s
}
