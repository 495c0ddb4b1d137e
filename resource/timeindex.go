package resource

import (
	"sort"
	"time"
)

// TimeIndex is an ordered sequence of timestamps, ascending within one file.
type TimeIndex []time.Time

// Span returns the first and last timestamps. Both are zero for an empty
// index.
func (ti TimeIndex) Span() (start, end time.Time) {
	if len(ti) == 0 {
		return time.Time{}, time.Time{}
	}
	return ti[0], ti[len(ti)-1]
}

// Overlaps reports whether two time ranges intersect.
func (ti TimeIndex) Overlaps(other TimeIndex) bool {
	if len(ti) == 0 || len(other) == 0 {
		return false
	}
	aStart, aEnd := ti.Span()
	bStart, bEnd := other.Span()
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// Search returns the position of the first timestamp not before t.
func (ti TimeIndex) Search(t time.Time) int {
	return sort.Search(len(ti), func(i int) bool {
		return !ti[i].Before(t)
	})
}

// Subset returns the timestamps selected by sel.
func (ti TimeIndex) Subset(sel Selector) (TimeIndex, error) {
	idx, err := sel.Indices(len(ti))
	if err != nil {
		return nil, err
	}
	out := make(TimeIndex, len(idx))
	for i, j := range idx {
		out[i] = ti[j]
	}
	return out, nil
}

// Equal reports whether two indices hold the same instants.
func (ti TimeIndex) Equal(other TimeIndex) bool {
	if len(ti) != len(other) {
		return false
	}
	for i := range ti {
		if !ti[i].Equal(other[i]) {
			return false
		}
	}
	return true
}
