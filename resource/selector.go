package resource

import "fmt"

type selectorKind int

const (
	kindAll selectorKind = iota
	kindIndex
	kindSpan
	kindList
)

// Selector describes a selection along one axis of a dataset: everything, a
// single position, a contiguous (optionally strided) span, or an explicit
// ordered list of positions.
//
// Examples:
//
//	resource.All()          // every row
//	resource.At(10)         // row 10
//	resource.Span(10, 50)   // rows [10, 50)
//	resource.Pick(2, 6, 3)  // rows 2, 6 and 3 in that order
type Selector struct {
	kind        selectorKind
	index       int
	start, stop int
	step        int
	list        []int
}

// All selects every position along the axis.
func All() Selector {
	return Selector{kind: kindAll}
}

// At selects the single position i.
func At(i int) Selector {
	return Selector{kind: kindIndex, index: i}
}

// Span selects the half-open range [start, stop).
func Span(start, stop int) Selector {
	return Selector{kind: kindSpan, start: start, stop: stop, step: 1}
}

// SpanStep selects every step-th position in [start, stop).
func SpanStep(start, stop, step int) Selector {
	return Selector{kind: kindSpan, start: start, stop: stop, step: step}
}

// Pick selects the given positions in the given order.
func Pick(indices ...int) Selector {
	list := make([]int, len(indices))
	copy(list, indices)
	return Selector{kind: kindList, list: list}
}

// IsAll reports whether the selector covers the full axis.
func (s Selector) IsAll() bool {
	return s.kind == kindAll
}

// IsIndex reports whether the selector picks a single position. The second
// return value is that position.
func (s Selector) IsIndex() (int, bool) {
	switch s.kind {
	case kindIndex:
		return s.index, true
	case kindList:
		if len(s.list) == 1 {
			return s.list[0], true
		}
	}
	return 0, false
}

// IsFancy reports whether the selector is a multi-element discontiguous
// list. Only one axis may carry a fancy selection per read.
func (s Selector) IsFancy() bool {
	return s.kind == kindList && len(s.list) > 1
}

// Indices resolves the selector against an axis of length n, returning the
// selected positions in order.
func (s Selector) Indices(n int) ([]int, error) {
	switch s.kind {
	case kindAll:
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx, nil

	case kindIndex:
		if s.index < 0 || s.index >= n {
			return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrSelector, s.index, n)
		}
		return []int{s.index}, nil

	case kindSpan:
		if s.step < 1 {
			return nil, fmt.Errorf("%w: span step must be positive, got %d", ErrSelector, s.step)
		}
		start, stop := s.start, s.stop
		if stop > n {
			stop = n
		}
		if start < 0 || start > n {
			return nil, fmt.Errorf("%w: span start %d out of range [0, %d]", ErrSelector, s.start, n)
		}
		var idx []int
		for i := start; i < stop; i += s.step {
			idx = append(idx, i)
		}
		return idx, nil

	case kindList:
		idx := make([]int, len(s.list))
		for i, v := range s.list {
			if v < 0 || v >= n {
				return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrSelector, v, n)
			}
			idx[i] = v
		}
		return idx, nil
	}
	return nil, fmt.Errorf("%w: unknown selector kind", ErrSelector)
}

// Count returns the number of positions the selector resolves to against an
// axis of length n.
func (s Selector) Count(n int) int {
	idx, err := s.Indices(n)
	if err != nil {
		return 0
	}
	return len(idx)
}

func (s Selector) String() string {
	switch s.kind {
	case kindAll:
		return "all"
	case kindIndex:
		return fmt.Sprintf("index %d", s.index)
	case kindSpan:
		if s.step != 1 {
			return fmt.Sprintf("span [%d:%d:%d]", s.start, s.stop, s.step)
		}
		return fmt.Sprintf("span [%d:%d]", s.start, s.stop)
	case kindList:
		return fmt.Sprintf("list %v", s.list)
	}
	return "invalid"
}

// Key is a normalized dataset indexing expression: the dataset name plus one
// selector per axis (time, sites).
type Key struct {
	Dataset string
	Times   Selector
	Sites   Selector
}

// ParseKey normalizes a raw indexing expression into a Key. At most two axis
// selectors may be given; a missing selector defaults to the full axis.
// Multi-element list selections on both axes at once are rejected, because
// combining two fancy-index lists is ambiguous (broadcast vs. Cartesian
// selection).
func ParseKey(dataset string, selectors ...Selector) (Key, error) {
	if dataset == "" {
		return Key{}, fmt.Errorf("%w: empty dataset name", ErrSelector)
	}
	if len(selectors) > 2 {
		return Key{}, fmt.Errorf("%w: expected at most 2 axis selectors (time, sites), got %d",
			ErrSelector, len(selectors))
	}

	key := Key{Dataset: dataset, Times: All(), Sites: All()}
	if len(selectors) > 0 {
		key.Times = selectors[0]
	}
	if len(selectors) > 1 {
		key.Sites = selectors[1]
	}

	if err := key.validate(); err != nil {
		return Key{}, err
	}
	return key, nil
}

func (k Key) validate() error {
	if k.Times.IsFancy() && k.Sites.IsFancy() {
		return fmt.Errorf("%w: list selections on both time and site axes of %q; "+
			"only one axis may carry a multi-element list per read", ErrSelector, k.Dataset)
	}
	return nil
}
