package diff

import (
	"sort"
)

// LineSet is a set of 0-based line indices.
type LineSet map[int]struct{}

// NewLineSet creates a set holding the given indices.
func NewLineSet(indices ...int) LineSet {
	ls := make(LineSet, len(indices))
	for _, idx := range indices {
		ls.Add(idx)
	}
	return ls
}

// Add inserts idx. Negative indices are ignored.
func (ls LineSet) Add(idx int) {
	if idx < 0 {
		return
	}
	ls[idx] = struct{}{}
}

func (ls LineSet) Has(idx int) bool {
	_, ok := ls[idx]
	return ok
}

func (ls LineSet) Len() int {
	return len(ls)
}

// Sorted returns the indices in ascending order.
func (ls LineSet) Sorted() []int {
	out := make([]int, 0, len(ls))
	for idx := range ls {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
