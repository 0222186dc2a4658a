package domain

import "sync"

// Fragment represents a half-open byte range [Offset, Offset+Length)
// of a cached resource that is already present on disk.
type Fragment struct {
	Offset int64
	Length int64
}

// End returns the exclusive upper bound of the fragment.
func (f Fragment) End() int64 {
	return f.Offset + f.Length
}

// FragmentIndex maintains the set of downloaded byte ranges for one
// cached resource. The sequence is kept ascending by offset, pairwise
// non-overlapping and non-adjacent: it is always the minimal set of
// ranges covering the union of everything ever added.
//
// Mutations build a new slice under the mutex and publish it by
// replacement, so readers always observe a consistent sequence.
type FragmentIndex struct {
	mu    sync.Mutex
	frags []Fragment
}

// NewFragmentIndex creates an empty fragment index.
func NewFragmentIndex() *FragmentIndex {
	return &FragmentIndex{}
}

// NewFragmentIndexFrom creates an index from an existing fragment
// sequence, re-adding each range so the invariant holds even if the
// input is unsorted or overlapping (e.g. from an older snapshot).
func NewFragmentIndexFrom(frags []Fragment) *FragmentIndex {
	idx := &FragmentIndex{}
	for _, f := range frags {
		idx.Add(f.Offset, f.Length)
	}
	return idx
}

// Add records that bytes [offset, offset+length) are now available
// locally, merging the range with every existing fragment it overlaps
// or touches. Ranges with length <= 0 or a negative offset are ignored.
func (x *FragmentIndex) Add(offset, length int64) {
	if offset < 0 || length <= 0 {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	start, end := offset, offset+length

	// One ascending scan. A fragment starting past `end` cannot touch
	// the new range and neither can anything after it; a fragment
	// ending before `start` only moves the insertion point. Everything
	// else overlaps or is adjacent (touching bounds merge, so the
	// comparisons are strict).
	insert := len(x.frags)
	first, last := -1, -1
	for i, f := range x.frags {
		if f.Offset > end {
			insert = i
			break
		}
		if f.End() < start {
			insert = i + 1
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}

	if first < 0 {
		// No overlap, no touch: plain insert preserving order.
		out := make([]Fragment, 0, len(x.frags)+1)
		out = append(out, x.frags[:insert]...)
		out = append(out, Fragment{Offset: start, Length: length})
		out = append(out, x.frags[insert:]...)
		x.frags = out
		return
	}

	// Collapse the touched run [first, last] and the new range into a
	// single fragment spanning the min start and max end.
	lo := min(start, x.frags[first].Offset)
	hi := max(end, x.frags[last].End())

	out := make([]Fragment, 0, len(x.frags)-(last-first))
	out = append(out, x.frags[:first]...)
	out = append(out, Fragment{Offset: lo, Length: hi - lo})
	out = append(out, x.frags[last+1:]...)
	x.frags = out
}

// Fragments returns a copy of the current fragment sequence. The copy
// is the caller's to keep; it never aliases the live sequence.
func (x *FragmentIndex) Fragments() []Fragment {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]Fragment, len(x.frags))
	copy(out, x.frags)
	return out
}

// Len returns the number of fragments in the index.
func (x *FragmentIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.frags)
}

// CoveredBytes returns the total number of bytes covered by the index.
func (x *FragmentIndex) CoveredBytes() int64 {
	x.mu.Lock()
	defer x.mu.Unlock()

	var total int64
	for _, f := range x.frags {
		total += f.Length
	}
	return total
}

// Contains reports whether the entire range [offset, offset+length) is
// already covered, i.e. a request for it can be served from disk.
func (x *FragmentIndex) Contains(offset, length int64) bool {
	if offset < 0 || length <= 0 {
		return false
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, f := range x.frags {
		if f.Offset > offset {
			return false
		}
		if f.End() >= offset+length {
			return true
		}
	}
	return false
}
