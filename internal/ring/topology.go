package ring

import "errors"

// ErrEmptyMembership is returned by GenNeighborList when the membership
// list is empty; there is no ring position to walk from.
var ErrEmptyMembership = errors.New("ring: membership list is empty")

// GenNeighborList walks a sorted membership list starting at
// (startIdx + step) mod len(list), advancing by step each time, and
// accumulates up to count ids. The walk terminates early if it returns to
// startIdx: self is appended once more iff includeSelf is true (only ever
// as the last element, and only when the ring is small enough that the
// walk wraps fully back around; see the resolved open question in §4.3
// of the specification this implements), otherwise the walk stops one
// step short of repeating startIdx.
//
// step = +1 yields successors, step = -1 yields predecessors.
func GenNeighborList(list []NodeId, startIdx, step, count int, includeSelf bool) ([]NodeId, error) {
	n := len(list)
	if n == 0 {
		return nil, ErrEmptyMembership
	}
	if n == 1 {
		if includeSelf && count > 0 {
			return []NodeId{list[startIdx]}, nil
		}
		return nil, nil
	}

	out := make([]NodeId, 0, count)
	idx := mod(startIdx+step, n)
	for len(out) < count {
		if idx == startIdx {
			if includeSelf {
				out = append(out, list[startIdx])
			}
			break
		}
		out = append(out, list[idx])
		idx = mod(idx+step, n)
	}
	return out, nil
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// IndexOf returns the index of id within a sorted membership list, or
// (-1, false) if absent. Implemented as a linear scan over the whole list;
// State's own lookups (myIdxLocked, Contains in state.go) binary-search
// its sorted slice instead.
func IndexOf(list []NodeId, id NodeId) (int, bool) {
	for i, v := range list {
		if v == id {
			return i, true
		}
	}
	return -1, false
}

// RecalculateSuccessors derives the successor list from membership and myIdx.
func RecalculateSuccessors(list []NodeId, myIdx, numSuccessors int) ([]NodeId, error) {
	return GenNeighborList(list, myIdx, +1, numSuccessors, false)
}

// RecalculatePredecessors derives the predecessor list from membership and myIdx.
func RecalculatePredecessors(list []NodeId, myIdx, numPredecessors int) ([]NodeId, error) {
	return GenNeighborList(list, myIdx, -1, numPredecessors, false)
}
