package intersect

import "github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"

// NotFound is returned by the search helpers when the value is absent.
const NotFound = -1

// SkipStride is the fixed jump length of the skip pointer walk.
const SkipStride = 50

// binarySearch looks for value in the ascending array within [lo, hi].
func binarySearch(array []int, value, lo, hi int) int {
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case array[mid] == value:
			return mid
		case array[mid] < value:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return NotFound
}

// exponentialSearch doubles bound until array[bound] reaches value or bound
// passes size (the last valid index), then binary searches the bracket
// [bound/2, min(bound, size)].
func exponentialSearch(array []int, value, bound, size int) int {
	for bound <= size && array[bound] < value {
		if bound > 0 {
			bound *= 2
		} else {
			bound++
		}
	}
	return binarySearch(array, value, bound/2, min(bound, size))
}

func skip(lowerBound int) int {
	return lowerBound + SkipStride
}

// IntersectBinarySearch binary searches every id of a in all of b,
// O(n1 log n2). Pass the shorter list as a for the best running time.
func IntersectBinarySearch(a, b posting.List) posting.List {
	out := posting.NewBuilder(min(len(a.IDs), len(b.IDs)))
	last := len(b.IDs) - 1

	for i, id := range a.IDs {
		j := binarySearch(b.IDs, id, 0, last)
		if j != NotFound {
			out.Append(id, a.Scores[i]+b.Scores[j])
		}
	}
	return out.List()
}

// IntersectGallopSearch gallops through b starting from the position of the
// previous match. The start position only moves on a hit; a miss leaves it
// where it was, so the next search re-covers the same stretch of b.
func IntersectGallopSearch(a, b posting.List) posting.List {
	out := posting.NewBuilder(min(len(a.IDs), len(b.IDs)))
	size := len(b.IDs) - 1
	lastIntersected := 1

	for i, id := range a.IDs {
		j := exponentialSearch(b.IDs, id, lastIntersected, size)
		if j != NotFound {
			out.Append(id, a.Scores[i]+b.Scores[j])
			lastIntersected = j
		}
	}
	return out.List()
}

// SkipPointers walks b in jumps of SkipStride from the last known lower bound
// until it overshoots the target, then binary searches the bracket.
// lowerBound only ratchets forward. When the jump is clamped at the end of b
// and the last id is still smaller than the target, the walk stops there and
// the search simply misses.
func SkipPointers(a, b posting.List) posting.List {
	out := posting.NewBuilder(min(len(a.IDs), len(b.IDs)))
	last := len(b.IDs) - 1
	if last < 0 {
		return out.List()
	}
	pointer, lowerBound := 0, 0

	for i, id := range a.IDs {
		for id > b.IDs[pointer] && pointer != last {
			pointer = skip(lowerBound)
			if pointer > last {
				pointer = last
			}
			if b.IDs[pointer] < id {
				lowerBound = pointer
			}
		}

		j := binarySearch(b.IDs, id, lowerBound, pointer)
		if j != NotFound {
			out.Append(id, a.Scores[i]+b.Scores[j])
			lowerBound = j
		}
	}
	return out.List()
}
