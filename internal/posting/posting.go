// Package posting defines the sorted posting list shared by every
// intersection algorithm. A List stores ids and scores as two parallel slices
// so the scan loops touch a dense id array only.
package posting

// List is an immutable sequence of (id, score) pairs. IDs must be strictly
// ascending; Scores[i] belongs to IDs[i]. Neither property is checked by the
// intersection code.
type List struct {
	IDs    []int `json:"ids"`
	Scores []int `json:"scores"`
}

// New copies ids and scores into a new List.
func New(ids, scores []int) List {
	return NewRepeated(ids, scores, 1, 0)
}

// NewRepeated builds a list from numRepeats copies of the base sequence. Copy
// k has k*offset added to each id; scores are copied unchanged. The result
// stays ascending as long as offset exceeds the base id range.
func NewRepeated(ids, scores []int, numRepeats, offset int) List {
	if numRepeats <= 0 {
		return List{IDs: []int{}, Scores: []int{}}
	}
	n := len(ids)
	l := List{
		IDs:    make([]int, n*numRepeats),
		Scores: make([]int, n*numRepeats),
	}
	for k := 0; k < numRepeats; k++ {
		base := k * n
		shift := k * offset
		for i := 0; i < n; i++ {
			l.IDs[base+i] = ids[i] + shift
			l.Scores[base+i] = scores[i]
		}
	}
	return l
}

func (l List) Len() int {
	return len(l.IDs)
}

func (l List) IsEmpty() bool {
	return len(l.IDs) == 0
}

// Checksum sums all ids. It is the raw sequential scan the benchmark harness
// uses as a lower bound for any intersection.
func (l List) Checksum() int64 {
	var sum int64
	for _, id := range l.IDs {
		sum += int64(id)
	}
	return sum
}

// IsSorted reports whether IDs is strictly ascending and aligned with Scores.
func (l List) IsSorted() bool {
	if len(l.IDs) != len(l.Scores) {
		return false
	}
	for i := 1; i < len(l.IDs); i++ {
		if l.IDs[i] <= l.IDs[i-1] {
			return false
		}
	}
	return true
}

// Builder accumulates postings for a new List.
type Builder struct {
	ids    []int
	scores []int
}

// NewBuilder returns a Builder with room for capacity postings.
func NewBuilder(capacity int) *Builder {
	if capacity < 0 {
		capacity = 0
	}
	return &Builder{
		ids:    make([]int, 0, capacity),
		scores: make([]int, 0, capacity),
	}
}

func (b *Builder) Append(id, score int) {
	b.ids = append(b.ids, id)
	b.scores = append(b.scores, score)
}

func (b *Builder) Len() int {
	return len(b.ids)
}

// List hands the accumulated postings over. The Builder must not be reused.
func (b *Builder) List() List {
	return List{IDs: b.ids, Scores: b.scores}
}
