package intersect

import "github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"

// Intersect is the linear-time merge intersection, O(n1+n2). The other
// algorithms are checked against it.
func Intersect(a, b posting.List) posting.List {
	n1 := len(a.IDs)
	n2 := len(b.IDs)
	out := posting.NewBuilder(min(n1, n2))
	i, j := 0, 0

	for i < n1 && j < n2 {
		for i < n1 && a.IDs[i] < b.IDs[j] {
			i++
		}
		if i == n1 {
			break
		}
		for j < n2 && b.IDs[j] < a.IDs[i] {
			j++
		}
		if j == n2 {
			break
		}
		if a.IDs[i] == b.IDs[j] {
			out.Append(a.IDs[i], a.Scores[i]+b.Scores[j])
			i++
			j++
		}
	}
	return out.List()
}
