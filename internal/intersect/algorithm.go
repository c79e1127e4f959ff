// Package intersect implements four interchangeable algorithms for
// intersecting two posting lists sorted by id: a linear merge, per-element
// binary search, gallop (exponential) search and a fixed-stride skip pointer
// walk.
//
// Every algorithm returns a fresh posting.List holding the ids present in
// both inputs in ascending order, each scored with the sum of its two input
// scores. Inputs are never modified. Unsorted input is not detected and gives
// an undefined (but non-panicking) result.
package intersect

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	apperrors "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/errors"
)

// Algorithm identifies one of the intersection strategies.
type Algorithm int

const (
	Linear Algorithm = iota
	BinarySearch
	Gallop
	SkipPointer
)

var names = [...]string{
	Linear:       "linear",
	BinarySearch: "binary",
	Gallop:       "gallop",
	SkipPointer:  "skip",
}

var aliases = map[string]Algorithm{
	"linear":                Linear,
	"merge":                 Linear,
	"intersect":             Linear,
	"binary":                BinarySearch,
	"binary-search":         BinarySearch,
	"intersectbinarysearch": BinarySearch,
	"gallop":                Gallop,
	"exponential":           Gallop,
	"intersectgallopsearch": Gallop,
	"skip":                  SkipPointer,
	"skip-pointer":          SkipPointer,
	"skippointers":          SkipPointer,
}

func (a Algorithm) String() string {
	if a < 0 || int(a) >= len(names) {
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
	return names[a]
}

// MarshalText lets algorithms appear by name in JSON reports and config.
func (a Algorithm) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= len(names) {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrUnknownAlgorithm, int(a))
	}
	return []byte(names[a]), nil
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAlgorithm resolves a case-insensitive algorithm name. Besides the
// canonical names it accepts a few descriptive aliases.
func ParseAlgorithm(name string) (Algorithm, error) {
	alg, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrUnknownAlgorithm, name)
	}
	return alg, nil
}

// ParseAlgorithms resolves a list of names. "all" expands to every algorithm.
func ParseAlgorithms(names []string) ([]Algorithm, error) {
	out := make([]Algorithm, 0, len(names))
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			return Algorithms(), nil
		}
		alg, err := ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		out = append(out, alg)
	}
	return out, nil
}

// Algorithms lists every algorithm, baseline first.
func Algorithms() []Algorithm {
	return []Algorithm{Linear, BinarySearch, Gallop, SkipPointer}
}

// Intersector is the common surface of all algorithms.
type Intersector interface {
	Intersect(a, b posting.List) posting.List
	Algorithm() Algorithm
}

type linearIntersector struct{}

func (linearIntersector) Intersect(a, b posting.List) posting.List { return Intersect(a, b) }
func (linearIntersector) Algorithm() Algorithm                     { return Linear }

type binaryIntersector struct{}

func (binaryIntersector) Intersect(a, b posting.List) posting.List {
	return IntersectBinarySearch(a, b)
}
func (binaryIntersector) Algorithm() Algorithm { return BinarySearch }

type gallopIntersector struct{}

func (gallopIntersector) Intersect(a, b posting.List) posting.List {
	return IntersectGallopSearch(a, b)
}
func (gallopIntersector) Algorithm() Algorithm { return Gallop }

type skipIntersector struct{}

func (skipIntersector) Intersect(a, b posting.List) posting.List { return SkipPointers(a, b) }
func (skipIntersector) Algorithm() Algorithm                     { return SkipPointer }

// For returns the Intersector implementing alg.
func For(alg Algorithm) (Intersector, error) {
	switch alg {
	case Linear:
		return linearIntersector{}, nil
	case BinarySearch:
		return binaryIntersector{}, nil
	case Gallop:
		return gallopIntersector{}, nil
	case SkipPointer:
		return skipIntersector{}, nil
	}
	return nil, fmt.Errorf("%w: %d", apperrors.ErrUnknownAlgorithm, int(alg))
}

// Run intersects a and b with alg.
func Run(alg Algorithm, a, b posting.List) (posting.List, error) {
	in, err := For(alg)
	if err != nil {
		return posting.List{}, err
	}
	return in.Intersect(a, b), nil
}

// ShorterFirst orders the operands so the shorter list comes first. Search
// based algorithms iterate over their first argument, so this is the cheaper
// order; results are identical either way.
func ShorterFirst(a, b posting.List) (posting.List, posting.List) {
	if b.Len() < a.Len() {
		return b, a
	}
	return a, b
}
