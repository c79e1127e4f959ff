package intersect

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	apperrors "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/errors"
)

func exampleLists() (posting.List, posting.List) {
	list1 := posting.NewRepeated([]int{10, 20, 30}, []int{1, 2, 3}, 2, 50)
	list2 := posting.NewRepeated([]int{10, 20, 40}, []int{1, 2, 4}, 2, 50)
	return list1, list2
}

func TestAllAlgorithmsOnExample(t *testing.T) {
	list1, list2 := exampleLists()

	for _, alg := range Algorithms() {
		t.Run(alg.String(), func(t *testing.T) {
			got, err := Run(alg, list1, list2)
			require.NoError(t, err)
			assert.Equal(t, []int{10, 20, 60, 70}, got.IDs)
			assert.Equal(t, []int{2, 4, 2, 4}, got.Scores)
		})
	}
}

func TestEdgeCases(t *testing.T) {
	tests := []struct {
		name       string
		a, b       posting.List
		wantIDs    []int
		wantScores []int
	}{
		{
			name:    "both empty",
			a:       posting.List{},
			b:       posting.List{},
			wantIDs: []int{},
		},
		{
			name:    "a empty",
			a:       posting.List{},
			b:       posting.New([]int{1, 2, 3}, []int{1, 1, 1}),
			wantIDs: []int{},
		},
		{
			name:    "b empty",
			a:       posting.New([]int{1, 2, 3}, []int{1, 1, 1}),
			b:       posting.List{},
			wantIDs: []int{},
		},
		{
			name:    "disjoint ranges",
			a:       posting.New([]int{1, 2, 3}, []int{1, 1, 1}),
			b:       posting.New([]int{10, 20, 30}, []int{1, 1, 1}),
			wantIDs: []int{},
		},
		{
			name:    "a entirely after b",
			a:       posting.New([]int{100, 200}, []int{1, 1}),
			b:       posting.New([]int{1, 2, 3}, []int{1, 1, 1}),
			wantIDs: []int{},
		},
		{
			name:       "first element of b",
			a:          posting.New([]int{5}, []int{1}),
			b:          posting.New([]int{5, 6, 7, 8}, []int{10, 20, 30, 40}),
			wantIDs:    []int{5},
			wantScores: []int{11},
		},
		{
			name:       "last element of b",
			a:          posting.New([]int{8}, []int{1}),
			b:          posting.New([]int{5, 6, 7, 8}, []int{10, 20, 30, 40}),
			wantIDs:    []int{8},
			wantScores: []int{41},
		},
		{
			name:       "first and last",
			a:          posting.New([]int{5, 8}, []int{1, 2}),
			b:          posting.New([]int{5, 6, 7, 8}, []int{10, 20, 30, 40}),
			wantIDs:    []int{5, 8},
			wantScores: []int{11, 42},
		},
		{
			name:       "single element lists",
			a:          posting.New([]int{3}, []int{4}),
			b:          posting.New([]int{3}, []int{5}),
			wantIDs:    []int{3},
			wantScores: []int{9},
		},
		{
			name:       "identical lists",
			a:          posting.New([]int{1, 2, 3}, []int{1, 2, 3}),
			b:          posting.New([]int{1, 2, 3}, []int{1, 2, 3}),
			wantIDs:    []int{1, 2, 3},
			wantScores: []int{2, 4, 6},
		},
		{
			name:       "negative ids",
			a:          posting.New([]int{-9, -3, 0, 4}, []int{1, 1, 1, 1}),
			b:          posting.New([]int{-3, 4, 7}, []int{2, 2, 2}),
			wantIDs:    []int{-3, 4},
			wantScores: []int{3, 3},
		},
	}

	for _, tt := range tests {
		for _, alg := range Algorithms() {
			t.Run(fmt.Sprintf("%s/%s", tt.name, alg), func(t *testing.T) {
				got, err := Run(alg, tt.a, tt.b)
				require.NoError(t, err)
				assert.Equal(t, tt.wantIDs, nonNil(got.IDs))
				if tt.wantScores != nil {
					assert.Equal(t, tt.wantScores, got.Scores)
				}
				assert.Len(t, got.Scores, len(got.IDs))
			})
		}
	}
}

// Targets past the end of b clamp the skip walk at the last index; the
// walk must stop there instead of spinning.
func TestSkipPointersStopsAtEndOfB(t *testing.T) {
	b := sequence(0, 120, 1)
	a := posting.New([]int{119, 500, 501, 1000}, []int{1, 1, 1, 1})

	got := SkipPointers(a, b)
	assert.Equal(t, []int{119}, got.IDs)
}

func TestSkipPointersCrossesManyStrides(t *testing.T) {
	b := sequence(0, 10_000, 3)
	a := posting.New([]int{0, 149, 150, 153, 6000, 29_997}, []int{1, 1, 1, 1, 1, 1})

	got := SkipPointers(a, b)
	assert.Equal(t, []int{0, 150, 153, 6000, 29_997}, got.IDs)
}

func TestGallopAfterMisses(t *testing.T) {
	b := sequence(0, 1000, 2)
	// odd ids miss; the gallop start stays at the last hit
	a := posting.New([]int{1, 3, 4, 999, 1001, 1500, 1998}, []int{1, 1, 1, 1, 1, 1, 1})

	got := IntersectGallopSearch(a, b)
	assert.Equal(t, []int{4, 1500, 1998}, got.IDs)
}

func TestInputsAreNotModified(t *testing.T) {
	list1, list2 := exampleLists()
	before1 := posting.New(list1.IDs, list1.Scores)
	before2 := posting.New(list2.IDs, list2.Scores)

	for _, alg := range Algorithms() {
		_, err := Run(alg, list1, list2)
		require.NoError(t, err)
	}
	assert.Equal(t, before1, list1)
	assert.Equal(t, before2, list2)
}

func TestRandomListsAgreeWithOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 40; round++ {
		a := randomList(rng, rng.Intn(3000), 20_000)
		b := randomList(rng, rng.Intn(3000), 20_000)
		want := oracle(a, b)

		for _, alg := range Algorithms() {
			got, err := Run(alg, a, b)
			require.NoError(t, err)
			if diff := cmp.Diff(want, nonNil(got.IDs)); diff != "" {
				t.Fatalf("round %d %s ids mismatch (-want +got):\n%s", round, alg, diff)
			}
			assertScoresSummed(t, a, b, got)

			swapped, err := Run(alg, b, a)
			require.NoError(t, err)
			if diff := cmp.Diff(got, swapped); diff != "" {
				t.Fatalf("round %d %s not commutative (-ab +ba):\n%s", round, alg, diff)
			}
		}
	}
}

func TestDenseAndSparseMix(t *testing.T) {
	dense := sequence(0, 50_000, 1)
	sparse := sequence(7, 400, 97)
	want := Intersect(sparse, dense)
	require.Equal(t, sparse.IDs, want.IDs)

	for _, alg := range Algorithms() {
		for _, order := range []struct {
			name string
			a, b posting.List
		}{{"sparse-dense", sparse, dense}, {"dense-sparse", dense, sparse}} {
			t.Run(alg.String()+"/"+order.name, func(t *testing.T) {
				got, err := Run(alg, order.a, order.b)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestBinarySearch(t *testing.T) {
	arr := []int{2, 4, 6, 8, 10}
	for i, v := range arr {
		assert.Equal(t, i, binarySearch(arr, v, 0, len(arr)-1))
	}
	assert.Equal(t, NotFound, binarySearch(arr, 5, 0, len(arr)-1))
	assert.Equal(t, NotFound, binarySearch(arr, 1, 0, len(arr)-1))
	assert.Equal(t, NotFound, binarySearch(arr, 11, 0, len(arr)-1))
	assert.Equal(t, NotFound, binarySearch(arr, 2, 1, len(arr)-1), "outside range")
	assert.Equal(t, NotFound, binarySearch(nil, 2, 0, -1))
}

func TestExponentialSearch(t *testing.T) {
	arr := []int{1, 3, 5, 7, 9, 11, 13, 15, 17}
	size := len(arr) - 1
	for start := 0; start <= 2; start++ {
		for i, v := range arr {
			if i < start/2 {
				continue
			}
			assert.Equal(t, i, exponentialSearch(arr, v, start, size), "value %d from %d", v, start)
		}
	}
	assert.Equal(t, NotFound, exponentialSearch(arr, 4, 1, size))
	assert.Equal(t, NotFound, exponentialSearch(arr, 99, 1, size))
	assert.Equal(t, NotFound, exponentialSearch(nil, 1, 1, -1))
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"linear":                Linear,
		"LINEAR":                Linear,
		"intersect":             Linear,
		"binary":                BinarySearch,
		"intersectBinarySearch": BinarySearch,
		"gallop":                Gallop,
		" exponential ":         Gallop,
		"intersectGallopSearch": Gallop,
		"skip":                  SkipPointer,
		"skipPointers":          SkipPointer,
	}
	for in, want := range tests {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAlgorithm("quantum")
	assert.True(t, errors.Is(err, apperrors.ErrUnknownAlgorithm))
}

func TestParseAlgorithms(t *testing.T) {
	algs, err := ParseAlgorithms([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, Algorithms(), algs)

	algs, err = ParseAlgorithms([]string{"gallop", "skip"})
	require.NoError(t, err)
	assert.Equal(t, []Algorithm{Gallop, SkipPointer}, algs)

	_, err = ParseAlgorithms([]string{"gallop", "nope"})
	assert.Error(t, err)
}

func TestAlgorithmTextRoundTrip(t *testing.T) {
	for _, alg := range Algorithms() {
		text, err := alg.MarshalText()
		require.NoError(t, err)

		var back Algorithm
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, alg, back)
	}
	_, err := Algorithm(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "algorithm(42)", Algorithm(42).String())
}

func TestForIsExhaustive(t *testing.T) {
	for _, alg := range Algorithms() {
		in, err := For(alg)
		require.NoError(t, err)
		assert.Equal(t, alg, in.Algorithm())
	}
	_, err := For(Algorithm(-1))
	assert.True(t, errors.Is(err, apperrors.ErrUnknownAlgorithm))
}

func TestShorterFirst(t *testing.T) {
	short := posting.New([]int{1}, []int{1})
	long := posting.New([]int{1, 2}, []int{1, 1})

	a, b := ShorterFirst(long, short)
	assert.Equal(t, short, a)
	assert.Equal(t, long, b)

	a, b = ShorterFirst(short, long)
	assert.Equal(t, short, a)
	assert.Equal(t, long, b)
}

func sequence(start, n, step int) posting.List {
	ids := make([]int, n)
	scores := make([]int, n)
	for i := range ids {
		ids[i] = start + i*step
		scores[i] = i % 7
	}
	return posting.New(ids, scores)
}

func randomList(rng *rand.Rand, n, universe int) posting.List {
	bm := roaring.New()
	for bm.GetCardinality() < uint64(n) {
		bm.Add(uint32(rng.Intn(universe)))
	}
	ids := make([]int, 0, n)
	scores := make([]int, 0, n)
	it := bm.Iterator()
	for it.HasNext() {
		ids = append(ids, int(it.Next()))
		scores = append(scores, rng.Intn(100))
	}
	return posting.List{IDs: ids, Scores: scores}
}

func oracle(a, b posting.List) []int {
	ba := roaring.New()
	for _, id := range a.IDs {
		ba.Add(uint32(id))
	}
	bb := roaring.New()
	for _, id := range b.IDs {
		bb.Add(uint32(id))
	}
	out := []int{}
	for _, id := range roaring.And(ba, bb).ToArray() {
		out = append(out, int(id))
	}
	return out
}

func assertScoresSummed(t *testing.T, a, b, got posting.List) {
	t.Helper()
	scoreOf := func(l posting.List) map[int]int {
		m := make(map[int]int, l.Len())
		for i, id := range l.IDs {
			m[id] = l.Scores[i]
		}
		return m
	}
	sa, sb := scoreOf(a), scoreOf(b)
	for i, id := range got.IDs {
		if got.Scores[i] != sa[id]+sb[id] {
			t.Fatalf("score for id %d = %d, want %d", id, got.Scores[i], sa[id]+sb[id])
		}
	}
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
