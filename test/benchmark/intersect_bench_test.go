package benchmark

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/intersect"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/segment"
)

// sortedList draws n distinct ascending ids with an average gap of gap.
func sortedList(rng *rand.Rand, n, gap int) posting.List {
	ids := make([]int, n)
	scores := make([]int, n)
	id := 0
	for i := range ids {
		id += 1 + rng.IntN(2*gap)
		ids[i] = id
		scores[i] = rng.IntN(100)
	}
	return posting.New(ids, scores)
}

// BenchmarkIntersect times every algorithm on pairs whose size ratio ranges
// from balanced to heavily skewed.
func BenchmarkIntersect(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 2))
	long := sortedList(rng, 200000, 4)
	shapes := []struct {
		name  string
		short posting.List
	}{
		{"ratio_1", sortedList(rng, 200000, 4)},
		{"ratio_10", sortedList(rng, 20000, 40)},
		{"ratio_100", sortedList(rng, 2000, 400)},
		{"ratio_1000", sortedList(rng, 200, 4000)},
	}

	for _, shape := range shapes {
		for _, alg := range intersect.Algorithms() {
			impl, err := intersect.For(alg)
			if err != nil {
				b.Fatal(err)
			}
			b.Run(fmt.Sprintf("%s/%s", shape.name, alg), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					_ = impl.Intersect(shape.short, long)
				}
			})
		}
	}
}

// BenchmarkReplicatedLists mirrors the film x comedy setup: small lists
// replicated a hundred times with a wide id offset.
func BenchmarkReplicatedLists(b *testing.B) {
	rng := rand.New(rand.NewPCG(3, 4))
	seedA := sortedList(rng, 5000, 20)
	seedB := sortedList(rng, 800, 120)
	a := posting.NewRepeated(seedA.IDs, seedA.Scores, 100, 200*1000)
	c := posting.NewRepeated(seedB.IDs, seedB.Scores, 100, 200*1000)

	for _, alg := range intersect.Algorithms() {
		b.Run(alg.String(), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := intersect.Run(alg, a, c); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkLoaderRead(b *testing.B) {
	rng := rand.New(rand.NewPCG(5, 6))
	var buf bytes.Buffer
	if err := loader.Write(&buf, sortedList(rng, 50000, 10)); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()

	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		if _, err := loader.Read(bytes.NewReader(data), 1, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSegmentLoad(b *testing.B) {
	rng := rand.New(rand.NewPCG(7, 8))
	dir := b.TempDir()
	name, err := segment.NewWriter(dir).Write([]segment.Entry{
		{Name: "film", List: sortedList(rng, 100000, 10)},
		{Name: "comedy", List: sortedList(rng, 20000, 50)},
	})
	if err != nil {
		b.Fatal(err)
	}
	r, err := segment.OpenReader(dir + "/" + name)
	if err != nil {
		b.Fatal(err)
	}
	defer r.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := r.Load("film"); err != nil {
			b.Fatal(err)
		}
	}
}
