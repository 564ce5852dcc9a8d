package benchmark

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/TaokyleYT/wapds/internal/analysis/frequency"
	"github.com/TaokyleYT/wapds/internal/analysis/normalizer"
	"github.com/TaokyleYT/wapds/internal/analysis/similarity"
)

// syntheticTable builds a frequency table with the given vocabulary size,
// drawing terms from a shared pool so tables partially overlap.
func syntheticTable(rng *rand.Rand, vocabSize int) *frequency.Table {
	var b strings.Builder
	for i := 0; i < vocabSize*3; i++ {
		fmt.Fprintf(&b, "term%04d ", rng.Intn(vocabSize*2))
	}
	return frequency.Build(normalizer.Normalize(b.String()))
}

func BenchmarkOverlap(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	for _, size := range []int{10, 100, 1000} {
		x := syntheticTable(rng, size)
		y := syntheticTable(rng, size)
		b.Run(fmt.Sprintf("vocab_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = similarity.Overlap(x, y)
			}
		})
	}
}

func BenchmarkCosine(b *testing.B) {
	rng := rand.New(rand.NewSource(2))
	query := syntheticTable(rng, 200)
	for _, nRefs := range []int{1, 10, 50} {
		refs := make([]*frequency.Table, nRefs)
		for i := range refs {
			refs[i] = syntheticTable(rng, 200)
		}
		b.Run(fmt.Sprintf("refs_%d", nRefs), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := similarity.Cosine(query, refs, true); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkScoreOneParallel(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	query := syntheticTable(rng, 200)
	ref := syntheticTable(rng, 200)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = similarity.ScoreOne(query, ref, true)
		}
	})
}
