package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/TaokyleYT/wapds/internal/analysis/frequency"
	"github.com/TaokyleYT/wapds/internal/analysis/normalizer"
	"github.com/TaokyleYT/wapds/internal/analysis/vocab"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Plagiarism detection compares a query document against a corpus of
        reference documents. The text is first normalized into lowercase word
        tokens, then reduced to a frequency table mapping each distinct term
        to its occurrence count. Set overlap gives a fast pairwise similarity
        percentage while cosine similarity ranks many references at once in a
        shared vector space spanning the union of all terms.`,
	"long": strings.Repeat(`Text analysis pipelines normalize raw input before any
        statistics are computed. Hyphenated compounds and apostrophes are
        policy decisions: keeping them yields tokens like well-known and it's,
        splitting them yields separate words. Every token carries the byte
        offsets of its original run so later stages can locate and replace
        occurrences in the un-normalized source text without guessing. `, 20),
}

func BenchmarkNormalize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := normalizer.Normalize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkNormalizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := normalizer.Normalize(text)
			_ = tokens
		}
	})
}

func BenchmarkNormalizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "word analysis plagiarism detection frequency "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := normalizer.Normalize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkFrequencyBuild(b *testing.B) {
	for name, text := range sampleTexts {
		tokens := normalizer.Normalize(text)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				table := frequency.Build(tokens)
				_ = table
			}
		})
	}
}

func BenchmarkVocabSort(b *testing.B) {
	table := frequency.Build(normalizer.Normalize(sampleTexts["long"]))
	for _, mode := range []vocab.Mode{vocab.ModeAlphabetical, vocab.ModeFrequencyDesc} {
		b.Run(string(mode), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				sorted, err := vocab.Sort(table, mode)
				if err != nil {
					b.Fatal(err)
				}
				_ = sorted
			}
		})
	}
}
