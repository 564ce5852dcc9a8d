// Package similarity quantifies how alike two or more documents are. Two
// independent measures are provided: a set-based overlap coefficient for
// quick pairwise duplicate detection, and cosine similarity over a shared
// vector space for ranking many reference documents against one query.
package similarity

import (
	"math"
	"sort"

	"github.com/TaokyleYT/wapds/internal/analysis/frequency"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
)

// Overlap returns |A∩B| / |A∪B| as a percentage over the distinct-term
// sets of the two tables. It ignores counts entirely. Two empty documents
// are identical (100); an empty document shares nothing with a non-empty
// one (0). The measure is symmetric.
func Overlap(a, b *frequency.Table) float64 {
	if a.Unique() == 0 && b.Unique() == 0 {
		return 100
	}
	common := 0
	union := a.Unique()
	b.Each(func(term string, _ int) {
		if a.Has(term) {
			common++
		} else {
			union++
		}
	})
	return float64(common) / float64(union) * 100
}

// RefScore is the cosine score of one reference document. Reference is the
// index of the document in the caller's reference slice.
type RefScore struct {
	Reference int     `json:"reference"`
	Score     float64 `json:"score"`
}

// Cosine scores each reference table against the query in a vector space
// spanning the union of all terms, and returns the scores ranked
// descending. Ties keep the references' original order. With normalized
// set, vectors hold term frequencies (count/total) instead of raw counts;
// this changes relative weights between documents of different lengths but
// not a vector's direction against itself. A zero-magnitude vector scores
// 0 against everything. Comparing against no references at all is a
// caller mistake.
func Cosine(query *frequency.Table, refs []*frequency.Table, normalized bool) ([]RefScore, error) {
	if len(refs) == 0 {
		return nil, apperrors.New(apperrors.ErrConfiguration, 400,
			"cosine similarity needs at least two documents (one query, one reference)")
	}

	space := newVectorSpace(append([]*frequency.Table{query}, refs...))
	queryVec := space.vectorOf(query, normalized)
	queryNorm := magnitude(queryVec)

	scores := make([]RefScore, len(refs))
	for i, ref := range refs {
		scores[i] = RefScore{Reference: i, Score: cosineAgainst(queryVec, queryNorm, space, ref, normalized)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}

// ScoreOne computes the cosine score of a single reference against the
// query. It is safe for concurrent use: the vector space is rebuilt per
// call and nothing is shared.
func ScoreOne(query, ref *frequency.Table, normalized bool) float64 {
	space := newVectorSpace([]*frequency.Table{query, ref})
	queryVec := space.vectorOf(query, normalized)
	return cosineAgainst(queryVec, magnitude(queryVec), space, ref, normalized)
}

// Level maps an overlap percentage to the plagiarism severity band
// reported to users.
func Level(percent float64) string {
	switch {
	case percent > 80:
		return "HIGH"
	case percent > 50:
		return "MEDIUM"
	case percent > 20:
		return "LOW"
	default:
		return "MINIMAL"
	}
}

// vectorSpace maps each distinct term across all compared documents to a
// dimension. It lives only for the duration of one comparison call.
type vectorSpace struct {
	dims map[string]int
}

func newVectorSpace(tables []*frequency.Table) *vectorSpace {
	dims := make(map[string]int)
	for _, t := range tables {
		t.Each(func(term string, _ int) {
			if _, ok := dims[term]; !ok {
				dims[term] = len(dims)
			}
		})
	}
	return &vectorSpace{dims: dims}
}

func (s *vectorSpace) vectorOf(t *frequency.Table, normalized bool) []float64 {
	vec := make([]float64, len(s.dims))
	scale := 1.0
	if normalized && t.Total() > 0 {
		scale = 1 / float64(t.Total())
	}
	t.Each(func(term string, count int) {
		vec[s.dims[term]] = float64(count) * scale
	})
	return vec
}

func cosineAgainst(queryVec []float64, queryNorm float64, space *vectorSpace, ref *frequency.Table, normalized bool) float64 {
	refVec := space.vectorOf(ref, normalized)
	refNorm := magnitude(refVec)
	if queryNorm == 0 || refNorm == 0 {
		return 0
	}
	var dot float64
	for i, q := range queryVec {
		dot += q * refVec[i]
	}
	return dot / (queryNorm * refNorm)
}

func magnitude(vec []float64) float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	return math.Sqrt(sum)
}
