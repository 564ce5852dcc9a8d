// Package frequency builds word-frequency tables from token streams.
package frequency

import "github.com/TaokyleYT/wapds/internal/analysis/normalizer"

// Table maps each distinct term to its occurrence count. A Table is built
// once and never mutated afterwards.
type Table struct {
	counts map[string]int
	total  int
}

// Build counts term occurrences in a single pass. A nil or empty token
// slice produces a valid empty table.
func Build(tokens []normalizer.Token) *Table {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok.Term]++
	}
	return &Table{
		counts: counts,
		total:  len(tokens),
	}
}

// Count returns the occurrence count for term, zero if absent.
func (t *Table) Count(term string) int {
	return t.counts[term]
}

// Has reports whether term occurs at least once.
func (t *Table) Has(term string) bool {
	_, ok := t.counts[term]
	return ok
}

// Terms returns the distinct terms in unspecified order.
func (t *Table) Terms() []string {
	terms := make([]string, 0, len(t.counts))
	for term := range t.counts {
		terms = append(terms, term)
	}
	return terms
}

// Each calls fn for every (term, count) pair in unspecified order.
func (t *Table) Each(fn func(term string, count int)) {
	for term, count := range t.counts {
		fn(term, count)
	}
}

// Total is the total token count, the sum of all counts.
func (t *Table) Total() int {
	return t.total
}

// Unique is the number of distinct terms.
func (t *Table) Unique() int {
	return len(t.counts)
}

// Equal reports whether both tables have identical key sets with identical
// counts.
func (t *Table) Equal(other *Table) bool {
	if len(t.counts) != len(other.counts) {
		return false
	}
	for term, count := range t.counts {
		if other.counts[term] != count {
			return false
		}
	}
	return true
}
