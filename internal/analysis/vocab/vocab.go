// Package vocab produces ordered views of a frequency table. Two orderings
// are supported: ascending alphabetical, and descending by count with an
// alphabetical tie-break so the result never depends on map iteration
// order.
package vocab

import (
	"math/rand"

	"github.com/TaokyleYT/wapds/internal/analysis/frequency"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
)

// Mode selects the ordering of a SortedVocabulary.
type Mode string

const (
	ModeAlphabetical  Mode = "alphabetical"
	ModeFrequencyDesc Mode = "frequency-descending"
)

// ParseMode validates a mode string from config or a request.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAlphabetical, ModeFrequencyDesc:
		return Mode(s), nil
	}
	return "", apperrors.Newf(apperrors.ErrConfiguration, 400,
		"unknown sort mode %q (want %q or %q)", s, ModeAlphabetical, ModeFrequencyDesc)
}

// Entry is one (term, count) pair of a SortedVocabulary.
type Entry struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// SortedVocabulary is an ordered sequence of entries tagged with the mode
// that produced it.
type SortedVocabulary struct {
	Mode    Mode    `json:"mode"`
	Entries []Entry `json:"entries"`
}

// Sort orders the table's (term, count) pairs by mode. An empty table
// yields an empty (valid) vocabulary; an unknown mode is a configuration
// error.
func Sort(table *frequency.Table, mode Mode) (SortedVocabulary, error) {
	var less func(a, b Entry) bool
	switch mode {
	case ModeAlphabetical:
		less = func(a, b Entry) bool { return a.Term < b.Term }
	case ModeFrequencyDesc:
		less = func(a, b Entry) bool {
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.Term < b.Term
		}
	default:
		return SortedVocabulary{}, apperrors.Newf(apperrors.ErrConfiguration, 400,
			"unknown sort mode %q", mode)
	}

	entries := make([]Entry, 0, table.Unique())
	table.Each(func(term string, count int) {
		entries = append(entries, Entry{Term: term, Count: count})
	})
	quicksort(entries, less)
	return SortedVocabulary{Mode: mode, Entries: entries}, nil
}

// quicksort sorts entries in place with a randomized pivot. Real word
// frequencies are heavily skewed, which is exactly the shape that drives a
// fixed-pivot quicksort quadratic; a random pivot keeps the expected cost
// at n log n. The comparators above are total orders (terms are unique),
// so the output is fully determined.
func quicksort(entries []Entry, less func(a, b Entry) bool) {
	if len(entries) < 2 {
		return
	}
	p := partition(entries, less)
	quicksort(entries[:p], less)
	quicksort(entries[p+1:], less)
}

func partition(entries []Entry, less func(a, b Entry) bool) int {
	last := len(entries) - 1
	pivot := rand.Intn(len(entries))
	entries[pivot], entries[last] = entries[last], entries[pivot]

	store := 0
	for i := 0; i < last; i++ {
		if less(entries[i], entries[last]) {
			entries[i], entries[store] = entries[store], entries[i]
			store++
		}
	}
	entries[store], entries[last] = entries[last], entries[store]
	return store
}
