package frequency

import (
	"sort"
	"testing"

	"github.com/TaokyleYT/wapds/internal/analysis/normalizer"
)

func tableOf(t *testing.T, raw string) *Table {
	t.Helper()
	return Build(normalizer.Normalize(raw))
}

func TestBuild(t *testing.T) {
	table := tableOf(t, "the cat and the hat and the bat")

	if got := table.Total(); got != 8 {
		t.Errorf("Total() = %d, want 8", got)
	}
	if got := table.Unique(); got != 5 {
		t.Errorf("Unique() = %d, want 5", got)
	}

	counts := map[string]int{"the": 3, "and": 2, "cat": 1, "hat": 1, "bat": 1}
	for term, want := range counts {
		if got := table.Count(term); got != want {
			t.Errorf("Count(%q) = %d, want %d", term, got, want)
		}
	}
	if table.Has("dog") {
		t.Error("Has(dog) = true for absent term")
	}
	if table.Count("dog") != 0 {
		t.Errorf("Count(dog) = %d, want 0", table.Count("dog"))
	}
}

func TestBuildEmpty(t *testing.T) {
	for _, table := range []*Table{Build(nil), tableOf(t, ""), tableOf(t, "... !!!")} {
		if table.Total() != 0 || table.Unique() != 0 {
			t.Errorf("empty table: Total=%d Unique=%d, want 0/0", table.Total(), table.Unique())
		}
	}
}

func TestTermsAndEach(t *testing.T) {
	table := tableOf(t, "b a c a")

	terms := table.Terms()
	sort.Strings(terms)
	want := []string{"a", "b", "c"}
	if len(terms) != len(want) {
		t.Fatalf("Terms() = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Fatalf("Terms() = %v, want %v", terms, want)
		}
	}

	sum := 0
	table.Each(func(_ string, count int) { sum += count })
	if sum != table.Total() {
		t.Errorf("sum of Each counts = %d, want Total %d", sum, table.Total())
	}
}

func TestEqual(t *testing.T) {
	a := tableOf(t, "x y x")
	b := tableOf(t, "y x X") // case folds to the same counts
	c := tableOf(t, "x y")
	d := tableOf(t, "x y z")

	if !a.Equal(b) || !b.Equal(a) {
		t.Error("tables with identical counts not Equal")
	}
	if a.Equal(c) {
		t.Error("tables with different counts reported Equal")
	}
	if a.Equal(d) {
		t.Error("tables with different key sets reported Equal")
	}
}
