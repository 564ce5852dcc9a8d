package locator

import (
	"errors"
	"reflect"
	"testing"

	"github.com/TaokyleYT/wapds/internal/analysis/document"
	"github.com/TaokyleYT/wapds/internal/analysis/normalizer"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
)

func load(t *testing.T, raw string) *document.Document {
	t.Helper()
	doc, err := document.Load(raw, normalizer.DefaultConfig())
	if err != nil {
		t.Fatalf("Load(%q): %v", raw, err)
	}
	return doc
}

func TestFindCaseInsensitive(t *testing.T) {
	doc := load(t, "Hello world, hello!")
	spans, err := Find(doc, "hello", true)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want := []Span{{Start: 0, End: 5}, {Start: 13, End: 18}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("spans = %+v, want %+v", spans, want)
	}
	// The target itself is normalized, so casing there is irrelevant too.
	upper, err := Find(doc, "HELLO", true)
	if err != nil {
		t.Fatalf("Find(HELLO): %v", err)
	}
	if !reflect.DeepEqual(upper, want) {
		t.Errorf("uppercase target spans = %+v, want %+v", upper, want)
	}
}

func TestFindCaseSensitive(t *testing.T) {
	doc := load(t, "Hello world, hello!")

	spans, err := Find(doc, "hello", false)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want := []Span{{Start: 13, End: 18}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("case-sensitive spans = %+v, want %+v", spans, want)
	}

	spans, err = Find(doc, "Hello", false)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want = []Span{{Start: 0, End: 5}}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("case-sensitive spans = %+v, want %+v", spans, want)
	}
}

func TestFindNoMatch(t *testing.T) {
	doc := load(t, "nothing to see")
	spans, err := Find(doc, "missing", true)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(spans) != 0 {
		t.Errorf("spans = %+v, want none", spans)
	}
}

func TestFindBadTarget(t *testing.T) {
	doc := load(t, "some text")
	for _, target := range []string{"", "two words", "..."} {
		if _, err := Find(doc, target, true); !errors.Is(err, apperrors.ErrConfiguration) {
			t.Errorf("Find(%q) err = %v, want ErrConfiguration", target, err)
		}
	}
}

func TestFindHyphenatedTarget(t *testing.T) {
	doc := load(t, "a well-known well known fact")
	spans, err := Find(doc, "well-known", true)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("spans = %+v, want exactly the compound", spans)
	}
	if got := doc.Raw()[spans[0].Start:spans[0].End]; got != "well-known" {
		t.Errorf("span text = %q, want %q", got, "well-known")
	}
}

func TestReplace(t *testing.T) {
	doc := load(t, "Hello world, hello!")
	replaced, err := Replace(doc, "hello", "hi")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got := replaced.Raw(); got != "hi world, hi!" {
		t.Errorf("Raw() = %q, want %q", got, "hi world, hi!")
	}
	terms := make([]string, 0, len(replaced.Tokens()))
	for _, tok := range replaced.Tokens() {
		terms = append(terms, tok.Term)
	}
	want := []string{"hi", "world", "hi"}
	if !reflect.DeepEqual(terms, want) {
		t.Errorf("tokens = %v, want %v", terms, want)
	}
	// Original document untouched.
	if doc.Raw() != "Hello world, hello!" {
		t.Errorf("source document mutated: %q", doc.Raw())
	}
}

func TestReplaceLonger(t *testing.T) {
	doc := load(t, "a b a")
	replaced, err := Replace(doc, "a", "longer")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got := replaced.Raw(); got != "longer b longer" {
		t.Errorf("Raw() = %q, want %q", got, "longer b longer")
	}
}

func TestReplaceNoMatch(t *testing.T) {
	doc := load(t, "unchanged text")
	replaced, err := Replace(doc, "absent", "x")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if replaced.Raw() != doc.Raw() {
		t.Errorf("Raw() = %q, want unchanged %q", replaced.Raw(), doc.Raw())
	}
}

func TestReplaceWithEmpty(t *testing.T) {
	doc := load(t, "keep drop keep")
	replaced, err := Replace(doc, "drop", "")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got := replaced.Raw(); got != "keep  keep" {
		t.Errorf("Raw() = %q, want %q", got, "keep  keep")
	}
	if got := len(replaced.Tokens()); got != 2 {
		t.Errorf("token count = %d, want 2", got)
	}
}
