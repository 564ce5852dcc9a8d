// Package locator finds and replaces word occurrences in a document using
// the original-text offsets of its tokens, so matches point into the
// un-normalized source.
package locator

import (
	"strings"

	"github.com/TaokyleYT/wapds/internal/analysis/document"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
)

// Span is a half-open [Start, End) byte range in the document's raw text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Find returns the raw-text spans of every token matching target. The
// target goes through the document's own normalization, so "Hello" matches
// target "hello". With caseInsensitive false, the raw text under the span
// must additionally equal target exactly. An empty target, or one that
// does not normalize to exactly one word, is a configuration error.
func Find(doc *document.Document, target string, caseInsensitive bool) ([]Span, error) {
	want, err := normalizeTarget(doc, target)
	if err != nil {
		return nil, err
	}
	spans := make([]Span, 0)
	for _, tok := range doc.Tokens() {
		if tok.Term != want {
			continue
		}
		if !caseInsensitive && doc.Raw()[tok.Start:tok.End] != target {
			continue
		}
		spans = append(spans, Span{Start: tok.Start, End: tok.End})
	}
	return spans, nil
}

// Replace substitutes replacement for every normalized-token match of
// target at its original span and returns a freshly loaded Document. The
// input document is never modified.
func Replace(doc *document.Document, target, replacement string) (*document.Document, error) {
	spans, err := Find(doc, target, true)
	if err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(spans) == 0 {
		return document.Load(raw, doc.Config())
	}

	var b strings.Builder
	b.Grow(len(raw) + len(spans)*len(replacement))
	prev := 0
	for _, span := range spans {
		b.WriteString(raw[prev:span.Start])
		b.WriteString(replacement)
		prev = span.End
	}
	b.WriteString(raw[prev:])
	return document.Load(b.String(), doc.Config())
}

func normalizeTarget(doc *document.Document, target string) (string, error) {
	if target == "" {
		return "", apperrors.New(apperrors.ErrConfiguration, 400, "search target is empty")
	}
	toks := doc.Config().Normalize(target)
	if len(toks) != 1 {
		return "", apperrors.Newf(apperrors.ErrConfiguration, 400,
			"search target %q must normalize to exactly one word, got %d", target, len(toks))
	}
	return toks[0].Term, nil
}
