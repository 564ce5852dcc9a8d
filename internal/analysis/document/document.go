// Package document models an immutable analyzed text: the raw content plus
// the token stream derived from it. Loading is the only place binary input
// is rejected; every downstream component can assume valid text.
package document

import (
	"strings"
	"unicode/utf8"

	"github.com/TaokyleYT/wapds/internal/analysis/normalizer"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
)

// Document is a raw text together with its normalized token sequence.
// It is immutable after Load; replacement operations produce a new one.
type Document struct {
	raw    string
	tokens []normalizer.Token
	cfg    normalizer.Config
}

// Load validates and normalizes raw text. Non-text input (invalid UTF-8 or
// embedded NUL bytes) is rejected with a decode error before any
// normalization happens. Empty text is a valid document with no tokens.
func Load(raw string, cfg normalizer.Config) (*Document, error) {
	if !utf8.ValidString(raw) {
		return nil, apperrors.New(apperrors.ErrDecode, 400, "content is not valid UTF-8 text")
	}
	if strings.ContainsRune(raw, 0) {
		return nil, apperrors.New(apperrors.ErrDecode, 400, "content contains NUL bytes")
	}
	return &Document{
		raw:    raw,
		tokens: cfg.Normalize(raw),
		cfg:    cfg,
	}, nil
}

// Raw returns the original, un-normalized text.
func (d *Document) Raw() string {
	return d.raw
}

// Tokens returns the normalized token sequence in document order. Callers
// must not modify the returned slice.
func (d *Document) Tokens() []normalizer.Token {
	return d.tokens
}

// Config returns the normalization config the document was loaded with.
func (d *Document) Config() normalizer.Config {
	return d.cfg
}
