// Package normalizer turns raw text into an ordered stream of lowercased
// tokens. Each token carries the byte offsets of the run it came from, so
// callers can map a normalized term back to its position in the original
// text.
package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// HyphenPolicy controls how hyphens inside a word run are treated.
type HyphenPolicy string

const (
	// HyphenKeep keeps hyphenated compounds as a single token ("well-known").
	HyphenKeep HyphenPolicy = "keep"
	// HyphenSplit treats the hyphen as a boundary ("well", "known").
	HyphenSplit HyphenPolicy = "split"
)

// Config selects the normalization policy for joiner characters.
type Config struct {
	Hyphens         HyphenPolicy
	KeepApostrophes bool
}

// DefaultConfig keeps internal hyphens and apostrophes as part of tokens.
func DefaultConfig() Config {
	return Config{
		Hyphens:         HyphenKeep,
		KeepApostrophes: true,
	}
}

// Token is a single normalized term. Start and End are byte offsets into
// the raw text covering the original (pre-lowercasing) run.
type Token struct {
	Term  string `json:"term"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Normalize tokenizes raw using the default config.
func Normalize(raw string) []Token {
	return DefaultConfig().Normalize(raw)
}

// Normalize scans raw and emits one token per run of word characters.
// Letters and digits are word characters; hyphens and apostrophes join a
// run only when the config keeps them and only in an internal position.
// Everything else is a boundary. Empty input yields an empty slice.
func (c Config) Normalize(raw string) []Token {
	tokens := make([]Token, 0, len(raw)/6)
	runStart := -1
	for i, r := range raw {
		if c.isWord(r) || (runStart >= 0 && c.isJoiner(r)) {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			tokens = c.emit(tokens, raw, runStart, i)
			runStart = -1
		}
	}
	if runStart >= 0 {
		tokens = c.emit(tokens, raw, runStart, len(raw))
	}
	return tokens
}

func (c Config) isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (c Config) isJoiner(r rune) bool {
	switch r {
	case '-':
		return c.Hyphens == HyphenKeep
	case '\'':
		return c.KeepApostrophes
	}
	return false
}

// emit trims trailing joiners from the run raw[start:end] and appends the
// resulting token. A run always begins with a word character, so only the
// tail needs trimming ("it's," scans as "it's" followed by boundaries, but
// "rock-" scans as a run ending in a joiner).
func (c Config) emit(tokens []Token, raw string, start, end int) []Token {
	for end > start {
		r, size := utf8.DecodeLastRuneInString(raw[start:end])
		if c.isWord(r) {
			break
		}
		end -= size
	}
	if end == start {
		return tokens
	}
	return append(tokens, Token{
		Term:  strings.ToLower(raw[start:end]),
		Start: start,
		End:   end,
	})
}

// ParseHyphenPolicy maps a config string to a HyphenPolicy, defaulting to
// HyphenKeep for unrecognized values.
func ParseHyphenPolicy(s string) HyphenPolicy {
	if HyphenPolicy(strings.ToLower(s)) == HyphenSplit {
		return HyphenSplit
	}
	return HyphenKeep
}
