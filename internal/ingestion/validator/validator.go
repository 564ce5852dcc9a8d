// Package validator provides input validation for ingestion requests. It
// enforces name and content constraints, including the decodability check
// that guarantees the analysis engine never sees non-text content.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/TaokyleYT/wapds/internal/ingestion"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
)

const (
	maxNameLength    = 255
	maxContentLength = 1048576
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks the name and content of the request.
// Undecodable content (invalid UTF-8 or NUL bytes) is reported as a decode
// error rather than a field error, matching the loader contract: binary
// input never reaches normalization. Empty content is accepted — an empty
// document is a valid document.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs["name"] = "name is required"
	} else if len(name) > maxNameLength {
		errs["name"] = fmt.Sprintf("name must be at most %d characters", maxNameLength)
	}
	if len(req.Content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	if !utf8.ValidString(req.Content) {
		return apperrors.New(apperrors.ErrDecode, 400, "content is not valid UTF-8 text")
	}
	if strings.ContainsRune(req.Content, 0) {
		return apperrors.New(apperrors.ErrDecode, 400, "content contains NUL bytes")
	}
	return nil
}
