package comparer

import (
	"errors"
	"testing"

	"github.com/TaokyleYT/wapds/pkg/config"
	apperrors "github.com/TaokyleYT/wapds/pkg/errors"
)

func testComparer() *Comparer {
	cfg := config.Config{}
	cfg.Analyzer.HyphenPolicy = "keep"
	cfg.Analyzer.KeepApostrophes = true
	cfg.Compare.MaxReferences = 5
	return New(nil, cfg)
}

func TestValidate(t *testing.T) {
	c := testComparer()

	tests := []struct {
		name     string
		req      Request
		sentinel error
	}{
		{
			name: "overlap accepts multiple references",
			req:  Request{QueryID: 1, ReferenceIDs: []int64{2, 3}, Method: MethodOverlap},
		},
		{
			name: "valid cosine",
			req:  Request{QueryID: 1, ReferenceIDs: []int64{2}, Method: MethodCosine},
		},
		{
			name: "valid both",
			req:  Request{QueryID: 1, ReferenceIDs: []int64{2}, Method: MethodBoth},
		},
		{
			name:     "unknown method",
			req:      Request{QueryID: 1, ReferenceIDs: []int64{2}, Method: "jaccard"},
			sentinel: apperrors.ErrInvalidInput,
		},
		{
			name:     "no references",
			req:      Request{QueryID: 1, Method: MethodOverlap},
			sentinel: apperrors.ErrConfiguration,
		},
		{
			name:     "too many references",
			req:      Request{QueryID: 1, ReferenceIDs: []int64{2, 3, 4, 5, 6, 7}, Method: MethodOverlap},
			sentinel: apperrors.ErrInvalidInput,
		},
		{
			name:     "self reference",
			req:      Request{QueryID: 1, ReferenceIDs: []int64{2, 1}, Method: MethodOverlap},
			sentinel: apperrors.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Validate(tt.req)
			if tt.sentinel == nil {
				if err != nil {
					t.Errorf("Validate = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Validate = %v, want %v", err, tt.sentinel)
			}
		})
	}
}
