package handler

import (
	"testing"

	"github.com/TaokyleYT/wapds/internal/analyzer/comparer"
)

func TestTopScore(t *testing.T) {
	tests := []struct {
		name        string
		result      comparer.Result
		wantPercent float64
		wantLevel   string
	}{
		{
			name: "overlap picks highest with its band",
			result: comparer.Result{
				Overlap: []comparer.OverlapScore{
					{ReferenceID: 1, Percent: 40, Level: "LOW"},
					{ReferenceID: 2, Percent: 85, Level: "HIGH"},
				},
			},
			wantPercent: 85,
			wantLevel:   "HIGH",
		},
		{
			name: "cosine only still carries a band",
			result: comparer.Result{
				Cosine: []comparer.CosineScore{
					{ReferenceID: 1, Score: 0.9},
					{ReferenceID: 2, Score: 0.3},
				},
			},
			wantPercent: 90,
			wantLevel:   "HIGH",
		},
		{
			name: "overlap wins over cosine for the reported score",
			result: comparer.Result{
				Overlap: []comparer.OverlapScore{
					{ReferenceID: 1, Percent: 10, Level: "MINIMAL"},
				},
				Cosine: []comparer.CosineScore{
					{ReferenceID: 1, Score: 0.95},
				},
			},
			wantPercent: 10,
			wantLevel:   "MINIMAL",
		},
		{
			name:        "empty result",
			result:      comparer.Result{},
			wantPercent: 0,
			wantLevel:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			percent, level := topScore(&tt.result)
			if percent != tt.wantPercent {
				t.Errorf("percent = %v, want %v", percent, tt.wantPercent)
			}
			if level != tt.wantLevel {
				t.Errorf("level = %q, want %q", level, tt.wantLevel)
			}
		})
	}
}
