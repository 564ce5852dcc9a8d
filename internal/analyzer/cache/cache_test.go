package cache

import (
	"strings"
	"testing"

	"github.com/TaokyleYT/wapds/internal/analyzer/comparer"
)

func TestBuildKeyDeterministic(t *testing.T) {
	req := comparer.Request{QueryID: 1, ReferenceIDs: []int64{2, 3}, Method: comparer.MethodBoth}
	if buildKey(req) != buildKey(req) {
		t.Error("same request produced different keys")
	}
	if !strings.HasPrefix(buildKey(req), keyPrefix) {
		t.Errorf("key %q missing prefix %q", buildKey(req), keyPrefix)
	}
}

func TestBuildKeyDiscriminates(t *testing.T) {
	base := comparer.Request{QueryID: 1, ReferenceIDs: []int64{2, 3}, Method: comparer.MethodBoth}
	yes := true

	variants := []comparer.Request{
		{QueryID: 9, ReferenceIDs: []int64{2, 3}, Method: comparer.MethodBoth},
		{QueryID: 1, ReferenceIDs: []int64{2}, Method: comparer.MethodBoth},
		{QueryID: 1, ReferenceIDs: []int64{3, 2}, Method: comparer.MethodBoth}, // order decides tie ranking
		{QueryID: 1, ReferenceIDs: []int64{2, 3}, Method: comparer.MethodOverlap},
		{QueryID: 1, ReferenceIDs: []int64{2, 3}, Method: comparer.MethodBoth, Normalized: &yes},
	}

	baseKey := buildKey(base)
	for i, v := range variants {
		if buildKey(v) == baseKey {
			t.Errorf("variant %d collides with base key", i)
		}
	}
}

func TestBuildKeyAmbiguity(t *testing.T) {
	// Joining ids must not let {12, 3} collide with {1, 23}.
	a := comparer.Request{QueryID: 1, ReferenceIDs: []int64{12, 3}, Method: comparer.MethodOverlap}
	b := comparer.Request{QueryID: 1, ReferenceIDs: []int64{1, 23}, Method: comparer.MethodOverlap}
	if buildKey(a) == buildKey(b) {
		t.Error("distinct reference lists collide")
	}
}
