package updateengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareNumeric(t *testing.T) {
	cmp, ok := compare(float64(1), float64(2))
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)

	cmp, ok = compare(5, int64(5))
	assert.True(t, ok)
	assert.Equal(t, 0, cmp)
}

func TestCompareStringsLexicographic(t *testing.T) {
	cmp, ok := compare("apple", "banana")
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestCompareTimeInstants(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	cmp, ok := compare(now, later)
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestCompareCrossTypeIsNotComparable(t *testing.T) {
	_, ok := compare(float64(1), "1")
	assert.False(t, ok)

	_, ok = compare("x", time.Now())
	assert.False(t, ok)
}

func TestDeepEqualSemanticDates(t *testing.T) {
	now := time.Now()
	sameInstantDifferentLocation := now.UTC()

	assert.True(t, deepEqualSemantic(now, sameInstantDifferentLocation))
	assert.False(t, deepEqualSemantic(now, now.Add(time.Second)))
}

func TestDeepEqualSemanticStructural(t *testing.T) {
	a := map[string]any{"x": float64(1), "y": []any{"a", "b"}}
	b := map[string]any{"x": float64(1), "y": []any{"a", "b"}}
	c := map[string]any{"x": float64(2)}

	assert.True(t, deepEqualSemantic(a, b))
	assert.False(t, deepEqualSemantic(a, c))
}
