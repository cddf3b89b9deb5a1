package updateengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPathNavigatesNestedObjectsAndArrays(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{
			"list": []any{float64(1), float64(2), map[string]any{"b": "x"}},
		},
	}

	v, ok := getPath(doc, "a.list.2.b")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = getPath(doc, "a.list.9")
	assert.False(t, ok, "out-of-range index must report absent")

	_, ok = getPath(doc, "missing.path")
	assert.False(t, ok)
}

func TestSetPathCreatesMissingIntermediateContainers(t *testing.T) {
	out, err := setPath(map[string]any{}, "a.b.0.c", "x")
	require.NoError(t, err)

	v, ok := getPath(out, "a.b.0.c")
	require.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestSetPathDetectsTypeConflict(t *testing.T) {
	_, err := setPath(map[string]any{"a": "scalar"}, "a.b", "x")
	assert.Error(t, err)
}

func TestSetPathArrayGrowsWithNilFill(t *testing.T) {
	out, err := setPath(map[string]any{}, "arr.2", "x")
	require.NoError(t, err)

	arr, ok := getPath(out, "arr")
	require.True(t, ok)
	list := arr.([]any)
	require.Len(t, list, 3)
	assert.Nil(t, list[0])
	assert.Nil(t, list[1])
	assert.Equal(t, "x", list[2])
}

func TestUnsetPathRemovesLeafLeavingArrayLengthIntact(t *testing.T) {
	doc := map[string]any{"arr": []any{"a", "b", "c"}}
	out := unsetPath(doc, "arr.1")

	arr, _ := getPath(out, "arr")
	list := arr.([]any)
	require.Len(t, list, 3)
	assert.Equal(t, Undefined, list[1])
}

func TestUnsetPathArrayIndexIsDistinctFromExplicitNull(t *testing.T) {
	doc := map[string]any{"arr": []any{"a", nil, "c"}}
	out := unsetPath(doc, "arr.2")

	arr, _ := getPath(out, "arr")
	list := arr.([]any)
	assert.Nil(t, list[1], "an explicit null written by $set must remain nil")
	assert.Equal(t, Undefined, list[2], "an unset array slot must be the Undefined sentinel, not nil")
	assert.NotEqual(t, list[1], list[2])
}

func TestUnsetPathOnMissingPathIsNoOp(t *testing.T) {
	doc := map[string]any{"a": float64(1)}
	out := unsetPath(doc, "b.c")
	assert.Equal(t, map[string]any{"a": float64(1)}, out)
}

func TestUnsetPathRemovesObjectKey(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": "x", "c": "y"}}
	out := unsetPath(doc, "a.b")

	a, _ := getPath(out, "a")
	assert.Equal(t, map[string]any{"c": "y"}, a)
}
