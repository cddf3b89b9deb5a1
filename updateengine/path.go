package updateengine

import (
	"strconv"
	"strings"
)

// splitPath breaks dot notation ("a.b.c") into its components. Numeric
// components index arrays.
func splitPath(path string) []string {
	return strings.Split(path, ".")
}

func parseIndex(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// getPath reads the value at the dotted path, reporting whether it exists.
func getPath(root any, path string) (any, bool) {
	return getSegments(root, splitPath(path))
}

func getSegments(root any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return root, true
	}
	seg := segments[0]
	rest := segments[1:]

	if idx, isIdx := parseIndex(seg); isIdx {
		arr, ok := root.([]any)
		if !ok || idx < 0 || idx >= len(arr) {
			return nil, false
		}
		return getSegments(arr[idx], rest)
	}

	m, ok := root.(map[string]any)
	if !ok {
		return nil, false
	}
	v, exists := m[seg]
	if !exists {
		return nil, false
	}
	return getSegments(v, rest)
}

// setPath writes value at the dotted path, creating missing intermediate
// objects/arrays as needed, and returns the (possibly reallocated) root.
func setPath(root any, path string, value any) (any, error) {
	return setSegments(root, splitPath(path), value)
}

func setSegments(root any, segments []string, value any) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	seg := segments[0]
	rest := segments[1:]

	if idx, isIdx := parseIndex(seg); isIdx {
		arr, ok := root.([]any)
		if !ok {
			if root != nil {
				return nil, errTypeConflict(seg)
			}
			arr = []any{}
		}
		for len(arr) <= idx {
			arr = append(arr, nil)
		}
		child, err := setSegments(arr[idx], rest, value)
		if err != nil {
			return nil, err
		}
		arr[idx] = child
		return arr, nil
	}

	m, ok := root.(map[string]any)
	if !ok {
		if root != nil {
			return nil, errTypeConflict(seg)
		}
		m = map[string]any{}
	}
	child, err := setSegments(m[seg], rest, value)
	if err != nil {
		return nil, err
	}
	m[seg] = child
	return m, nil
}

// unsetPath removes the leaf at path. An array index is left as an
// Undefined slot rather than removed, preserving array length and staying
// distinguishable from an explicit null; non-existent paths are a no-op.
func unsetPath(root any, path string) any {
	return unsetSegments(root, splitPath(path))
}

func unsetSegments(root any, segments []string) any {
	if len(segments) == 0 {
		return root
	}
	seg := segments[0]
	rest := segments[1:]

	if idx, isIdx := parseIndex(seg); isIdx {
		arr, ok := root.([]any)
		if !ok || idx < 0 || idx >= len(arr) {
			return root
		}
		if len(rest) == 0 {
			arr[idx] = Undefined
			return arr
		}
		arr[idx] = unsetSegments(arr[idx], rest)
		return arr
	}

	m, ok := root.(map[string]any)
	if !ok {
		return root
	}
	if len(rest) == 0 {
		delete(m, seg)
		return root
	}
	child, exists := m[seg]
	if !exists {
		return root
	}
	m[seg] = unsetSegments(child, rest)
	return root
}
