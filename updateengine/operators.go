package updateengine

import "strings"

// applyInc implements $inc: numeric addition at path, creating missing paths
// as 0.
func applyInc(root any, path string, delta any) (any, error) {
	n, ok := toFloat64(delta)
	if !ok {
		return nil, errInvalidQuery("$inc requires a numeric operand at %q", path)
	}

	current, exists := getPath(root, path)
	base := 0.0
	if exists {
		cf, cok := toFloat64(current)
		if !cok {
			return nil, errInvalidQuery("$inc cannot apply to non-numeric existing value at %q", path)
		}
		base = cf
	}

	return setPath(root, path, base+n)
}

// applyMul implements $mul: numeric multiplication, creating missing paths
// as 0 (0 * n = 0).
func applyMul(root any, path string, factor any) (any, error) {
	n, ok := toFloat64(factor)
	if !ok {
		return nil, errInvalidQuery("$mul requires a numeric operand at %q", path)
	}

	current, exists := getPath(root, path)
	base := 0.0
	if exists {
		cf, cok := toFloat64(current)
		if !cok {
			return nil, errInvalidQuery("$mul cannot apply to non-numeric existing value at %q", path)
		}
		base = cf
	}

	return setPath(root, path, base*n)
}

// applyMinMax implements $min/$max: if absent, set to v; else keep whichever
// of current/v the comparison rule prefers.
func applyMinMax(root any, path string, v any, useMin bool) (any, error) {
	current, exists := getPath(root, path)
	if !exists {
		return setPath(root, path, v)
	}

	cmp, comparable := compare(current, v)
	if !comparable {
		op := "$max"
		if useMin {
			op = "$min"
		}
		return nil, errInvalidQuery("%s cannot compare incomparable values at %q", op, path)
	}

	takeNew := (useMin && cmp > 0) || (!useMin && cmp < 0)
	if takeNew {
		return setPath(root, path, v)
	}
	return root, nil
}

// asEachList reports whether x is an {$each: [...]} wrapper and returns its
// element list.
func asEachList(x any) ([]any, bool) {
	m, ok := x.(map[string]any)
	if !ok {
		return nil, false
	}
	each, ok := m["$each"]
	if !ok || len(m) != 1 {
		return nil, false
	}
	list, ok := each.([]any)
	if !ok {
		return nil, false
	}
	return list, true
}

// applyPush implements $push: append x to the array at path, creating an
// empty array if absent.
func applyPush(root any, path string, x any) (any, error) {
	current, exists := getPath(root, path)
	var arr []any
	if exists {
		existing, ok := current.([]any)
		if !ok {
			return nil, errInvalidQuery("$push requires an array at %q", path)
		}
		arr = existing
	}

	if each, isEach := asEachList(x); isEach {
		arr = append(arr, each...)
	} else {
		arr = append(arr, x)
	}

	return setPath(root, path, arr)
}

// applyAddToSet implements $addToSet: append x iff no existing element is
// deeply equal to it; {$each: [...]} dedupes against the array and within
// the incoming list.
func applyAddToSet(root any, path string, x any) (any, error) {
	current, exists := getPath(root, path)
	var arr []any
	if exists {
		existing, ok := current.([]any)
		if !ok {
			return nil, errInvalidQuery("$addToSet requires an array at %q", path)
		}
		arr = existing
	}

	contains := func(list []any, v any) bool {
		for _, item := range list {
			if deepEqualSemantic(item, v) {
				return true
			}
		}
		return false
	}

	var candidates []any
	if each, isEach := asEachList(x); isEach {
		candidates = each
	} else {
		candidates = []any{x}
	}

	for _, candidate := range candidates {
		if !contains(arr, candidate) {
			arr = append(arr, candidate)
		}
	}

	return setPath(root, path, arr)
}

// isOperatorMap reports whether m is a non-empty map whose keys are all
// operator names (begin with "$").
func isOperatorMap(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

// applyFieldPredicate evaluates a single operator-map predicate against a
// field's value, using the same comparison rule as $min/$max. Predicates on
// a missing field never match.
func applyFieldPredicate(fieldVal any, exists bool, opMap map[string]any) bool {
	if !exists {
		return false
	}
	for op, operand := range opMap {
		switch op {
		case "$eq":
			if !deepEqualSemantic(fieldVal, operand) {
				return false
			}
		case "$ne":
			if deepEqualSemantic(fieldVal, operand) {
				return false
			}
		case "$gt":
			cmp, ok := compare(fieldVal, operand)
			if !ok || cmp <= 0 {
				return false
			}
		case "$gte":
			cmp, ok := compare(fieldVal, operand)
			if !ok || cmp < 0 {
				return false
			}
		case "$lt":
			cmp, ok := compare(fieldVal, operand)
			if !ok || cmp >= 0 {
				return false
			}
		case "$lte":
			cmp, ok := compare(fieldVal, operand)
			if !ok || cmp > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// matchPullCriterion implements the three criterion shapes $pull accepts:
// (a) equality against a non-operator scalar/Date/null, (b) an operator-map
// predicate applied directly to the element (never to object elements), (c)
// a plain-object subset predicate.
func matchPullCriterion(element any, criterion any) bool {
	criterionMap, isMap := criterion.(map[string]any)
	if !isMap {
		return deepEqualSemantic(element, criterion)
	}

	if isOperatorMap(criterionMap) {
		if _, isObj := element.(map[string]any); isObj {
			return false
		}
		return applyFieldPredicate(element, true, criterionMap)
	}

	// Subset match: every key/value in criterion must hold on the element.
	elementMap, isObj := element.(map[string]any)
	if !isObj {
		return false
	}
	for key, want := range criterionMap {
		fieldVal, exists := elementMap[key]
		if wantOp, ok := want.(map[string]any); ok && isOperatorMap(wantOp) {
			if !applyFieldPredicate(fieldVal, exists, wantOp) {
				return false
			}
			continue
		}
		if !exists || !deepEqualSemantic(fieldVal, want) {
			return false
		}
	}
	return true
}

// applyPull implements $pull: remove every array element matching criterion.
func applyPull(root any, path string, criterion any) (any, error) {
	current, exists := getPath(root, path)
	if !exists {
		return root, nil
	}
	arr, ok := current.([]any)
	if !ok {
		return nil, errInvalidQuery("$pull requires an array at %q", path)
	}

	filtered := make([]any, 0, len(arr))
	for _, element := range arr {
		if !matchPullCriterion(element, criterion) {
			filtered = append(filtered, element)
		}
	}

	return setPath(root, path, filtered)
}
