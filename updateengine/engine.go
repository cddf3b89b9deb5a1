package updateengine

import "strings"

// orderedOperators fixes the dispatch order operators apply in within one
// update. Callers must not touch the same leaf path from two operators in
// one update; the engine does not detect that case.
var orderedOperators = []string{
	"$set", "$unset", "$inc", "$mul", "$min", "$max", "$push", "$pull", "$addToSet",
}

var knownOperators = func() map[string]bool {
	known := make(map[string]bool, len(orderedOperators))
	for _, op := range orderedOperators {
		known[op] = true
	}
	return known
}()

// Engine is a stateless operator interpreter. It has no fields; a
// zero-value Engine{} is ready to use.
type Engine struct{}

// New returns a ready-to-use Engine.
func New() *Engine { return &Engine{} }

// Apply interprets update against doc and returns a new document, never
// mutating doc.
func (e *Engine) Apply(doc any, update map[string]any) (any, error) {
	if len(update) == 0 {
		return nil, errInvalidQuery("update must be a non-empty operator document")
	}
	for key := range update {
		if !strings.HasPrefix(key, "$") {
			return nil, errInvalidQuery("update keys must all be operators beginning with $, got %q", key)
		}
		if !knownOperators[key] {
			return nil, errInvalidQuery("unknown operator %q", key)
		}
	}

	result := deepCopy(doc)

	for _, opName := range orderedOperators {
		raw, present := update[opName]
		if !present {
			continue
		}
		args, ok := raw.(map[string]any)
		if !ok {
			return nil, errInvalidQuery("%s requires an operator document, got %T", opName, raw)
		}

		var err error
		for path, value := range args {
			result, err = e.applyOne(opName, result, path, value)
			if err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

func (e *Engine) applyOne(op string, root any, path string, value any) (any, error) {
	switch op {
	case "$set":
		return setPath(root, path, deepCopy(value))
	case "$unset":
		return unsetPath(root, path), nil
	case "$inc":
		return applyInc(root, path, value)
	case "$mul":
		return applyMul(root, path, value)
	case "$min":
		return applyMinMax(root, path, value, true)
	case "$max":
		return applyMinMax(root, path, value, false)
	case "$push":
		return applyPush(root, path, deepCopy(value))
	case "$pull":
		return applyPull(root, path, value)
	case "$addToSet":
		return applyAddToSet(root, path, deepCopy(value))
	default:
		return nil, errInvalidQuery("unknown operator %q", op)
	}
}
