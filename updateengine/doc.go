// Package updateengine implements a stateless mutation operator interpreter
// over plain JSON documents: Apply(doc, update) -> newDoc, never mutating
// doc. Supported operators are $set, $unset, $inc, $mul, $min, $max, $push,
// $pull and $addToSet. Matching documents against a query predicate is a
// separate concern this package does not implement.
package updateengine

// UndefinedType marks an array slot that was explicitly unset, as opposed to
// one holding an explicit JSON null written by $set. JSON itself has no
// undefined, so this sentinel only has meaning for documents held in memory
// between Apply calls; it is never produced by decoding external JSON.
type UndefinedType struct{}

// Undefined is the sentinel value for an explicitly-unset array slot.
var Undefined = UndefinedType{}

// deepCopy recursively clones maps, slices, and scalars so Apply can mutate
// the clone freely without ever touching the caller's original document.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		clone := make(map[string]any, len(val))
		for k, child := range val {
			clone[k] = deepCopy(child)
		}
		return clone
	case []any:
		clone := make([]any, len(val))
		for i, child := range val {
			clone[i] = deepCopy(child)
		}
		return clone
	default:
		return val
	}
}
