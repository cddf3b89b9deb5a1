package updateengine

import (
	"reflect"
	"time"
)

// toFloat64 normalises any numeric representation (int, int64, float64, ...)
// to a float64, reporting whether v was numeric at all.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// compare implements the shared comparison rule used by $min/$max and the
// $pull operator-map predicates: numbers compare numerically, strings
// lexicographically, times by instant. Cross-type comparisons are not
// comparable (comparable=false).
func compare(a, b any) (cmp int, comparable bool) {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			switch {
			case as < bs:
				return -1, true
			case as > bs:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	return 0, false
}

// deepEqualSemantic implements equality for $eq/$pull/$addToSet dedup:
// Dates compare by timestamp, everything else by deep structural equality.
func deepEqualSemantic(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok || bok {
		if aok && bok {
			return at.Equal(bt)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
