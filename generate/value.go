package generate

import (
	"reflect"
	"strings"
)

// toFloat widens any numeric value to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}

	return 0, false
}

// toInt narrows any integer value to int64.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}

	return 0, false
}

// looseEqual compares with numeric promotion, so YAML integers equal
// generated floats denoting the same number.
func looseEqual(a, b any) bool {
	af, aok := toFloat(a)

	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}

	return reflect.DeepEqual(a, b)
}

// compareValues orders two values; the second return is false when the pair
// has no ordering (including any nil operand).
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	af, aok := toFloat(a)

	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}

		return 0, true
	}

	as, aok := a.(string)

	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}

	return 0, false
}
