package entity

import (
	"fmt"
	"reflect"
	"strings"

	"go.jacobcolvin.com/eventsim/schema"
)

// StatePrefix addresses the state map in predicate fields, as in
// "state.purchase_count". Any other field walks the data map by dotted path.
const StatePrefix = "state."

// Predicate is a single selection condition against an entity.
type Predicate struct {
	Field    string
	Operator string
	Value    any
}

// Matches reports whether e satisfies every predicate (conjunction). An
// unknown operator fails with [schema.ErrInvalidSchema]. Missing fields
// yield nil, which propagates false through ordering comparisons.
func Matches(e *Entity, filters []Predicate) (bool, error) {
	for _, f := range filters {
		actual := fieldValue(e, f.Field)

		ok, err := apply(f.Operator, actual, f.Value)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func fieldValue(e *Entity, field string) any {
	if key, ok := strings.CutPrefix(field, StatePrefix); ok {
		return e.State[key]
	}

	return e.DataField(field)
}

func apply(operator string, actual, expected any) (bool, error) {
	switch operator {
	case "eq":
		return looseEqual(actual, expected), nil
	case "ne":
		return !looseEqual(actual, expected), nil
	case "gt":
		cmp, ok := compare(actual, expected)

		return ok && cmp > 0, nil
	case "lt":
		cmp, ok := compare(actual, expected)

		return ok && cmp < 0, nil
	case "ge":
		cmp, ok := compare(actual, expected)

		return ok && cmp >= 0, nil
	case "le":
		cmp, ok := compare(actual, expected)

		return ok && cmp <= 0, nil
	case "contains":
		return contains(actual, expected), nil
	case "not_contains":
		return !contains(actual, expected), nil
	case "in":
		return member(expected, actual), nil
	case "not_in":
		return !member(expected, actual), nil
	}

	return false, fmt.Errorf("%w: unknown operator %q", schema.ErrInvalidSchema, operator)
}

// looseEqual compares values with numeric promotion, so an int64 from YAML
// equals a float64 from generation when they denote the same number.
func looseEqual(a, b any) bool {
	af, aok := toFloat(a)

	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}

	return reflect.DeepEqual(a, b)
}

// compare orders two values. The second return is false when the pair has
// no ordering, including any nil operand.
func compare(a, b any) (int, bool) {
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

// contains reports whether container holds item: substring for strings,
// membership for slices.
func contains(container, item any) bool {
	switch c := container.(type) {
	case string:
		if s, ok := item.(string); ok {
			return strings.Contains(c, s)
		}

		return false
	case []any:
		for _, v := range c {
			if looseEqual(v, item) {
				return true
			}
		}
	}

	return false
}

// member reports whether item is an element of list.
func member(list, item any) bool {
	l, ok := list.([]any)
	if !ok {
		return false
	}

	for _, v := range l {
		if looseEqual(v, item) {
			return true
		}
	}

	return false
}

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

// addNumeric adds delta to current, treating a missing (nil) current as
// zero. Integer pairs stay integers; any float operand promotes the result.
func addNumeric(current, delta any) (any, error) {
	if current == nil {
		current = int64(0)
	}

	ci, ciok := toInt(current)

	di, diok := toInt(delta)
	if ciok && diok {
		return ci + di, nil
	}

	cf, cfok := toFloat(current)

	df, dfok := toFloat(delta)
	if cfok && dfok {
		return cf + df, nil
	}

	return nil, fmt.Errorf("%w: cannot add %T to %T", ErrTypeMismatch, delta, current)
}

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
