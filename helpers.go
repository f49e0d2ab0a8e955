package profile

import (
	"reflect"
	"strconv"
	"strings"
)

// *********** Conversions ***********

// ToFloat converts numeric types, and strings that parse as numbers, to *float64. Anything else is nil.
func ToFloat(x any) *float64 {
	if x == nil {
		return nil
	}

	if f, ok := x.(float64); ok {
		return Float(f)
	}

	if p, ok := x.(*float64); ok {
		return clone(p)
	}

	xv := reflect.ValueOf(x)
	if xv.Kind() == reflect.Pointer {
		if xv.IsNil() {
			return nil
		}

		xv = xv.Elem()
	}

	if xv.CanFloat() {
		return Float(xv.Float())
	}

	if xv.CanInt() {
		return Float(float64(xv.Int()))
	}

	if xv.CanUint() {
		return Float(float64(xv.Uint()))
	}

	if xv.Kind() == reflect.String {
		if f, e := strconv.ParseFloat(strings.TrimSpace(xv.String()), 64); e == nil {
			return Float(f)
		}
	}

	return nil
}

// *********** Other ***********

func has[C comparable](needle C, haystack []C) bool {
	return position(needle, haystack) >= 0
}

func position[C comparable](needle C, haystack []C) int {
	for ind, straw := range haystack {
		if needle == straw {
			return ind
		}
	}

	return -1
}
