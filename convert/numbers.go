package convert

import (
	"fmt"
	"math"
	"reflect"

	"github.com/icodeforyou/spotprice-go/types"
)

// StdRound rounds half up: the scaled value plus 0.5 is truncated toward zero.
// Negative decimals round to tens, hundreds and so on, e.g.
// StdRound(1234.5678, -2) is 1200.
func StdRound(value float64, decimals int) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: cannot round non-finite value %v", types.ErrInput, value)
	}
	if decimals >= 0 {
		p := math.Pow10(decimals)
		return math.Trunc(value*p+0.5) / p, nil
	}
	p := math.Pow10(-decimals)
	return math.Trunc(value/p+0.5) * p, nil
}

// StdRoundAny is StdRound for dynamically typed input, e.g. decoded JSON.
// value must be an integer or float kind and decimals an integer kind.
func StdRoundAny(value any, decimals any) (float64, error) {
	v, ok := toFloat(value)
	if !ok {
		return 0, fmt.Errorf("%w: expected value to round to be an int or a float, but the type was %T", types.ErrInput, value)
	}
	d, ok := toInt(decimals)
	if !ok {
		return 0, fmt.Errorf("%w: expected number of decimals to be an int, but the type was %T", types.ErrInput, decimals)
	}
	return StdRound(v, d)
}

func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int(rv.Uint()), true
	default:
		return 0, false
	}
}
