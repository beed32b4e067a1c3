package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// convertScalar converts src into type t for the scalar kinds that travel
// loosely typed over the wire: JSON numbers into integers, numeric strings
// from query parameters, named string and bool types.
func convertScalar(src reflect.Value, t reflect.Type) (reflect.Value, error) {
	if n, ok := src.Interface().(json.Number); ok {
		src = reflect.ValueOf(n.String())
	}

	switch {
	case isInt(t.Kind()) || isUint(t.Kind()):
		switch {
		case isInt(src.Kind()):
			return toInteger(t, src.Int(), 0, false)
		case isUint(src.Kind()):
			return toInteger(t, 0, src.Uint(), true)
		case isFloat(src.Kind()):
			f := src.Float()
			if f != math.Trunc(f) {
				return reflect.Value{}, fmt.Errorf("cannot use fractional %v as %s", f, t)
			}
			if f < math.MinInt64 || f >= math.MaxUint64 {
				return reflect.Value{}, fmt.Errorf("%v overflows %s", f, t)
			}
			if f < 0 {
				return toInteger(t, int64(f), 0, false)
			}
			return toInteger(t, 0, uint64(f), true)
		case src.Kind() == reflect.String:
			if i, err := strconv.ParseInt(src.String(), 10, 64); err == nil {
				return toInteger(t, i, 0, false)
			}
			u, err := strconv.ParseUint(src.String(), 10, 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("cannot parse %q as %s", src.String(), t)
			}
			return toInteger(t, 0, u, true)
		}
	case isFloat(t.Kind()):
		switch {
		case isInt(src.Kind()) || isUint(src.Kind()) || isFloat(src.Kind()):
			return src.Convert(t), nil
		case src.Kind() == reflect.String:
			f, err := strconv.ParseFloat(src.String(), 64)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("cannot parse %q as %s", src.String(), t)
			}
			return reflect.ValueOf(f).Convert(t), nil
		}
	case t.Kind() == reflect.Bool:
		switch src.Kind() {
		case reflect.Bool:
			return src.Convert(t), nil
		case reflect.String:
			b, err := strconv.ParseBool(src.String())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("cannot parse %q as %s", src.String(), t)
			}
			return reflect.ValueOf(b).Convert(t), nil
		}
	case t.Kind() == reflect.String:
		if src.Kind() == reflect.String {
			return src.Convert(t), nil
		}
	case t.Kind() == reflect.Interface:
		if src.Type().Implements(t) {
			v := reflect.New(t).Elem()
			v.Set(src)
			return v, nil
		}
	}

	if src.Type().ConvertibleTo(t) && src.Kind() == t.Kind() {
		return src.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", src.Type(), t)
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// toInteger converts a signed (i) or unsigned (u) integer into t, rejecting
// values that do not fit.
func toInteger(t reflect.Type, i int64, u uint64, unsigned bool) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if isUint(t.Kind()) {
		if !unsigned {
			if i < 0 {
				return reflect.Value{}, fmt.Errorf("%d overflows %s", i, t)
			}
			u = uint64(i)
		}
		if v.OverflowUint(u) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", u, t)
		}
		v.SetUint(u)
		return v, nil
	}
	if unsigned {
		if u > math.MaxInt64 {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", u, t)
		}
		i = int64(u)
	}
	if v.OverflowInt(i) {
		return reflect.Value{}, fmt.Errorf("%d overflows %s", i, t)
	}
	v.SetInt(i)
	return v, nil
}
