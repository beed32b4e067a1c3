package entity

import "reflect"

// Clone returns a deep copy of src. Pointers, maps, slices and nested
// records are copied so the result can cross a goroutine boundary without
// sharing mutable state with the original. Cyclic graphs are not supported.
func Clone[T any](src T) T {
	v := reflect.ValueOf(src)
	if !v.IsValid() {
		return src
	}
	return deepCopy(v).Interface().(T)
}

func deepCopy(v reflect.Value) reflect.Value {
	t := v.Type()
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		n := reflect.New(t.Elem())
		n.Elem().Set(deepCopy(v.Elem()))
		if rec, ok := n.Interface().(Record); ok {
			rec.base().detach()
		}
		return n
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		n := reflect.New(t).Elem()
		n.Set(deepCopy(v.Elem()))
		return n
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		n := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			n.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return n
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(t)
		}
		n := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			n.Index(i).Set(deepCopy(v.Index(i)))
		}
		return n
	case reflect.Array:
		n := reflect.New(t).Elem()
		for i := 0; i < v.Len(); i++ {
			n.Index(i).Set(deepCopy(v.Index(i)))
		}
		return n
	case reflect.Struct:
		if t == timeType {
			return v
		}
		n := reflect.New(t).Elem()
		n.Set(v)
		for i := 0; i < n.NumField(); i++ {
			if f := n.Field(i); f.CanSet() {
				f.Set(deepCopy(v.Field(i)))
			}
		}
		if rec, ok := n.Addr().Interface().(Record); ok {
			rec.base().detach()
		}
		return n
	}
	return v
}
