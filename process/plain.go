package process

import (
	"fmt"
	"reflect"
)

// checkPlain rejects types whose in-memory form holds Go pointers (strings,
// slices, maps, pointers, interfaces, funcs, channels), directly or inside
// arrays and struct fields. Bytes copied from the target into such a value
// would be dereferenced as local pointers.
func checkPlain[T any]() error {
	rt := reflect.TypeFor[T]()
	if typeHasPointers(rt) {
		return fmt.Errorf("%s: %w", rt, ErrPointerType)
	}
	return nil
}

func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Interface, reflect.Func,
		reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
