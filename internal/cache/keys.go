package cache

import "reflect"

// hashable reports whether key can index a Go map without panicking.
//
// Only interface-typed K can hold an uncomparable dynamic value (a slice,
// map or func stored in an any); for every other K this is always true.
func hashable[K comparable](key K) bool {
	v := reflect.ValueOf(any(key))
	if !v.IsValid() {
		// untyped nil is a valid interface map key
		return true
	}
	return v.Comparable()
}
