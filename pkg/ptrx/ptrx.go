// Package ptrx converts between values and pointers for optional fields.
package ptrx

import "time"

// To returns a pointer to v.
func To[T any](v T) *T {
	return &v
}

// Value dereferences p, returning the zero value for nil.
func Value[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// ValueOr dereferences p, returning def for nil.
func ValueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// NilIfZero returns nil for the zero value of T and a pointer otherwise.
func NilIfZero[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

func String(v string) *string      { return &v }
func Bool(v bool) *bool            { return &v }
func Int(v int) *int               { return &v }
func Time(v time.Time) *time.Time  { return &v }
func StringValue(p *string) string { return Value(p) }
func BoolValue(p *bool) bool       { return Value(p) }
