// Package optional provides a tagged present/absent value.
//
// A Value distinguishes "not supplied" from "supplied as the zero value", which
// a plain pointer or zero check cannot do for booleans and numbers. In JSON,
// a missing field and an explicit null both decode to an absent Value.
//
//	type Patch struct {
//		Owned optional.Value[bool] `json:"owned"`
//	}
//
//	if v, ok := patch.Owned.Get(); ok {
//		record.Owned = v
//	}
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds either a T or nothing.
type Value[T any] struct {
	value T
	set   bool
}

// Of returns a present Value.
func Of[T any](v T) Value[T] {
	return Value[T]{value: v, set: true}
}

// None returns an absent Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// FromPtr is present when p is non-nil.
func FromPtr[T any](p *T) Value[T] {
	if p == nil {
		return None[T]()
	}
	return Of(*p)
}

func (v Value[T]) Get() (T, bool) {
	return v.value, v.set
}

func (v Value[T]) IsSet() bool {
	return v.set
}

// Ptr returns a pointer to a copy of the value, or nil when absent.
func (v Value[T]) Ptr() *T {
	if !v.set {
		return nil
	}
	out := v.value
	return &out
}

func (v Value[T]) OrElse(fallback T) T {
	if !v.set {
		return fallback
	}
	return v.value
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = None[T]()
		return nil
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*v = Of(out)
	return nil
}
