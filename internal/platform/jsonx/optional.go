package jsonx

import "encoding/json"

// Optional distinguishes a JSON field that was absent from one that was set,
// including the case where it was set to an explicit null. encoding/json only
// invokes UnmarshalJSON for keys present in the payload, so the zero value
// means "absent".
type Optional[T any] struct {
	set   bool
	null  bool
	value T
}

// Some constructs a present Optional holding the given value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{set: true, value: value}
}

// Null constructs a present Optional that was explicitly null.
func Null[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

// IsSet reports whether the field appeared in the payload at all.
func (o Optional[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was an explicit JSON null.
func (o Optional[T]) IsNull() bool { return o.set && o.null }

// Value returns the decoded value and whether it carries one (set and non-null).
func (o Optional[T]) Value() (T, bool) {
	if !o.set || o.null {
		var zero T
		return zero, false
	}
	return o.value, true
}

// Or returns the decoded value when present, the fallback when the field was
// absent, and the zero value for an explicit null.
func (o Optional[T]) Or(fallback T) T {
	if !o.set {
		return fallback
	}
	if o.null {
		var zero T
		return zero
	}
	return o.value
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		o.null = true
		var zero T
		o.value = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.value)
}

// MarshalJSON implements json.Marshaler.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
