package fop

import "encoding/json"

// Optional is an update value for a nullable field. The zero value leaves
// the field untouched.
type Optional[T any] struct {
	value *T
	set   bool
}

// Set returns an Optional assigning v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{value: &v, set: true}
}

// Null returns an Optional clearing the field.
func Null[T any]() Optional[T] {
	return Optional[T]{set: true}
}

// IsSet reports whether the update touches the field.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// Value returns the assigned value, nil meaning null.
func (o Optional[T]) Value() *T {
	return o.value
}

// Any returns the assigned value as an untyped value, nil meaning null.
func (o Optional[T]) Any() any {
	if o.value == nil {
		return nil
	}
	return *o.value
}

// UnmarshalJSON makes an explicit JSON null clear the field and an absent
// key leave it untouched.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		o.value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.value = &v
	return nil
}

// LinkSet updates the links of a many-to-many relation. Set, when non-nil,
// replaces every link and runs before Connect and Disconnect; an empty
// non-nil Set clears the relation.
type LinkSet struct {
	Set        []string `json:"set,omitempty"`
	Connect    []string `json:"connect,omitempty"`
	Disconnect []string `json:"disconnect,omitempty"`
}

// Empty reports whether the link set changes nothing.
func (l LinkSet) Empty() bool {
	return l.Set == nil && len(l.Connect) == 0 && len(l.Disconnect) == 0
}
