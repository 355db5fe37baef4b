package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Optional records whether a JSON field was present, and whether it was an explicit null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null returns a present Optional carrying an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Present reports whether the field was supplied with a non-null value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// UnmarshalJSON is only invoked for keys that appear in the payload,
// which is what distinguishes "absent" from "null".
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		o.Null = true
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON renders an unset or null Optional as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UserPatch is a partial update of a User.
//
// Name and Email are applied only when present and non-blank; they can never
// be cleared. Age is applied when present, and an explicit null clears it.
type UserPatch struct {
	Name  Optional[string] `json:"name"`
	Email Optional[string] `json:"email"`
	Age   Optional[int]    `json:"age"`
}

func (p UserPatch) hasName() bool {
	return p.Name.Present() && strings.TrimSpace(p.Name.Value) != ""
}

func (p UserPatch) hasEmail() bool {
	return p.Email.Present() && strings.TrimSpace(p.Email.Value) != ""
}

// IsEmpty reports whether applying the patch would leave any user unchanged.
func (p UserPatch) IsEmpty() bool {
	return !p.hasName() && !p.hasEmail() && !p.Age.Set
}

// Apply mutates u in place.
func (p UserPatch) Apply(u *User) {
	if p.hasName() {
		u.Name = p.Name.Value
	}
	if p.hasEmail() {
		u.Email = p.Email.Value
	}
	if p.Age.Set {
		if p.Age.Null {
			u.Age = nil
		} else {
			age := p.Age.Value
			u.Age = &age
		}
	}
}

// Columns returns the column/value pairs the patch writes, keyed by db column name.
// A nil value means SQL NULL.
func (p UserPatch) Columns() map[string]any {
	cols := make(map[string]any, 3)
	if p.hasName() {
		cols["name"] = p.Name.Value
	}
	if p.hasEmail() {
		cols["email"] = p.Email.Value
	}
	if p.Age.Set {
		if p.Age.Null {
			cols["age"] = nil
		} else {
			cols["age"] = p.Age.Value
		}
	}
	return cols
}
