package models

import (
	"errors"
	"strings"
)

var (
	ErrNameRequired  = errors.New("name is required")
	ErrEmailRequired = errors.New("email is required")
)

// User represents a user record held by the store.
// It maps to the `users` table when the SQLite backend is used.
type User struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	Age   *int   `db:"age" json:"age"`
}

// Validate checks the fields required at creation.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmailRequired
	}
	return nil
}

// Clone returns a deep copy so callers never share the Age pointer with the store.
func (u User) Clone() User {
	if u.Age != nil {
		age := *u.Age
		u.Age = &age
	}
	return u
}

// IntPtr is a small helper for building users with an age.
func IntPtr(v int) *int {
	return &v
}
