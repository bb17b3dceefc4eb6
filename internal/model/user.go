// Package model defines the data structures used throughout the application.
package model

// User is an account that can own todo items.
//
// A user authenticates either with a local password (PasswordHash set) or
// through Google (GoogleID set), or both. An account with neither can never
// log in. Users are created by registration or by the first Google login and
// are never updated or deleted afterwards.
type User struct {
	ID           int64   `json:"id"`
	GoogleID     *string `json:"google_id,omitempty"`
	Email        string  `json:"email"`
	PasswordHash *string `json:"-"` // bcrypt hash; never serialized
	Name         string  `json:"name"`
}

// HasPassword reports whether the account can use local email/password login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
