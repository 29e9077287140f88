// Package model defines domain entities shared by the store, backends and services.
package model

import (
	"strings"
	"time"
)

// Gender is the self-reported gender on a profile.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid reports whether g is one of the known values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Defaults applied to a fresh account when the caller does not supply them.
const (
	DefaultAge    = 25
	DefaultGender = GenderOther
)

// User is the public account record. ID is immutable once created.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"` // unique
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender Gender `json:"gender"`
}

// Credential is a User plus its plaintext password as kept by the local backend.
// It never leaves the backend.
type Credential struct {
	User
	Password string `json:"password"`
}

// Session identifies the signed-in user of this client. At most one exists at a time.
type Session struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// ProfileDefaults are optional sign-up attributes. Zero values fall back to defaults.
type ProfileDefaults struct {
	Name   string
	Age    int
	Gender Gender
}

// ProfileUpdate carries editable profile fields. Nil fields are left as is.
type ProfileUpdate struct {
	Name   *string
	Age    *int
	Gender *Gender
}

// NewUser builds a User for email applying profile defaults.
func NewUser(id, email string, p ProfileDefaults) User {
	u := User{ID: id, Email: email, Name: p.Name, Age: p.Age, Gender: p.Gender}
	if u.Name == "" {
		u.Name, _, _ = strings.Cut(email, "@")
	}
	if u.Age <= 0 {
		u.Age = DefaultAge
	}
	if !u.Gender.Valid() {
		u.Gender = DefaultGender
	}
	return u
}

// Apply returns u with the non-nil fields of p.
func (p ProfileUpdate) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	return u
}

// AuthEvent is broadcast to auth-state subscribers when the session changes.
type AuthEvent string

const (
	EventSignedIn    AuthEvent = "SIGNED_IN"
	EventSignedOut   AuthEvent = "SIGNED_OUT"
	EventUserUpdated AuthEvent = "USER_UPDATED"
)

// Reserved record columns injected on insert.
const (
	ColumnID        = "id"
	ColumnTimestamp = "timestamp"
	ColumnUserID    = "user_id"
)

// Record is a schemaless table row. Values follow encoding/json decoding rules
// (strings, float64, bool, nil, []any, map[string]any).
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the injected record id, if any.
func (r Record) ID() string {
	s, _ := r[ColumnID].(string)
	return s
}

// Filter selects rows whose EqualsColumn equals EqualsValue, ordered by OrderColumn.
type Filter struct {
	EqualsColumn string
	EqualsValue  any
	OrderColumn  string
	Ascending    bool
}

// Account is the server-side user row. Password material never leaves the server.
type Account struct {
	User
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-user salt
	CreatedAt time.Time
}
