// Package auth holds the authentication snapshot of a client: who is signed in, with which profile,
// and the rules deciding where that client may navigate.
package auth

import (
	"time"

	"github.com/trezcool/edutrack/core"
)

type Role string

// Roles
const (
	RoleNone        Role = ""
	RoleSuperAdmin  Role = "super_admin"
	RoleSchoolAdmin Role = "school_admin"
)

var Roles = []Role{RoleSuperAdmin, RoleSchoolAdmin}

// ParseRole maps unknown values to RoleNone.
func ParseRole(s string) Role {
	switch r := Role(s); r {
	case RoleSuperAdmin, RoleSchoolAdmin:
		return r
	}
	return RoleNone
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the client's read-only copy of an identity provider session.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

func (s Session) ExpiresWithin(d time.Duration, now time.Time) bool {
	return !s.ExpiresAt.After(now.Add(d))
}

// Profile is the application-level record of a user: its role and tenant.
type Profile struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	SchoolID string `json:"school_id"`
}

// Scope returns the tenant rows this profile may access.
func (p *Profile) Scope() core.Scope {
	if p == nil {
		return core.Scope{}
	}
	switch p.Role {
	case RoleSuperAdmin:
		return core.Scope{All: true}
	case RoleSchoolAdmin:
		return core.Scope{SchoolID: p.SchoolID}
	}
	return core.Scope{}
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type EventKind string

// Identity provider events
const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventUserUpdated    EventKind = "USER_UPDATED"
)

type Event struct {
	Kind    EventKind
	Session *Session
}
