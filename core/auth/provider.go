package auth

import (
	"context"
	"errors"
)

var ErrProfileNotFound = errors.New("profile not found")

type (
	// IdentityProvider is the client-side view of the service owning credentials and sessions.
	IdentityProvider interface {
		// GetSession returns the current session, or nil when signed out.
		GetSession(ctx context.Context) (*Session, error)
		SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error)
		SignOut(ctx context.Context) error
		// UpdatePassword changes the password of the signed-in user.
		UpdatePassword(ctx context.Context, pwd string) (*Session, error)
		Subscribe() Subscription
	}

	// Subscription delivers auth-state events until it is released.
	Subscription interface {
		Events() <-chan Event
		Unsubscribe()
	}

	ProfileStore interface {
		// GetProfile returns ErrProfileNotFound when the user has no profile row.
		GetProfile(ctx context.Context, userID string) (Profile, error)
	}

	// CachedRole is the denormalized copy of a profile kept for synchronous navigation lookups.
	CachedRole struct {
		Role     Role   `json:"user_role"`
		SchoolID string `json:"school_id"`
	}

	// RoleCache is written whenever a profile is fetched and cleared on sign-out.
	RoleCache interface {
		Load() (CachedRole, bool)
		Store(CachedRole) error
		Clear() error
	}
)
