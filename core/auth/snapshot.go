package auth

import "github.com/trezcool/edutrack/core"

// Snapshot is the authentication state of a client at a point in time.
// A nil Session always comes with a nil User and a nil Profile.
type Snapshot struct {
	Session    *Session
	User       *User
	Profile    *Profile
	Loading    bool
	Err        error
	Generation uint64
}

func (s Snapshot) Role() Role {
	if s.Profile == nil {
		return RoleNone
	}
	return s.Profile.Role
}

func (s Snapshot) Authenticated() bool { return s.User != nil }

func (s Snapshot) Scope() core.Scope { return s.Profile.Scope() }

// Resolved reports whether the first session resolution has completed.
func Resolved(s Snapshot) bool { return !s.Loading }

type ActionKind int

const (
	// ActionStart marks the beginning of a resolution.
	ActionStart ActionKind = iota
	// ActionResolved stores the outcome of a session lookup, with or without a session.
	ActionResolved
	// ActionSignedOut clears the session, the user and the profile.
	ActionSignedOut
	// ActionFailed records a failed resolution and ends loading.
	ActionFailed
	// ActionError only records an error.
	ActionError
)

// Action is a write to a Snapshot. Generation is taken when the triggering event is received;
// a zero Generation marks an untagged write that neither orders nor is ordered.
type Action struct {
	Kind       ActionKind
	Generation uint64
	Session    *Session
	Profile    *Profile
	Err        error
}

// Stale reports whether a is older than the last write applied to s.
func (a Action) Stale(s Snapshot) bool {
	return a.Generation != 0 && a.Generation < s.Generation
}

// Reduce applies a to s. Stale actions leave s untouched.
func Reduce(s Snapshot, a Action) Snapshot {
	if a.Stale(s) {
		return s
	}

	next := s
	if a.Generation != 0 {
		next.Generation = a.Generation
	}

	switch a.Kind {
	case ActionStart:
		next.Loading = true
	case ActionResolved:
		next.Session = a.Session
		next.User = nil
		next.Profile = nil
		if a.Session != nil {
			usr := a.Session.User
			next.User = &usr
			next.Profile = a.Profile
		}
		next.Loading = false
		next.Err = nil
	case ActionSignedOut:
		next.Session = nil
		next.User = nil
		next.Profile = nil
		next.Loading = false
		next.Err = nil
	case ActionFailed:
		next.Loading = false
		next.Err = a.Err
	case ActionError:
		next.Err = a.Err
	}

	if next.Session == nil {
		next.User = nil
		next.Profile = nil
	}
	return next
}
