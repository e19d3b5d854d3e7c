package auth

import "net/url"

// Paths
const (
	LoginPath           = "/login"
	HomePath            = "/"
	SuperDashboardPath  = "/dashboard/super"
	SchoolDashboardPath = "/dashboard/school"
)

type DecisionKind int

const (
	// Pending means no routing decision can be made yet; render a placeholder.
	Pending DecisionKind = iota
	Admit
	Redirect
)

func (k DecisionKind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Admit:
		return "admit"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

type Decision struct {
	Kind     DecisionKind
	Location string // set for Redirect
}

// DefaultPath is the landing page of a role.
func DefaultPath(r Role) string {
	switch r {
	case RoleSuperAdmin:
		return SuperDashboardPath
	case RoleSchoolAdmin:
		return SchoolDashboardPath
	}
	return HomePath
}

// LoginLocation is the login page remembering the originally requested location.
func LoginLocation(requested string) string {
	if requested == "" || requested == LoginPath {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"next": {requested}}.Encode()
}

// RequireAuth admits any signed-in user.
func RequireAuth(s Snapshot, requested string) Decision {
	if s.Loading {
		return Decision{Kind: Pending}
	}
	if s.User == nil {
		return Decision{Kind: Redirect, Location: LoginLocation(requested)}
	}
	return Decision{Kind: Admit}
}

// RequireRole admits signed-in users whose role is allowed; an empty allowed set admits every signed-in user.
// Others are sent to the landing page of their own role.
func RequireRole(s Snapshot, allowed ...Role) Decision {
	if s.Loading {
		return Decision{Kind: Pending}
	}
	if s.User == nil {
		return Decision{Kind: Redirect, Location: LoginPath}
	}
	if len(allowed) == 0 {
		return Decision{Kind: Admit}
	}
	role := s.Role()
	for _, r := range allowed {
		if r == role {
			return Decision{Kind: Admit}
		}
	}
	return Decision{Kind: Redirect, Location: DefaultPath(role)}
}
