package service

import "github.com/talentflow/recruiting/internal/core/domain"

// VerdictKind is the outcome of a guard decision.
type VerdictKind string

const (
	VerdictAllow    VerdictKind = "allow"
	VerdictWait     VerdictKind = "wait"
	VerdictRedirect VerdictKind = "redirect"
)

// Verdict tells a route wrapper what to do. Target is set for redirects only.
type Verdict struct {
	Kind   VerdictKind
	Target string
}

func allow() Verdict                   { return Verdict{Kind: VerdictAllow} }
func wait() Verdict                    { return Verdict{Kind: VerdictWait} }
func redirectTo(target string) Verdict { return Verdict{Kind: VerdictRedirect, Target: target} }

// Routes are the redirect targets used by the guards.
type Routes struct {
	Login string
	Home  string
}

// RequireSession allows authenticated sessions, asks the caller to wait while
// the session is still pending and sends everyone else to the login route.
func RequireSession(s domain.Session, routes Routes) Verdict {
	switch {
	case s.Status == domain.SessionPending:
		return wait()
	case s.Authenticated():
		return allow()
	}
	return redirectTo(routes.Login)
}

// RequireRole allows authenticated sessions whose role is in roles.
// super_admin is always allowed; every other denial goes to the home route.
// Route wrappers run RequireSession first so signed-out users land on login.
func RequireRole(s domain.Session, routes Routes, roles ...domain.Role) Verdict {
	if s.Status == domain.SessionPending {
		return wait()
	}
	if !s.Authenticated() {
		return redirectTo(routes.Home)
	}
	role := s.Role()
	if role == domain.RoleSuperAdmin {
		return allow()
	}
	for _, r := range roles {
		if r == role {
			return allow()
		}
	}
	return redirectTo(routes.Home)
}
