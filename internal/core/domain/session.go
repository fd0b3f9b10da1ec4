package domain

// SessionStatus is the externally visible state of the process session.
type SessionStatus string

const (
	SessionPending         SessionStatus = "pending"
	SessionAuthenticated   SessionStatus = "authenticated"
	SessionUnauthenticated SessionStatus = "unauthenticated"
	SessionError           SessionStatus = "error"
)

// Session is an immutable snapshot combining a Principal and its Profile.
// A new value is built on every change; published snapshots are never
// modified in place.
type Session struct {
	Status    SessionStatus
	Principal *Principal
	Profile   *Profile
	// Error is the last reconciliation error. An authenticated session may
	// still carry one when it runs on a fallback profile.
	Error error
}

// PendingSession is the state before the identity provider first reports.
func PendingSession() Session {
	return Session{Status: SessionPending}
}

// SignedOutSession is the state with no principal.
func SignedOutSession() Session {
	return Session{Status: SessionUnauthenticated}
}

// NewSession derives the status from principal and profile:
// authenticated iff both are present and the profile is active.
func NewSession(principal *Principal, profile *Profile, err error) Session {
	switch {
	case principal == nil:
		return Session{Status: SessionUnauthenticated, Error: err}
	case profile == nil:
		if err == nil {
			err = ErrUnknown
		}
		return Session{Status: SessionError, Principal: principal, Error: err}
	case !profile.IsActive:
		if err == nil {
			err = ErrAccountDisabled
		}
		return Session{Status: SessionError, Principal: principal, Profile: profile, Error: err}
	}
	return Session{Status: SessionAuthenticated, Principal: principal, Profile: profile, Error: err}
}

// Authenticated reports whether the session grants access.
func (s Session) Authenticated() bool {
	return s.Status == SessionAuthenticated && s.Principal != nil && s.Profile != nil && s.Profile.IsActive
}

// Role returns the profile role, or "" when there is no profile.
func (s Session) Role() Role {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

// Can reports whether the session holds permission p.
func (s Session) Can(p Permission) bool {
	if !s.Authenticated() {
		return false
	}
	return s.Profile.Role.Can(p)
}

// Permissions lists what the session may do.
func (s Session) Permissions() []Permission {
	if !s.Authenticated() {
		return nil
	}
	return s.Profile.Role.Permissions()
}
