package ports

import (
	"context"

	"github.com/talentflow/recruiting/internal/core/domain"
)

// Credentials are the direct-channel sign-in inputs.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Unsubscribe detaches a listener. It is safe to call more than once.
type Unsubscribe func()

// IdentityProvider is the external authentication service.
//
// Listeners receive the signed-in principal, or nil after a sign-out, token
// expiry or revocation. Delivery is asynchronous and carries no ordering
// guarantee relative to the caller's own calls.
type IdentityProvider interface {
	// Authenticate fails with domain.ErrInvalidCredentials,
	// domain.ErrAccountDisabled, domain.ErrRateLimited or domain.ErrUnknown.
	Authenticate(ctx context.Context, creds Credentials) (*domain.Principal, error)
	SubscribeToAuthChanges(cb func(*domain.Principal)) Unsubscribe
	SignOut(ctx context.Context) error
}

// Registration is a direct-channel account request.
type Registration struct {
	Email         string      `json:"email" validate:"required,email"`
	Password      string      `json:"password" validate:"required,min=8"`
	RequestedRole domain.Role `json:"role,omitempty" validate:"omitempty,oneof=admin recruiter client candidate"`
}

// AccountService is the sign-in surface offered to end users. A successful
// call signs the principal in and notifies IdentityProvider listeners.
type AccountService interface {
	// SignUp fails with domain.ErrAccountExists or domain.ErrUnknown.
	SignUp(ctx context.Context, reg Registration) (*domain.Principal, error)
	Authenticate(ctx context.Context, creds Credentials) (*domain.Principal, error)
	// SignInFederated fails with domain.ErrInvalidAssertion,
	// domain.ErrAccountDisabled or domain.ErrUnknown.
	SignInFederated(ctx context.Context, assertion string) (*domain.Principal, error)
}
