package ports

import (
	"context"

	"github.com/talentflow/recruiting/internal/core/domain"
)

// AccountRepository persists the local identity provider's accounts.
type AccountRepository interface {
	// FindByEmail returns domain.ErrInvalidCredentials when no account matches,
	// so callers cannot tell a missing account from a wrong password.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Create returns domain.ErrAccountExists on a duplicate email.
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
}

// LoginLimiter throttles sign-in attempts per key (normalised email).
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
