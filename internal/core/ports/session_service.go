package ports

import (
	"context"

	"github.com/talentflow/recruiting/internal/core/domain"
)

// SessionService is what the rest of the application sees of the session core.
type SessionService interface {
	GetSession() domain.Session
	OnSessionChange(cb func(domain.Session)) Unsubscribe
	SignOut()
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) error
	RefreshProfile(ctx context.Context) (*domain.Profile, error)
	HasPermission(p domain.Permission) bool
	HasRole(roles ...domain.Role) bool
}
