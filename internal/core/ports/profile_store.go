package ports

import (
	"context"

	"github.com/talentflow/recruiting/internal/core/domain"
)

// ProfileStore is the remote document store holding profiles. Writes may not
// be visible to an immediately following read.
type ProfileStore interface {
	// GetProfile returns (nil, nil) when the principal has no profile yet.
	// Fails with domain.ErrStoreUnavailable or domain.ErrUnknown.
	GetProfile(ctx context.Context, principalID string) (*domain.Profile, error)
	// UpsertProfile creates the profile when missing only if patch carries a
	// Role; a role-less patch on a missing profile fails with
	// domain.ErrProfileNotFound. Other failures are domain.ErrStoreUnavailable,
	// domain.ErrStoreConflict or domain.ErrUnknown.
	UpsertProfile(ctx context.Context, principalID string, patch domain.ProfilePatch) error
}
