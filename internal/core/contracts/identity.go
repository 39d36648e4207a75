package contracts

import (
	"context"

	"ripple/internal/core/domain"
)

// IdentityProvider resolves user profiles from the external service that
// owns authentication. This core never issues or verifies credentials
// beyond the bearer token signature.
type IdentityProvider interface {
	ResolveUser(ctx context.Context, userID string) (*domain.User, error)
}
