package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ripple/internal/core/contracts"
	"ripple/internal/core/domain"
)

// DirectoryService mirrors identity-provider profiles into local storage
// and serves the user list the sidebar renders.
type DirectoryService struct {
	log      *slog.Logger
	repo     domain.UserRepository
	identity contracts.IdentityProvider
}

func NewDirectoryService(log *slog.Logger, repo domain.UserRepository, identity contracts.IdentityProvider) *DirectoryService {
	return &DirectoryService{
		log:      log,
		repo:     repo,
		identity: identity,
	}
}

// EnsureUser returns the local profile for userID, resolving it from the
// identity provider on first contact.
func (s *DirectoryService) EnsureUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}
	user, err = s.identity.ResolveUser(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "directory - ensure user - identity resolve failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		s.log.ErrorContext(ctx, "directory - ensure user - upsert failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("save user: %w", err)
	}
	s.log.InfoContext(ctx, "directory - ensure user - profile mirrored", "user_id", userID)
	return user, nil
}

func (s *DirectoryService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}
