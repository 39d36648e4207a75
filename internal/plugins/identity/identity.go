package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"ripple/internal/config"
	"ripple/internal/core/domain"
)

// Client resolves user profiles from the external identity service. The
// service owns registration, sessions, and credentials; this client only
// reads the public profile shape.
type Client struct {
	http *resty.Client
}

func NewClient(cfg config.IdentityConfig) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(1).
		SetRetryWaitTime(200 * time.Millisecond)
	return &Client{http: c}
}

type profileResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarRef   string    `json:"avatar_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *Client) ResolveUser(ctx context.Context, userID string) (*domain.User, error) {
	var profile profileResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&profile).
		SetPathParam("id", userID).
		Get("/users/{id}")
	if err != nil {
		return nil, fmt.Errorf("identity request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, domain.ErrUserNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("identity request: status %d", resp.StatusCode())
	}
	return &domain.User{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		AvatarRef:   profile.AvatarRef,
		CreatedAt:   profile.CreatedAt,
	}, nil
}
