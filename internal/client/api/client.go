// Package api implements the transport to the remote auth service: the four
// account operations plus token refresh, with every failure normalized into
// an AuthError.
package api

import (
	"context"

	"github.com/dmitrijs2005/authkeep/internal/client/models"
)

// Client is the transport surface the session layer talks through. The
// concrete implementation is HTTPClient; tests substitute fakes.
//
// All methods honor context cancellation. Methods that touch stored
// credentials go through the token repository; none of them keep token state
// of their own.
type Client interface {
	// Login authenticates, stores the returned credential pair, and returns
	// the identity decoded from the access token. Nothing is stored on failure.
	Login(ctx context.Context, username, password string) (*models.User, error)

	// Register creates an account. It never logs the user in.
	Register(ctx context.Context, username, password, email string) error

	// Logout revokes the session remotely (best effort) and always clears
	// the stored credential pair.
	Logout(ctx context.Context) error

	// CurrentUser returns the identity behind the stored access token, or
	// (nil, nil) without a network call when no token is stored. A 401 is
	// retried exactly once after a refresh.
	CurrentUser(ctx context.Context) (*models.User, error)

	// RefreshTokens exchanges the stored refresh token for a new pair,
	// stores it, and returns the new access token. Stored credentials are
	// left untouched on failure.
	RefreshTokens(ctx context.Context) (string, error)
}
