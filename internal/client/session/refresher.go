package session

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeep/internal/client/tokens"
)

// RunRefresher proactively refreshes the access token before it expires.
// Every interval it inspects the stored token: nothing stored means an idle
// tick, a token expiring within window triggers one refresh, and a failed
// refresh ends the session. Returns when ctx is cancelled.
//
// Ticks run strictly one at a time; a slow refresh delays the next tick
// rather than overlapping it.
func (c *Controller) RunRefresher(ctx context.Context, store tokens.Repository, interval, window time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.refreshTick(ctx, store, window)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) refreshTick(ctx context.Context, store tokens.Repository, window time.Duration) {
	access, err := store.Access(ctx)
	if err != nil {
		c.log.Error(ctx, "failed to read access token", "error", err)
		return
	}
	if access == "" || !tokens.ExpiresWithin(access, window) {
		return
	}

	if _, err := c.client.RefreshTokens(ctx); err != nil {
		c.log.Error(ctx, "proactive token refresh failed", "error", err)
		c.ForceLogout(ctx, "token refresh failed")
		return
	}
	c.log.Info(ctx, "access token refreshed")
}
