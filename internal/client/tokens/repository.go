// Package tokens owns the client's credential pair: durable storage of the
// access/refresh tokens and expiry inspection of the access token.
package tokens

import "context"

// Pair is the credential pair handed out by the auth service. Both tokens are
// opaque bearer strings from the client's point of view; only the access
// token's exp claim is ever decoded.
type Pair struct {
	Access  string
	Refresh string
}

// Repository persists the current credential pair. Pure storage, no policy:
// callers decide when a pair is created, replaced or destroyed.
//
// Contract:
//   - Save: stores both tokens of a pair atomically.
//   - Access/Refresh: return the stored token, or "" when none is stored.
//   - Clear: removes both tokens. Idempotent.
type Repository interface {
	Save(ctx context.Context, pair Pair) error
	Access(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}
