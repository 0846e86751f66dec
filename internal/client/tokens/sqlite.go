package tokens

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authkeep/internal/dbx"
)

// Fixed storage keys, identical to the field names the service uses on the
// wire.
const (
	keyAccess  = "access"
	keyRefresh = "refresh"
)

// SQLiteRepository keeps the credential pair in a local sqlite database so a
// session survives client restarts.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save upserts both tokens inside one transaction. A reader can never observe
// a pair with one old and one new half.
func (r *SQLiteRepository) Save(ctx context.Context, pair Pair) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, kv := range []struct{ key, value string }{
			{keyAccess, pair.Access},
			{keyRefresh, pair.Refresh},
		} {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tokens (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value
			`, kv.key, kv.value)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save token pair: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM tokens WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token[%s]: %w", key, err)
	}
	return value, nil
}

// Access returns the stored access token, or "" when none is stored.
func (r *SQLiteRepository) Access(ctx context.Context) (string, error) {
	return r.get(ctx, keyAccess)
}

// Refresh returns the stored refresh token, or "" when none is stored.
func (r *SQLiteRepository) Refresh(ctx context.Context) (string, error) {
	return r.get(ctx, keyRefresh)
}

// Clear removes both tokens. Clearing an empty store is not an error.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tokens`); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}
