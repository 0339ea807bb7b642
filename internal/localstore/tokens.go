package localstore

import (
	"context"
	"database/sql"

	"github.com/possamhq/possam/internal/dbx"
)

const (
	keyAccessToken  = "session/access_token"
	keyRefreshToken = "session/refresh_token"
)

// TokenStore persists the backend session tokens so a valid session
// survives process restarts.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Save stores both tokens atomically.
func (t *TokenStore) Save(ctx context.Context, access, refresh string) error {
	return dbx.WithTx(ctx, t.db, func(ctx context.Context, tx dbx.DBTX) error {
		kv := NewSQLiteKV(tx)
		if err := kv.Set(ctx, keyAccessToken, []byte(access)); err != nil {
			return err
		}
		return kv.Set(ctx, keyRefreshToken, []byte(refresh))
	})
}

// Load returns the stored tokens. Both are "" when no session is stored.
func (t *TokenStore) Load(ctx context.Context) (access, refresh string, err error) {
	kv := NewSQLiteKV(t.db)
	a, err := kv.Get(ctx, keyAccessToken)
	if err != nil {
		return "", "", err
	}
	r, err := kv.Get(ctx, keyRefreshToken)
	if err != nil {
		return "", "", err
	}
	return string(a), string(r), nil
}

// Clear removes both tokens atomically. Clearing an empty store is a no-op.
func (t *TokenStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, t.db, func(ctx context.Context, tx dbx.DBTX) error {
		kv := NewSQLiteKV(tx)
		if err := kv.Delete(ctx, keyAccessToken); err != nil {
			return err
		}
		return kv.Delete(ctx, keyRefreshToken)
	})
}
