package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/samber/oops"

	"authsvc/internal/cache"
)

const resetTokenKeyPrefix = "forget-password:"

// ResetTokenExpiry is how long a password reset token stays redeemable.
// Tokens already persisted by earlier deploys rely on this value.
const ResetTokenExpiry = 3 * 24 * time.Hour

// ResetTokenStore defines storage for password reset tokens. Each token maps
// to exactly one user id.
type ResetTokenStore interface {
	Put(ctx context.Context, token string, userID uint, ttl time.Duration) error
	// Get returns the user id bound to token; ok is false when the token is
	// absent or expired.
	Get(ctx context.Context, token string) (userID uint, ok bool, err error)
	// Redeem is Get plus removal in one atomic step, so a token can be
	// consumed at most once.
	Redeem(ctx context.Context, token string) (userID uint, ok bool, err error)
}

// TokenStore keeps reset tokens in Redis under a fixed key prefix.
type TokenStore struct {
	cache *cache.Client
}

var _ ResetTokenStore = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// Put stores token → userID with the given TTL.
func (s *TokenStore) Put(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	if token == "" {
		return oops.Code("RESET_TOKEN_EMPTY").Errorf("reset token cannot be empty")
	}
	return s.cache.Set(ctx, resetTokenKeyPrefix+token, []byte(strconv.FormatUint(uint64(userID), 10)), ttl)
}

// Get looks up the user id for a token without consuming it.
func (s *TokenStore) Get(ctx context.Context, token string) (uint, bool, error) {
	if token == "" {
		return 0, false, nil
	}
	data, err := s.cache.Get(ctx, resetTokenKeyPrefix+token)
	if err != nil {
		return 0, false, err
	}
	return parseUserID(data)
}

// Redeem consumes a token.
func (s *TokenStore) Redeem(ctx context.Context, token string) (uint, bool, error) {
	if token == "" {
		return 0, false, nil
	}
	data, err := s.cache.GetDel(ctx, resetTokenKeyPrefix+token)
	if err != nil {
		return 0, false, err
	}
	return parseUserID(data)
}

func parseUserID(data []byte) (uint, bool, error) {
	if data == nil {
		return 0, false, nil
	}
	id, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, false, oops.Code("STORE_CORRUPT_VALUE").
			With("value", string(data)).
			Wrapf(err, "invalid user id")
	}
	return uint(id), true, nil
}
