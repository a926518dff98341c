package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authsvc/internal/cache"
)

func newTestTokenStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return NewTokenStore(c), mr
}

func TestResetTokenExpiry(t *testing.T) {
	assert.Equal(t, int64(259_200_000), ResetTokenExpiry.Milliseconds())
}

func TestTokenStore_PutGet(t *testing.T) {
	store, mr := newTestTokenStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tok", 42, ResetTokenExpiry))

	assert.True(t, mr.Exists("forget-password:tok"))
	assert.Equal(t, ResetTokenExpiry, mr.TTL("forget-password:tok"))

	id, ok, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	// Get does not consume.
	_, ok, err = store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokenStore_ExpiresAfterTTL(t *testing.T) {
	store, mr := newTestTokenStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tok", 7, ResetTokenExpiry))

	mr.FastForward(ResetTokenExpiry - time.Second)
	_, ok, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_RedeemOnce(t *testing.T) {
	store, _ := newTestTokenStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tok", 9, ResetTokenExpiry))

	id, ok, err := store.Redeem(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(9), id)

	_, ok, err = store.Redeem(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_EmptyToken(t *testing.T) {
	store, _ := newTestTokenStore(t)
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, "", 1, time.Minute))

	_, ok, err := store.Get(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Redeem(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_CorruptValue(t *testing.T) {
	store, mr := newTestTokenStore(t)

	require.NoError(t, mr.Set("forget-password:tok", "not-a-number"))

	_, ok, err := store.Get(context.Background(), "tok")
	assert.Error(t, err)
	assert.False(t, ok)
}
