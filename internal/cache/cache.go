package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// Client wraps redis.Client. A missing key is reported as a nil value, not
// an error; connectivity failures are returned so callers can decide whether
// to fail safe.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return oops.Code("CACHE_UNAVAILABLE").With("operation", "ping").Wrap(err)
	}
	return nil
}

// AddHook installs a go-redis hook, e.g. for tracing every command.
func (c *Client) AddHook(hook redis.Hook) {
	c.client.AddHook(hook)
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}

// Get returns the value or nil if the key is missing or expired.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("CACHE_UNAVAILABLE").With("operation", "get").Wrap(err)
	}
	return res, nil
}

// GetDel atomically returns and removes the value, or nil if missing.
func (c *Client) GetDel(ctx context.Context, key string) ([]byte, error) {
	res, err := c.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("CACHE_UNAVAILABLE").With("operation", "getdel").Wrap(err)
	}
	return res, nil
}

// Set stores value with TTL (SET key value EX seconds).
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return oops.Code("CACHE_UNAVAILABLE").With("operation", "set").Wrap(err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return oops.Code("CACHE_UNAVAILABLE").With("operation", "del").Wrap(err)
	}
	return nil
}
