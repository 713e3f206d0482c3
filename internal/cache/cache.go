package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client with byte-oriented helpers. Unlike a read-through
// cache, session records must not be silently dropped, so errors propagate.
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

// NewFromClient wraps an existing redis client.
func NewFromClient(client *redis.Client) *Client {
	return &Client{client: client}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the value, or nil without error when the key is missing.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Set stores value with TTL. A zero TTL keeps the key until deleted.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// SetExisting overwrites key only if it already exists and reports whether it did.
func (c *Client) SetExisting(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return c.client.SetXX(ctx, key, value, ttl).Result()
}

// Delete removes a key. Missing keys are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}
