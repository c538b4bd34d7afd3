// Package redis provides the Redis connection used for search result caching.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/services/media"
	"norelock.dev/listenify/gateway/internal/utils"
)

// Client wraps the Redis client with app-specific functionality
type Client struct {
	client redis.UniversalClient
	logger *utils.Logger
}

// NewClient creates a new Redis client and checks the connection.
func NewClient(cfg config.RedisConfig, logger *utils.Logger) (*Client, error) {
	if logger == nil {
		logger = utils.GetLogger()
	}
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("no redis address configured")
	}

	opts := &redis.Options{
		Addr:         cfg.Addresses[0], // Use the first address in the list
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, "addr", opts.Addr)
		_ = client.Close()
		return nil, err
	}

	logger.Info("Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return NewFromClient(client, logger), nil
}

// NewFromClient wraps an existing client without checking the connection.
func NewFromClient(client redis.UniversalClient, logger *utils.Logger) *Client {
	return &Client{
		client: client,
		logger: logger.Named("redis"),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	err := c.client.Close()
	if err != nil {
		c.logger.Error("Failed to close Redis connection", err)
		return err
	}
	c.logger.Info("Closed Redis connection")
	return nil
}

// Ping pings the Redis server
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Error("Failed to ping Redis", err)
		return err
	}
	return nil
}

// GetObject gets an object from Redis and unmarshals it. A missing key is
// reported as media.ErrCacheMiss.
func (c *Client) GetObject(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return media.ErrCacheMiss
		}
		c.logger.Error("Failed to get value from Redis", err, "key", key)
		return err
	}

	return json.Unmarshal(data, dest)
}

// SetObject sets an object in Redis by marshaling it to JSON
func (c *Client) SetObject(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to marshal object for Redis", err, "key", key)
		return err
	}

	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		c.logger.Error("Failed to set value in Redis", err, "key", key)
		return err
	}
	return nil
}

var _ media.ResultCache = (*Client)(nil)
