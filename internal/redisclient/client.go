package redisclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/user00265/ctyresolve/internal/config"
)

// Client holds the Redis client instance.
type Client struct {
	*redis.Client
}

// NewClient connects to Redis. It returns nil, nil when Redis is disabled.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("redis host must be specified when Redis is enabled")
	}

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	options := &redis.Options{
		Addr:         addr,
		Username:     cfg.User,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20, // batch lookups fan out across workers
		MinIdleConns: 2,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		DialTimeout:  5 * time.Second,
	}
	if cfg.UseTLS {
		options.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}
	}

	rdb := NewRedisClient(options)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Client{rdb}, nil
}

// NewRedisClient wraps redis.NewClient so tests can inspect the options.
var NewRedisClient = func(opt *redis.Options) *redis.Client {
	return redis.NewClient(opt)
}
