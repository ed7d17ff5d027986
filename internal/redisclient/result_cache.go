package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/user00265/ctyresolve/internal/dxcc"
)

const keyPrefix = "dxcc"

// ResultCache shares resolved callsigns between instances. Keys carry the
// dataset version, so a new country file never serves stale answers.
type ResultCache struct {
	client *Client
	ttl    time.Duration
}

// NewResultCache stores results in c for ttl (0 keeps them until evicted).
func NewResultCache(c *Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: c, ttl: ttl}
}

// Key returns the Redis key for call under dataset version.
func Key(version, call string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, version, call)
}

// Get returns the cached result, false on a miss.
func (rc *ResultCache) Get(ctx context.Context, version, call string) (dxcc.Result, bool, error) {
	raw, err := rc.client.Get(ctx, Key(version, call)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dxcc.Result{}, false, nil
	}
	if err != nil {
		return dxcc.Result{}, false, fmt.Errorf("redis get %s: %w", call, err)
	}
	var res dxcc.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return dxcc.Result{}, false, fmt.Errorf("decode cached result for %s: %w", call, err)
	}
	return res, true, nil
}

// Set caches res for call under dataset version.
func (rc *ResultCache) Set(ctx context.Context, version, call string, res dxcc.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result for %s: %w", call, err)
	}
	if err := rc.client.Set(ctx, Key(version, call), raw, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", call, err)
	}
	return nil
}
