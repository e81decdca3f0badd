// Package cache holds redis-backed read caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/certledger/certledger/internal/credential"
)

const credentialsPrefix = "credentials:v1:"

// Redis caches credential sets as JSON, keyed by lowercase address.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ credential.Cache = (*Redis)(nil)

// NewRedis returns a cache whose entries expire after ttl.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func key(address string) string {
	return credentialsPrefix + strings.ToLower(address)
}

func (r *Redis) Get(ctx context.Context, address string) (credential.Set, bool, error) {
	raw, err := r.client.Get(ctx, key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached credentials: %w", err)
	}
	var set credential.Set
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, false, fmt.Errorf("decode cached credentials: %w", err)
	}
	return set, true, nil
}

func (r *Redis) Put(ctx context.Context, address string, set credential.Set) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := r.client.Set(ctx, key(address), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache credentials: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, address string) error {
	if err := r.client.Del(ctx, key(address)).Err(); err != nil {
		return fmt.Errorf("invalidate credentials: %w", err)
	}
	return nil
}
