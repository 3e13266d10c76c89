// Package cache provides a small key/value cache used to speed up code
// resolution. Callers must treat every error as a miss; the cache is never
// the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned when a key is not in the cache.
var ErrMiss = errors.New("cache miss")

// Cache stores string values with an expiry.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Close() error
}

// jsonCodec implements the JSON helpers on top of Get and Set.
type jsonCodec struct {
	get func(ctx context.Context, key string) (string, error)
	set func(ctx context.Context, key string, value string, expiration time.Duration) error
}

func (j jsonCodec) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := j.get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

func (j jsonCodec) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return j.set(ctx, key, string(data), expiration)
}
