package driver

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound key does not exist in the kv storage
var ErrKeyNotFound = errors.New("key not found")

// KeyValueDB define a key-value storage interface
type KeyValueDB interface {
	// SetEX set key to value, zero expiration means the key never expires
	SetEX(ctx context.Context, key string, value string, expiration time.Duration) error
	// Get returns ErrKeyNotFound if the key is absent
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}
