package ports

import (
	"context"
	"time"
)

// KVStore is a small key-value capability with per-key expiry.
// A zero ttl keeps the entry until it is deleted.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
