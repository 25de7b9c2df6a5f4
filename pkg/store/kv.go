package store

import "context"

// KV is the shared key-value surface the presence and game layers consume.
// All operations may fail; callers wrap failures as store errors.
//
// SAdd is the atomic add-if-absent primitive the identity claim protocol
// relies on: it reports whether the member was newly added, so exactly one
// of any set of concurrent claimers for the same member observes true.
type KV interface {
	// Set operations
	SAdd(ctx context.Context, key, member string) (bool, error)
	SRem(ctx context.Context, key, member string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	// Plain keys
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error

	// Counters
	Incr(ctx context.Context, key string) (int64, error)

	// Hashes
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Lifecycle
	Close() error
}
