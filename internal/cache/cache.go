// Package cache stores JSON values by key. Summaries are cached by document content hash so
// re-uploading the same PDF skips the model call.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// GetJSON decodes the value at key into dst. A missing or undecodable entry is a miss.
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	// SetJSON stores val under key. ttl <= 0 keeps it until deleted.
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
