package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is the minimal caching capability used by the catalog resolver
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}

// Key joins key parts with the cache separator, e.g. Key("catalog", "versions", marker)
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
