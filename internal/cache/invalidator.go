package cache

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Invalidator deletes cached view keys after committed writes. Invalidation
// is best effort: a failure means stale reads until the key TTL expires, so
// it is logged and never propagated to the caller.
type Invalidator struct {
	client *redis.Client
	logger *slog.Logger
}

// NewInvalidator creates a new cache invalidator.
func NewInvalidator(client *redis.Client, logger *slog.Logger) *Invalidator {
	return &Invalidator{
		client: client,
		logger: logger,
	}
}

// Invalidate deletes the given view keys.
func (i *Invalidator) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	if err := i.client.Del(ctx, keys...).Err(); err != nil {
		i.logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}
