package claim

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const clickKeyPrefix = "click:"

// ClickGuard suppresses double submissions from the UI. It is advisory:
// over-spend protection lives in the ledger, so redis being down lets requests through.
type ClickGuard struct {
	redis  *redis.Client // nil if Redis disabled
	window time.Duration
}

func NewClickGuard(client *redis.Client, window time.Duration) *ClickGuard {
	return &ClickGuard{redis: client, window: window}
}

// Window is the bucket size used to build keys
func (g *ClickGuard) Window() time.Duration {
	if g == nil {
		return 0
	}
	return g.window
}

// Acquire returns false when key was already taken inside the current window.
func (g *ClickGuard) Acquire(ctx context.Context, key string) bool {
	if g == nil || g.redis == nil || g.window <= 0 {
		return true
	}

	ok, err := g.redis.SetNX(ctx, clickKeyPrefix+key, 1, g.window).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Click guard unavailable, allowing request")
		return true
	}
	return ok
}

// Release frees key early, e.g. after the guarded request failed and may be retried.
func (g *ClickGuard) Release(ctx context.Context, key string) {
	if g == nil || g.redis == nil {
		return
	}
	if err := g.redis.Del(ctx, clickKeyPrefix+key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to release click guard")
	}
}
