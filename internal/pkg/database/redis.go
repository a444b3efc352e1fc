package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis carries two kinds of traffic here: one SET NX per redeem click and one PUBLISH
// per ledger event. Both callers fail open, so a slow server should cost a request
// milliseconds rather than seconds.
const (
	redisPoolSize     = 20
	redisMinIdle      = 2
	redisDialTimeout  = 2 * time.Second
	redisIOTimeout    = 300 * time.Millisecond
	redisPoolTimeout  = 500 * time.Millisecond
	redisMaxRetries   = 1
	redisClientName   = "pointhub-api"
	redisPingDeadline = 3 * time.Second
)

// NewRedis creates a new Redis client.
// Returns nil if redisURL is empty: the click guard and event fan-out degrade to no-ops.
func NewRedis(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		log.Warn().Msg("Redis URL not configured, duplicate-click guard and events disabled")
		return nil, nil
	}

	opt, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingDeadline)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}

	log.Info().Str("addr", opt.Addr).Int("db", opt.DB).Int("pool_size", opt.PoolSize).Msg("Connected to Redis")
	return client, nil
}

// redisOptions parses the URL and fills in whatever the URL left unset.
// Query parameters such as ?pool_size=50 or ?read_timeout=1s win over the defaults.
func redisOptions(redisURL string) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if opt.PoolSize == 0 {
		opt.PoolSize = redisPoolSize
	}
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = redisMinIdle
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = redisDialTimeout
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = redisIOTimeout
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = redisIOTimeout
	}
	if opt.PoolTimeout == 0 {
		opt.PoolTimeout = redisPoolTimeout
	}
	if opt.MaxRetries == 0 {
		opt.MaxRetries = redisMaxRetries
	}
	if opt.ClientName == "" {
		opt.ClientName = redisClientName
	}
	// request deadlines cut guard checks short
	opt.ContextTimeoutEnabled = true

	return opt, nil
}

// CloseRedis closes the Redis connection
func CloseRedis(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis connection")
		return
	}
	log.Info().Msg("Redis connection closed")
}
