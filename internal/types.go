package internal

import (
	"context"
	"fmt"

	"sjsage522/pagescope/config"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/services/cache"
	"sjsage522/pagescope/services/publisher"
)

// Dependencies holds the optional external services
type Dependencies struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// NewDependencies connects the services enabled by cfg. The response cache
// is enabled by a positive CacheTTL and uses memcached when MemcacheAddr is
// set. The publisher is created only when withPublisher is set.
func NewDependencies(ctx context.Context, cfg *config.Config, log *logger.Logger, withPublisher bool) (*Dependencies, error) {
	deps := &Dependencies{}

	if cfg.CacheTTL > 0 {
		if cfg.MemcacheAddr != "" {
			mc := cache.NewMemcacheService(cfg.MemcacheAddr)
			if err := mc.Ping(); err != nil {
				log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unreachable, using in-memory cache")
				deps.Cache = cache.NewMemoryCache()
			} else {
				log.Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
				deps.Cache = mc
			}
		} else {
			deps.Cache = cache.NewMemoryCache()
		}
	}

	if withPublisher {
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("publishing requires REDIS_ADDR")
		}
		rp := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := rp.Ping(); err != nil {
			rp.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		deps.Publisher = rp
		log.Info().
			Str("addr", cfg.RedisAddr).
			Int("db", cfg.RedisDB).
			Str("stream", cfg.RedisStream).
			Msg("Connected to Redis")
	}

	return deps, nil
}

// Close closes all services
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		d.Publisher.Close()
	}
}
