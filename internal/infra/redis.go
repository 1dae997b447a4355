package infra

import (
	"context"
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects the read cache. The cache is an optimization, not a
// dependency: callers must degrade to the database when it is down, so a
// failed ping here is returned for logging but the client is still handed
// back usable.
func NewRedis(cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return client, err
	}
	return client, nil
}
