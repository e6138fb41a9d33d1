package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spimexhq/oilpulse/config"
)

// NewRedisClient builds a Redis client for the read-side query cache.
//
// An empty Redis host means caching is disabled; the function then returns
// nil and the service layer serves every query straight from Postgres.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Host == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
}
