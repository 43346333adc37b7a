package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/vaultbank/backend/internal/config"
	"github.com/vaultbank/backend/internal/logger"
)

// OpenRedis connects the Redis client used by the settlement queue.
// Returns nil when Redis is unreachable; deferred transfers still commit,
// only the post-commit enqueue is skipped.
func OpenRedis(cfg config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Log.Warn("redis connection failed, continuing without settlement queue", zap.Error(err))
		return nil
	}

	logger.Log.Info("redis connection established", zap.String("addr", cfg.Host+":"+cfg.Port))
	return rdb
}
