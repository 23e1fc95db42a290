package app

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
	"github.com/taoyao-code/loadbank/internal/health"
	redisstorage "github.com/taoyao-code/loadbank/internal/storage/redis"
)

// NewRedisClient 创建Redis客户端；未启用时返回 nil
func NewRedisClient(ctx context.Context, cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize))
	return client, nil
}

// universal 避免把 nil 指针包装成非 nil 接口
func universal(c *redisstorage.Client) goredis.UniversalClient {
	if c == nil {
		return nil
	}
	return c.Client
}

// AddRedisChecker 添加Redis检查器到聚合器
func AddRedisChecker(aggregator *health.Aggregator, client *redisstorage.Client, lockKey string) {
	if client != nil {
		aggregator.AddChecker(health.NewRedisChecker(client, lockKey))
	}
}
