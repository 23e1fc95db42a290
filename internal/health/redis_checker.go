package health

import (
	"context"
	"fmt"
	"time"

	redisstorage "github.com/taoyao-code/loadbank/internal/storage/redis"
)

// RedisChecker Redis健康检查器；lockKey 非空时附带设备锁持有情况
type RedisChecker struct {
	client  *redisstorage.Client
	lockKey string
}

// NewRedisChecker 创建Redis健康检查器
func NewRedisChecker(client *redisstorage.Client, lockKey string) *RedisChecker {
	return &RedisChecker{client: client, lockKey: lockKey}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

// Check 执行健康检查
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	if err := c.client.HealthCheck(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
			Latency: time.Since(start),
		}
	}

	stats := c.client.Stats()
	utilization := 0.0
	if stats.TotalConns > 0 {
		utilization = float64(stats.TotalConns-stats.IdleConns) / float64(stats.TotalConns)
	}

	status, message := StatusHealthy, "ok"
	if utilization > 0.9 {
		status, message = StatusDegraded, "connection pool near limit"
	}

	details := map[string]any{
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"timeouts":    stats.Timeouts,
		"utilization": fmt.Sprintf("%.1f%%", utilization*100),
	}
	if c.lockKey != "" {
		if _, ttl, held, err := c.client.LockHolder(ctx, c.lockKey); err == nil {
			details["device_lock_held"] = held
			if held {
				details["device_lock_ttl"] = ttl.String()
			}
		}
	}

	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
