package devicelock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/loadbank/internal/config"
)

// ErrLockTimeout 在等待时间内未能获得设备锁
var ErrLockTimeout = errors.New("devicelock: timed out waiting for device lock")

// ReleaseFunc 释放锁；必须在所有退出路径上调用（通常配合 defer）
type ReleaseFunc func() error

// Locker 保证"打开设备 → 执行 → 关闭设备"在进程间互斥
type Locker interface {
	Acquire(ctx context.Context) (ReleaseFunc, error)
	// Backend 锁实现名称：local | file | redis
	Backend() string
}

// New 按配置创建锁；redis 后端需要传入已连接的客户端
func New(cfg config.LockConfig, rdb redis.UniversalClient) (Locker, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocal(cfg.WaitTimeout), nil
	case "file":
		return NewFile(cfg.File, cfg.RetryInterval, cfg.WaitTimeout), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("devicelock: redis backend requires a redis client")
		}
		return NewRedis(rdb, cfg.RedisKey, cfg.TTL, cfg.RetryInterval, cfg.WaitTimeout), nil
	default:
		return nil, fmt.Errorf("devicelock: unknown backend %q", cfg.Backend)
	}
}

// withWait 在 wait > 0 时为等待加上上限
func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// waitErr 区分等待超时与调用方主动取消
func waitErr(parent, ctx context.Context) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	return fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
}

// poll 按固定间隔重试 try，直到成功、出错或 ctx 结束
func poll(ctx context.Context, interval time.Duration, try func() (bool, error)) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
