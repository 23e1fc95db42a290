package devicelock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisKey 默认锁 Key
	DefaultRedisKey = "loadbank:device:lock"
	// DefaultRedisTTL 持锁进程崩溃后锁自动过期的时间
	DefaultRedisTTL = 30 * time.Second
)

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// 仍由自己持有时续期
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis 多台主机共享同一块控制板时使用的分布式锁（SET NX PX）
// 持锁期间每 ttl/3 续期一次，TTL 只在持有进程崩溃时生效
type Redis struct {
	rdb      redis.UniversalClient
	key      string
	ttl      time.Duration
	interval time.Duration
	wait     time.Duration
	renewal  time.Duration
}

// NewRedis 创建 Redis 锁
func NewRedis(rdb redis.UniversalClient, key string, ttl, interval, wait time.Duration) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	renewal := ttl / 3
	if renewal <= 0 {
		renewal = ttl
	}
	return &Redis{rdb: rdb, key: key, ttl: ttl, interval: interval, wait: wait, renewal: renewal}
}

func (r *Redis) Backend() string { return "redis" }

func (r *Redis) Acquire(ctx context.Context) (ReleaseFunc, error) {
	token := uuid.NewString()

	wctx, cancel := withWait(ctx, r.wait)
	defer cancel()

	err := poll(wctx, r.interval, func() (bool, error) {
		ok, err := r.rdb.SetNX(wctx, r.key, token, r.ttl).Result()
		if err != nil && wctx.Err() == nil {
			return false, fmt.Errorf("devicelock: redis setnx: %w", err)
		}
		return ok, nil
	})
	if err != nil {
		if wctx.Err() != nil {
			return nil, waitErr(ctx, wctx)
		}
		return nil, err
	}

	renewCtx, stopRenew := context.WithCancel(context.Background())
	renewed := make(chan struct{})
	go r.renew(renewCtx, token, renewed)

	var once sync.Once
	var rerr error
	return func() error {
		once.Do(func() {
			stopRenew()
			<-renewed
			// 调用方的 ctx 可能已结束，释放使用独立超时
			rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, r.rdb, []string{r.key}, token).Err(); err != nil {
				rerr = fmt.Errorf("devicelock: redis release: %w", err)
			}
		})
		return rerr
	}, nil
}

// renew 定期延长锁的 TTL，直到 ctx 结束或锁已不属于 token
func (r *Redis) renew(ctx context.Context, token string, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.renewal)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := renewScript.Run(ctx, r.rdb, []string{r.key}, token, r.ttl.Milliseconds()).Int()
		if err == nil && n == 0 {
			return
		}
	}
}
