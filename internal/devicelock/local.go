package devicelock

import (
	"context"
	"sync"
	"time"
)

// Local 进程内互斥，适用于常驻服务独占设备的场景
type Local struct {
	sem  chan struct{}
	wait time.Duration
}

// NewLocal 创建进程内锁；wait 为 0 表示一直等待
func NewLocal(wait time.Duration) *Local {
	return &Local{sem: make(chan struct{}, 1), wait: wait}
}

func (l *Local) Backend() string { return "local" }

func (l *Local) Acquire(ctx context.Context) (ReleaseFunc, error) {
	wctx, cancel := withWait(ctx, l.wait)
	defer cancel()

	select {
	case l.sem <- struct{}{}:
	case <-wctx.Done():
		return nil, waitErr(ctx, wctx)
	}

	var once sync.Once
	return func() error {
		once.Do(func() { <-l.sem })
		return nil
	}, nil
}
