package devicelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// File 基于 flock(2) 的跨进程锁，多个 CLI 进程和服务进程共享同一锁文件
// 进程异常退出时内核自动释放
type File struct {
	path     string
	interval time.Duration
	wait     time.Duration
}

// NewFile 创建文件锁
func NewFile(path string, interval, wait time.Duration) *File {
	return &File{path: path, interval: interval, wait: wait}
}

func (f *File) Backend() string { return "file" }

func (f *File) Acquire(ctx context.Context) (ReleaseFunc, error) {
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDWR, 0o660)
	if err != nil {
		return nil, fmt.Errorf("devicelock: open %s: %w", f.path, err)
	}

	wctx, cancel := withWait(ctx, f.wait)
	defer cancel()

	err = poll(wctx, f.interval, func() (bool, error) {
		err := unix.Flock(int(fh.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
			return false, nil
		default:
			return false, fmt.Errorf("devicelock: flock %s: %w", f.path, err)
		}
	})
	if err != nil {
		_ = fh.Close()
		if wctx.Err() != nil {
			return nil, waitErr(ctx, wctx)
		}
		return nil, err
	}

	var once sync.Once
	var rerr error
	return func() error {
		once.Do(func() {
			rerr = unix.Flock(int(fh.Fd()), unix.LOCK_UN)
			if cerr := fh.Close(); rerr == nil {
				rerr = cerr
			}
		})
		return rerr
	}, nil
}
