package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/taoyao-code/loadbank/internal/config"
)

// ErrTimeout 在读超时内没有收到任何字节
var ErrTimeout = errors.New("transport: i/o timeout")

// Dialer 打开一条到控制板的双向字节流
// 调用方负责 Close；同一时间只允许一个调用方持有（由 devicelock 保证）
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
	// Name 传输类型，用于日志与指标
	Name() string
	// Target 连接目标（地址或串口设备路径）
	Target() string
}

// NewDialer 按配置创建 TCP 或串口 Dialer
func NewDialer(cfg config.DeviceConfig) (Dialer, error) {
	switch cfg.Transport {
	case "tcp", "":
		return &TCPDialer{
			Addr:         cfg.TCP.Addr,
			DialTimeout:  cfg.TCP.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}, nil
	case "serial":
		return &SerialDialer{
			Port:        cfg.Serial.Port,
			BaudRate:    cfg.Serial.BaudRate,
			ReadTimeout: cfg.ReadTimeout,
		}, nil
	default:
		return nil, fmt.Errorf("transport: unknown transport %q", cfg.Transport)
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
