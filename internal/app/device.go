package app

import (
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
	"github.com/taoyao-code/loadbank/internal/device"
	"github.com/taoyao-code/loadbank/internal/devicelock"
	"github.com/taoyao-code/loadbank/internal/metrics"
	"github.com/taoyao-code/loadbank/internal/preset"
	redisstorage "github.com/taoyao-code/loadbank/internal/storage/redis"
	"github.com/taoyao-code/loadbank/internal/transport"
)

// NewController 按配置组装 传输 + 设备锁 + 熔断器 + 指标
func NewController(cfg *cfgpkg.Config, rdb *redisstorage.Client, m *metrics.AppMetrics, logger *zap.Logger) (*device.Controller, error) {
	dialer, err := transport.NewDialer(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("device transport: %w", err)
	}
	locker, err := devicelock.New(cfg.Lock, universal(rdb))
	if err != nil {
		return nil, fmt.Errorf("device lock: %w", err)
	}

	ctrl := device.NewController(dialer, locker,
		device.WithBreaker(device.NewBreaker(cfg.Device.Breaker.Threshold, cfg.Device.Breaker.Timeout)),
		device.WithMetrics(m),
		device.WithLogger(logger),
	)
	logger.Info("device controller initialized",
		zap.String("transport", dialer.Name()),
		zap.String("target", dialer.Target()),
		zap.String("lock_backend", locker.Backend()),
		zap.Duration("read_timeout", cfg.Device.ReadTimeout))
	return ctrl, nil
}

// NewPresets 加载预设；未配置路径时使用内置预设
func NewPresets(cfg cfgpkg.PresetsConfig, logger *zap.Logger) (*preset.Set, error) {
	set, err := preset.LoadOrDefault(cfg.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("presets loaded", zap.String("path", cfg.Path), zap.Int("count", len(set.Presets)))
	return set, nil
}
