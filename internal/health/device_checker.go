package health

import (
	"context"
	"time"

	"github.com/taoyao-code/loadbank/internal/device"
)

// DeviceStats 设备控制器状态来源，由 device.Controller 实现
type DeviceStats interface {
	Stats() device.Stats
}

// DeviceChecker 设备链路检查器
// 只读取控制器记录的熔断状态与最近一次交互结果，不主动访问设备
type DeviceChecker struct {
	dev DeviceStats
}

// NewDeviceChecker 创建设备检查器
func NewDeviceChecker(dev DeviceStats) *DeviceChecker {
	return &DeviceChecker{dev: dev}
}

func (c *DeviceChecker) Name() string {
	return "device"
}

// Check 熔断打开为不健康，半开或最近一次链路失败为降级
func (c *DeviceChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	s := c.dev.Stats()

	details := map[string]any{
		"transport":        s.Transport,
		"target":           s.Target,
		"lock_backend":     s.LockBackend,
		"breaker_state":    s.Breaker.State,
		"breaker_failures": s.Breaker.Failures,
		"breaker_trips":    s.Breaker.TripCount,
	}
	if s.Last != nil {
		details["last_op"] = s.Last.Op
		details["last_result"] = s.Last.Result
		details["last_at"] = s.Last.Time
		if s.Last.Error != "" {
			details["last_error"] = s.Last.Error
		}
	}

	status, message := StatusHealthy, "ok"
	switch {
	case s.Breaker.State == device.StateOpen.String():
		status, message = StatusUnhealthy, "circuit breaker open"
	case s.Breaker.State == device.StateHalfOpen.String():
		status, message = StatusDegraded, "circuit breaker probing"
	case s.Last != nil && s.Last.Result == "transport_error":
		status, message = StatusDegraded, "last exchange failed"
	}

	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
