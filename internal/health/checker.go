package health

import (
	"context"
	"time"
)

// Status 健康状态
type Status string

const (
	StatusHealthy Status = "healthy"
	// StatusDegraded 仍可下发命令，但熔断器处于半开或最近一次交互传输失败
	StatusDegraded Status = "degraded"
	// StatusUnhealthy 熔断器打开或锁后端不可达，请求会被直接拒绝
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult 单项检查结果；Details 放熔断器状态、锁持有者等排障信息
type CheckResult struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Checker 由 Aggregator 按 DefaultCheckTimeout 逐项调用
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}
