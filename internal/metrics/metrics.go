package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	CommandsTotal        *prometheus.CounterVec   // labels: op, result=ok|device_error|zcs_timeout|transport_error|invalid|rejected
	ExchangeSeconds      *prometheus.HistogramVec // labels: op
	LockWaitSeconds      *prometheus.HistogramVec // labels: backend
	DeviceErrorsTotal    *prometheus.CounterVec   // labels: kind=bad_request|zcs_timeout|other
	BreakerState         prometheus.Gauge         // 0=closed 1=half_open 2=open
	HTTPRequestsTotal    *prometheus.CounterVec   // labels: method, route, status
	RateLimitRejected    prometheus.Counter
	SimConnectionsTotal  prometheus.Counter
	SimFramesTotal       *prometheus.CounterVec // labels: reply=ack|error|report
	SimActiveConnections prometheus.Gauge
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadbank_commands_total",
			Help: "Load bank requests by operation and outcome.",
		}, []string{"op", "result"}),
		ExchangeSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loadbank_exchange_seconds",
			Help:    "Time spent on one device request including the follow-up query.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"op"}),
		LockWaitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loadbank_lock_wait_seconds",
			Help:    "Time spent waiting for the device lock.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend"}),
		DeviceErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadbank_device_errors_total",
			Help: "ERR replies from the board by kind (bad_request, zcs_timeout, other).",
		}, []string{"kind"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadbank_breaker_state",
			Help: "Device circuit breaker state (0=closed, 1=half_open, 2=open).",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP API requests.",
		}, []string{"method", "route", "status"}),
		RateLimitRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_ratelimit_rejected_total",
			Help: "HTTP requests rejected by the rate limiter.",
		}),
		SimConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadbank_sim_accept_total",
			Help: "Connections accepted by the board simulator.",
		}),
		SimFramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadbank_sim_frames_total",
			Help: "Frames handled by the board simulator by reply kind.",
		}, []string{"reply"}),
		SimActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadbank_sim_active_connections",
			Help: "Currently open simulator connections.",
		}),
	}
	reg.MustRegister(
		m.CommandsTotal, m.ExchangeSeconds, m.LockWaitSeconds, m.DeviceErrorsTotal, m.BreakerState,
		m.HTTPRequestsTotal, m.RateLimitRejected,
		m.SimConnectionsTotal, m.SimFramesTotal, m.SimActiveConnections,
	)
	return m
}

// NewNopMetrics 使用独立 Registry 的指标，适用于 CLI 与测试
func NewNopMetrics() *AppMetrics {
	return NewAppMetrics(prometheus.NewRegistry())
}
