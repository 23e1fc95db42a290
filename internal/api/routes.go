package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taoyao-code/loadbank/internal/api/middleware"
	"github.com/taoyao-code/loadbank/internal/config"
	"github.com/taoyao-code/loadbank/internal/metrics"
)

// RegisterRoutes 注册负载箱控制路由
// 设置类接口同时接受 GET 与 POST，兼容旧面板直接拼 URL 的调用方式
func RegisterRoutes(r *gin.Engine, h *Handler, cfg config.APIConfig, m *metrics.AppMetrics, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}

	var rejected prometheus.Counter
	if m != nil {
		rejected = m.RateLimitRejected
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.RateLimit, rejected))
	if cfg.Auth.Enabled {
		v1.Use(middleware.APIKeyAuth(cfg.Auth, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(cfg.Auth.APIKeys)))
	} else {
		logger.Warn("api authentication disabled")
	}

	v1.GET("/switches/status", h.SwitchStatus)
	v1.GET("/switches", h.SetSwitches)
	v1.POST("/switches", h.SetSwitches)

	v1.GET("/phases/status", h.PhaseStatus)
	v1.GET("/phases", h.SetPhases)
	v1.POST("/phases", h.SetPhases)

	v1.GET("/zcs/status", h.ZCSStatus)
	v1.GET("/zcs/on", h.ZCSOn)
	v1.POST("/zcs/on", h.ZCSOn)
	v1.GET("/zcs/off", h.ZCSOff)
	v1.POST("/zcs/off", h.ZCSOff)

	v1.GET("/presets", h.ListPresets)
	v1.POST("/presets/:name/apply", h.ApplyPreset)

	logger.Info("loadbank routes registered", zap.Int("endpoints", 13))
}
