package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/loadbank/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器，初始只包含设备检查
func NewHealthAggregator(dev health.DeviceStats) *health.Aggregator {
	return health.NewAggregator(health.NewDeviceChecker(dev))
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}
