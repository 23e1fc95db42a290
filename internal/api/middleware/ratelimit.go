package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/taoyao-code/loadbank/internal/config"
)

// RateLimit 基于Token Bucket的全局限流
// 负载箱同一时刻只能服务一个请求，超出速率直接返回 429，不排队
func RateLimit(cfg config.RateLimitConfig, rejected prometheus.Counter) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	perSec := cfg.PerSecond
	if perSec <= 0 {
		perSec = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(perSec * 2)
		if burst < 1 {
			burst = 1
		}
	}
	limiter := rate.NewLimiter(rate.Limit(perSec), burst)

	return func(c *gin.Context) {
		if limiter.Allow() {
			c.Next()
			return
		}
		if rejected != nil {
			rejected.Inc()
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"status": http.StatusText(http.StatusTooManyRequests),
			"msg":    "rate limit exceeded",
		})
	}
}
