package bootstrap

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/loadbank/internal/api"
	"github.com/taoyao-code/loadbank/internal/app"
	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
	"github.com/taoyao-code/loadbank/internal/health"
	"github.com/taoyao-code/loadbank/internal/metrics"
)

// Run 统一启动流程：依赖就绪后再对外提供 HTTP 服务，收到信号后优雅关闭
func Run(cfg *cfgpkg.Config, log *zap.Logger, version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cfg, log, version, nil)
}

// Serve 与 Run 相同，但由调用方控制生命周期；ln 非 nil 时在其上提供服务
func Serve(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger, version string, ln net.Listener) error {
	log = log.With(zap.String("instance", app.GenerateInstanceID()))
	log.Info("starting loadbank server", zap.String("version", version))

	// ========== 阶段1: 基础组件 ==========
	reg, appm := app.NewMetrics()
	ready := health.New()

	// ========== 阶段2: Redis（可选，redis 锁后端依赖它）==========
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// ========== 阶段3: 设备控制器与预设 ==========
	ctrl, err := app.NewController(cfg, redisClient, appm, log)
	if err != nil {
		log.Error("device controller initialization failed", zap.Error(err))
		return err
	}
	presets, err := app.NewPresets(cfg.Presets, log)
	if err != nil {
		log.Error("load presets failed", zap.Error(err))
		return err
	}
	ready.SetDeviceReady(true)

	healthAgg := app.NewHealthAggregator(ctrl)
	if cfg.Lock.Backend == "redis" {
		app.AddRedisChecker(healthAgg, redisClient, cfg.Lock.RedisKey)
	} else {
		app.AddRedisChecker(healthAgg, redisClient, "")
	}

	// ========== 阶段4: HTTP 服务 ==========
	httpSrv := app.NewHTTPServer(cfg, metrics.Handler(reg), ready.Ready, appm, log)
	handler := api.NewHandler(ctrl, presets, log)
	httpSrv.Register(func(r *gin.Engine) {
		api.RegisterRoutes(r, handler, cfg.API, appm, log)
		app.RegisterHealthRoutes(r, healthAgg)
	})

	errC := make(chan error, 1)
	go func() {
		if ln != nil {
			errC <- httpSrv.Serve(ln)
			return
		}
		errC <- httpSrv.Start()
	}()
	ready.SetHTTPReady(true)
	log.Info("http server started", zap.String("addr", cfg.HTTP.Addr), zap.Bool("swagger", cfg.HTTP.Swagger),
		zap.Strings("pending", ready.Pending()))

	// ========== 阶段5: 等待关闭 ==========
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal, gracefully shutting down...")
	case err := <-errC:
		if err != nil {
			log.Error("http server error", zap.Error(err))
			return err
		}
		return errors.New("http server stopped unexpectedly")
	}

	ready.SetHTTPReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("shutdown complete")
	return nil
}
