package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/taoyao-code/loadbank/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
	"github.com/taoyao-code/loadbank/internal/logging"
	"github.com/taoyao-code/loadbank/internal/version"
)

// @title                      Load Bank Controller API
// @version                    1.0
// @description                HTTP facade for the three-phase load bank control board.
// @BasePath                   /
// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       X-API-Key
func main() {
	configPath := flag.String("config", "", "config file (default $LOADBANK_CONFIG, ./loadbank.yaml, ./configs/loadbank.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动服务，阻塞直到收到信号
	if err := bootstrap.Run(cfg, zap.L(), version.String()); err != nil {
		zap.L().Error("server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
