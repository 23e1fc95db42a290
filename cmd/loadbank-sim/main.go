package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/loadbank/internal/app"
	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
	"github.com/taoyao-code/loadbank/internal/httpserver"
	"github.com/taoyao-code/loadbank/internal/logging"
	"github.com/taoyao-code/loadbank/internal/metrics"
	"github.com/taoyao-code/loadbank/internal/simulator"
	"github.com/taoyao-code/loadbank/internal/version"
)

// flag -> viper key
var flagKeys = map[string]string{
	"addr":             "simulator.addr",
	"max-connections":  "simulator.maxConnections",
	"read-timeout":     "simulator.readTimeout",
	"queue-timeout":    "simulator.queueTimeout",
	"zero-cross-fault": "simulator.zeroCrossFault",
	"log-level":        "logging.level",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, metricsAddr string
	cmd := &cobra.Command{
		Use:   "loadbank-sim",
		Short: "Simulated load bank control board on a TCP port",
		Long: `Accepts the board's length-prefixed command frames on a TCP port and answers
them the way the control board does, keeping switch, phase and ZCS state in
memory. Point the CLI or the server at it with --addr / device.tcp.addr.`,
		Version:      version.String(),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := cfgpkg.New(configPath)
			for name, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
					return err
				}
			}
			cfg, err := cfgpkg.Decode(v)
			if err != nil {
				return err
			}
			logger, err := logging.InitLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return run(cmd.Context(), cfg, metricsAddr, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "Config file (reads the simulator and logging sections)")
	f.String("addr", ":2323", "Listen address")
	f.Int("max-connections", 1, "Concurrent client connections (the board's serial bridge accepts one)")
	f.Duration("read-timeout", 5*time.Minute, "Idle timeout per client connection")
	f.Duration("queue-timeout", 30*time.Second, "How long a client waits for the serial port before it is dropped")
	f.Bool("zero-cross-fault", false, "Answer switch commands with ERR ZCS TMOUT while ZCS is on")
	f.String("log-level", "info", "Log level (debug, info, warn, error, off)")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	return cmd
}

func run(ctx context.Context, cfg *cfgpkg.Config, metricsAddr string, logger *zap.Logger) error {
	reg, m := app.NewMetrics()

	board := simulator.NewBoard()
	board.SetZeroCrossFault(cfg.Simulator.ZeroCrossFault)
	sim := simulator.NewServer(cfg.Simulator, board, m, logger)
	if err := sim.Start(); err != nil {
		return fmt.Errorf("start simulator: %w", err)
	}

	var httpSrv *httpserver.Server
	errCh := make(chan error, 1)
	if metricsAddr != "" {
		httpSrv = httpserver.New(cfgpkg.HTTPConfig{Addr: metricsAddr, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second},
			cfg.Metrics.Path, metrics.Handler(reg), func() bool { return true }, m, logger)
		go func() { errCh <- httpSrv.Start() }()
		logger.Info("simulator metrics listening", zap.String("addr", metricsAddr), zap.String("path", cfg.Metrics.Path))
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("metrics server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	if err := sim.Shutdown(shutdownCtx); err != nil {
		logger.Warn("simulator shutdown", zap.Error(err))
	}
	return runErr
}
