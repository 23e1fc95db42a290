package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/taoyao-code/loadbank/internal/app"
	"github.com/taoyao-code/loadbank/internal/config"
	"github.com/taoyao-code/loadbank/internal/device"
	"github.com/taoyao-code/loadbank/internal/logging"
	"github.com/taoyao-code/loadbank/internal/metrics"
	"github.com/taoyao-code/loadbank/internal/protocol/loadbank"
	"github.com/taoyao-code/loadbank/internal/render"
	"github.com/taoyao-code/loadbank/internal/version"
)

// errReported 结果已输出，只需要非零退出码
var errReported = errors.New("request failed")

// cli 一次命令执行的共享状态
type cli struct {
	v          *viper.Viper
	configPath string
	format     string

	cfg    *config.Config
	logger *zap.Logger
	ctrl   *device.Controller
	close  func()
}

// flag -> viper key
var flagKeys = map[string]string{
	"transport":    "device.transport",
	"addr":         "device.tcp.addr",
	"port":         "device.serial.port",
	"baud":         "device.serial.baudRate",
	"read-timeout": "device.readTimeout",
	"lock":         "lock.backend",
	"lock-file":    "lock.file",
	"lock-wait":    "lock.waitTimeout",
	"log-level":    "logging.level",
	"presets":      "presets.path",
}

func newCLI() *cli { return &cli{} }

// shutdown 释放 Redis 连接并刷新日志
func (c *cli) shutdown() {
	if c.close != nil {
		c.close()
		c.close = nil
	}
}

func (c *cli) rootCmd() *cobra.Command {

	root := &cobra.Command{
		Use:   "loadbank",
		Short: "Three-phase load bank controller",
		Long: `Send switch, phase and zero-cross suppression commands to the load bank
control board over a TCP serial bridge or an FTDI USB serial port.

Set commands are followed by the matching query, so the output always shows
the state the board reports back.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := render.Writer(c.format); err != nil {
				return err
			}
			c.v = config.New(c.configPath)
			// CLI 默认不输出日志，日志只写 stderr，stdout 只留结果
			c.v.SetDefault("logging.level", "off")
			c.v.Set("logging.output", "stderr")
			pf := cmd.Root().PersistentFlags()
			for name, key := range flagKeys {
				if err := c.v.BindPFlag(key, pf.Lookup(name)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "Config file (default $LOADBANK_CONFIG, ./loadbank.yaml, ./configs/loadbank.yaml)")
	pf.StringVar(&c.format, "format", "json", "Output format (json, text)")
	pf.String("transport", "tcp", "Device transport (tcp, serial)")
	pf.String("addr", "192.168.68.117:23", "Serial bridge address for the tcp transport")
	pf.String("port", "/dev/ttyUSB0", "Serial device for the serial transport")
	pf.Int("baud", 57600, "Serial baud rate")
	pf.Duration("read-timeout", 15*time.Second, "Per-read device timeout (0 waits for the board)")
	pf.String("lock", "file", "Device lock backend (local, file, redis)")
	pf.String("lock-file", "/tmp/loadbank.lock", "Lock file for the file backend")
	pf.Duration("lock-wait", 20*time.Second, "Maximum time to wait for the device lock (0 waits forever)")
	pf.String("log-level", "off", "Log level (debug, info, warn, error, off)")
	pf.String("presets", "", "Preset YAML file (default built-in presets)")

	root.AddCommand(
		newSwitchCmd(c),
		newPhaseCmd(c),
		newZCSCmd(c),
		newExecCmd(c),
		newPresetCmd(c),
		newReplCmd(c),
		newVersionCmd(),
	)
	return root
}

// load 解码配置并初始化日志
func (c *cli) load() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Decode(c.v)
	if err != nil {
		return err
	}
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return err
	}
	c.cfg, c.logger = cfg, logger
	return nil
}

// controller 按配置组装设备控制器
func (c *cli) controller(cmd *cobra.Command) (*device.Controller, error) {
	if c.ctrl != nil {
		return c.ctrl, nil
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	rdb, err := app.NewRedisClient(cmd.Context(), c.cfg.Redis, c.logger)
	if err != nil {
		return nil, err
	}
	ctrl, err := app.NewController(c.cfg, rdb, metrics.NewNopMetrics(), c.logger)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	c.ctrl = ctrl
	c.close = func() {
		_ = rdb.Close()
		_ = c.logger.Sync()
	}
	return ctrl, nil
}

func (c *cli) write(w io.Writer, r render.Result) error {
	out, err := render.Writer(c.format)
	if err != nil {
		return err
	}
	if err := out(w, r); err != nil {
		return err
	}
	if r.Code != 200 {
		return errReported
	}
	return nil
}

// run 执行一个请求并输出结果
func (c *cli) run(cmd *cobra.Command, req loadbank.Request) error {
	ctrl, err := c.controller(cmd)
	if err != nil {
		return err
	}
	resp, err := ctrl.Do(cmd.Context(), req)
	if err != nil {
		return c.write(cmd.OutOrStdout(), render.FromError(req, err))
	}
	return c.write(cmd.OutOrStdout(), render.FromResponse(resp))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "loadbank %s\n", version.String())
		},
	}
}
