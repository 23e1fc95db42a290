package logging

import (
	"encoding/hex"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	cfgpkg "github.com/taoyao-code/loadbank/internal/config"
)

// InitLogger 初始化 zap 日志器（支持 lumberjack 滚动文件）
// level 为 off 时返回 Nop，CLI 默认使用以保证 stdout 只有命令结果
func InitLogger(cfg cfgpkg.LoggingConfig) (*zap.Logger, error) {
	if strings.EqualFold(cfg.Level, "off") {
		return zap.NewNop(), nil
	}

	var console io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		console = os.Stderr
	}

	ws := []zapcore.WriteSyncer{zapcore.AddSync(console)}
	if cfg.File.Filename != "" {
		// 文件输出（带滚动）
		ws = append(ws, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}))
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.NewMultiWriteSyncer(ws...), parseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller()), nil
}

// NewWithWriter 输出到指定 writer，测试中使用
func NewWithWriter(cfg cfgpkg.LoggingConfig, w io.Writer) *zap.Logger {
	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.AddSync(w), parseLevel(cfg.Level))
	return zap.New(core)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format(time.RFC3339Nano)) },
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.EqualFold(format, "console") {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// Frame 原始帧字段：十六进制 + 可打印字符
func Frame(payload []byte) []zap.Field {
	return []zap.Field{
		zap.String("hex", hex.EncodeToString(payload)),
		zap.String("ascii", printable(payload)),
		zap.Int("len", len(payload)),
	}
}

func printable(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 0x20 && c < 0x7f {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
