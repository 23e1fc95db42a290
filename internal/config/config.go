package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	Swagger      bool          `mapstructure:"swagger"`
}

// DeviceTCPConfig 通过串口服务器（NetBurner）访问控制板
type DeviceTCPConfig struct {
	Addr        string        `mapstructure:"addr"`
	DialTimeout time.Duration `mapstructure:"dialTimeout"`
}

// DeviceSerialConfig 通过 FTDI USB 串口直连控制板
type DeviceSerialConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baudRate"`
}

// BreakerConfig 设备熔断器配置
type BreakerConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DeviceConfig 控制板连接配置
// ReadTimeout 为 0 表示阻塞读取直到设备应答
type DeviceConfig struct {
	Transport    string             `mapstructure:"transport"` // tcp | serial
	TCP          DeviceTCPConfig    `mapstructure:"tcp"`
	Serial       DeviceSerialConfig `mapstructure:"serial"`
	ReadTimeout  time.Duration      `mapstructure:"readTimeout"`
	WriteTimeout time.Duration      `mapstructure:"writeTimeout"`
	Breaker      BreakerConfig      `mapstructure:"breaker"`
}

// LockConfig 设备互斥锁配置
type LockConfig struct {
	Backend       string        `mapstructure:"backend"` // local | file | redis
	File          string        `mapstructure:"file"`
	RedisKey      string        `mapstructure:"redisKey"`
	TTL           time.Duration `mapstructure:"ttl"`
	RetryInterval time.Duration `mapstructure:"retryInterval"`
	WaitTimeout   time.Duration `mapstructure:"waitTimeout"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
// Level 为 off 时不输出任何日志
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	Output string           `mapstructure:"output"` // stdout | stderr
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// AuthConfig API Key 认证
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"apiKeys"`
}

// RateLimitConfig API 限流
type RateLimitConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	PerSecond float64 `mapstructure:"perSecond"`
	Burst     int     `mapstructure:"burst"`
}

// APIConfig HTTP API 配置
type APIConfig struct {
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// PresetsConfig 预设负载方案
type PresetsConfig struct {
	Path string `mapstructure:"path"`
}

// SimulatorConfig 控制板模拟器配置
type SimulatorConfig struct {
	Addr           string        `mapstructure:"addr"`
	MaxConnections int           `mapstructure:"maxConnections"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	QueueTimeout   time.Duration `mapstructure:"queueTimeout"` // 排队等待串口的最长时间
	ZeroCrossFault bool          `mapstructure:"zeroCrossFault"`
}

// Config 顶层配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Device    DeviceConfig    `mapstructure:"device"`
	Lock      LockConfig      `mapstructure:"lock"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	API       APIConfig       `mapstructure:"api"`
	Presets   PresetsConfig   `mapstructure:"presets"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

// New 创建带默认值与环境变量绑定的 viper 实例
// CLI 在此基础上绑定命令行参数后再调用 Decode
func New(path string) *viper.Viper {
	v := viper.New()

	if path == "" {
		v.SetEnvPrefix("LOADBANK")
		_ = v.BindEnv("config")
		path = v.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("loadbank")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// 环境变量覆盖：前缀 LOADBANK_，并将点号替换为下划线
	v.SetEnvPrefix("LOADBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 LOADBANK_CONFIG 读取；否则回退到 ./loadbank.yaml 或 ./configs/loadbank.yaml。
func Load(path string) (*Config, error) {
	return Decode(New(path))
}

// Decode 读取配置文件（允许缺失）并解码为 Config
func Decode(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		// 未显式指定配置文件时允许缺失，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验枚举类配置项
func (c *Config) Validate() error {
	switch c.Device.Transport {
	case "tcp", "serial":
	default:
		return fmt.Errorf("config: unknown device.transport %q (want tcp or serial)", c.Device.Transport)
	}
	switch c.Lock.Backend {
	case "local", "file":
	case "redis":
		if !c.Redis.Enabled {
			return errors.New("config: lock.backend redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("config: unknown lock.backend %q (want local, file or redis)", c.Lock.Backend)
	}
	if c.Device.Serial.BaudRate <= 0 {
		return fmt.Errorf("config: invalid device.serial.baudRate %d", c.Device.Serial.BaudRate)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "loadbank")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":5000")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "30s")
	v.SetDefault("http.swagger", true)

	v.SetDefault("device.transport", "tcp")
	v.SetDefault("device.tcp.addr", "192.168.68.117:23")
	v.SetDefault("device.tcp.dialTimeout", "5s")
	v.SetDefault("device.serial.port", "/dev/ttyUSB0")
	v.SetDefault("device.serial.baudRate", 57600)
	v.SetDefault("device.readTimeout", "15s")
	v.SetDefault("device.writeTimeout", "5s")
	v.SetDefault("device.breaker.threshold", 5)
	v.SetDefault("device.breaker.timeout", "30s")

	v.SetDefault("lock.backend", "file")
	v.SetDefault("lock.file", "/tmp/loadbank.lock")
	v.SetDefault("lock.redisKey", "loadbank:device:lock")
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("lock.retryInterval", "50ms")
	v.SetDefault("lock.waitTimeout", "20s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 1)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("api.auth.enabled", false)
	v.SetDefault("api.auth.apiKeys", []string{})
	v.SetDefault("api.rateLimit.enabled", true)
	v.SetDefault("api.rateLimit.perSecond", 5)
	v.SetDefault("api.rateLimit.burst", 10)

	v.SetDefault("presets.path", "")

	v.SetDefault("simulator.addr", ":2323")
	v.SetDefault("simulator.maxConnections", 1)
	v.SetDefault("simulator.readTimeout", "5m")
	v.SetDefault("simulator.queueTimeout", "30s")
	v.SetDefault("simulator.zeroCrossFault", false)
}
