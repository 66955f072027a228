// Package config 从默认值、可选的 YAML 文件、.env 与 BOLETA58_* 环境变量加载服务配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ByLCY/boleta58/binding"
	"github.com/ByLCY/boleta58/layout"
	"github.com/ByLCY/boleta58/receipt"
)

// EnvPrefix 为环境变量覆盖的前缀，例如 BOLETA58_SERVER_PORT。
const EnvPrefix = "BOLETA58"

// Config 为转换服务的全部配置。
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Conversion ConversionConfig `mapstructure:"conversion"`
	Layout     LayoutConfig     `mapstructure:"layout"`
	Labels     layout.Labels    `mapstructure:"labels"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig 为 HTTP 服务配置
type ServerConfig struct {
	Address     string  `mapstructure:"address"`
	Port        int     `mapstructure:"port"`
	MaxUploadMB int64   `mapstructure:"max_upload_mb"`
	RateLimit   float64 `mapstructure:"rate_limit"` // 每秒转换次数，0 表示不限流
	RateBurst   int     `mapstructure:"rate_burst"`
}

type ConversionConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LayoutConfig struct {
	MinPageHeight string `mapstructure:"min_page_height"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load 依次应用默认值、configPath（若给出）、.env 与环境变量。
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.rate_limit", 5)
	v.SetDefault("server.rate_burst", 10)

	v.SetDefault("conversion.timeout", "30s")
	v.SetDefault("layout.min_page_height", "300mm")

	// 每个文案都要有默认值，BOLETA58_LABELS_* 覆盖才会生效
	for key, tmpl := range layout.DefaultLabels().Templates() {
		v.SetDefault("labels."+key, tmpl)
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be at least 1 when rate limiting is enabled")
	}
	if cfg.Conversion.Timeout < 0 {
		return fmt.Errorf("conversion.timeout must not be negative")
	}
	if _, err := layout.ParseLength(cfg.Layout.MinPageHeight); err != nil {
		return fmt.Errorf("layout.min_page_height: %w", err)
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return validateLabels(cfg.Labels.WithDefaults())
}

// validateLabels 拒绝引用 Receipt 中不存在字段的模板。
func validateLabels(labels layout.Labels) error {
	rec, item := receipt.New(), receipt.Item{}
	for key, tmpl := range labels.Templates() {
		var src binding.Source = rec
		if key == "unit_price" {
			src = item
		}
		for _, path := range binding.Placeholders(tmpl) {
			if !binding.Resolves(src, path) {
				return fmt.Errorf("labels.%s references unknown field %q", key, path)
			}
		}
	}
	return nil
}

// Addr 返回监听地址。
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

// MaxUploadBytes 返回上传大小上限（字节）。
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// BuildOptions 返回由配置得出的布局参数。
func (c *Config) BuildOptions() (layout.BuildOptions, error) {
	h, err := layout.ParseLength(c.Layout.MinPageHeight)
	if err != nil {
		return layout.BuildOptions{}, fmt.Errorf("layout.min_page_height: %w", err)
	}
	return layout.BuildOptions{
		MinPageHeight: h.ToMM(),
		Labels:        c.Labels.WithDefaults(),
	}, nil
}

// NewLogger 按 log 配置构建 zap logger。
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
