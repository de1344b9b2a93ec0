// Package config loads stylus settings from files, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/ByLCY/stylus/dsl"
	"github.com/ByLCY/stylus/escp"
	"github.com/ByLCY/stylus/metrics"
)

// EnvPrefix 是环境变量前缀，例如 STYLUS_DEVICE_DPI。
const EnvPrefix = "STYLUS"

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// Config 是完整配置。
type Config struct {
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	Page    PageConfig    `mapstructure:"page" yaml:"page"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Preview PreviewConfig `mapstructure:"preview" yaml:"preview"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch"`
}

// DeviceConfig 描述目标打印机。
type DeviceConfig struct {
	DPI         int    `mapstructure:"dpi" yaml:"dpi"`
	Charset     string `mapstructure:"charset" yaml:"charset"`
	Table       string `mapstructure:"table" yaml:"table"`
	LineSpacing int    `mapstructure:"line_spacing" yaml:"line_spacing"`
	Init        bool   `mapstructure:"init" yaml:"init"`
	EjectLast   bool   `mapstructure:"eject_last" yaml:"eject_last"`
}

// PageConfig 是没有 page 段的输入（如 Markdown）使用的纸张描述。
type PageConfig struct {
	Default string `mapstructure:"default" yaml:"default"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig 配置 HTTP 渲染服务。
type ServerConfig struct {
	Addr          string        `mapstructure:"addr" yaml:"addr"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	RenderTimeout time.Duration `mapstructure:"render_timeout" yaml:"render_timeout"`
	// RateLimit 是 /v1 接口每秒允许的请求数，0 表示不限。
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// PreviewConfig 配置 PDF 预览。FontFile 为空时在系统字体目录中查找。
type PreviewConfig struct {
	FontFile string `mapstructure:"font_file" yaml:"font_file"`
}

// BatchConfig 配置批量渲染的并发度。
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Device --
	v.SetDefault("device.dpi", 360)
	v.SetDefault("device.charset", "usa")
	v.SetDefault("device.table", "pc437")
	v.SetDefault("device.line_spacing", 0)
	v.SetDefault("device.init", true)
	v.SetDefault("device.eject_last", false)

	// -- Page --
	v.SetDefault("page.default", "letter")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "stylus")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_body_bytes", 4<<20)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.render_timeout", "20s")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 10)

	// -- Preview / Batch --
	v.SetDefault("preview.font_file", "")
	v.SetDefault("batch.concurrency", 4)
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Load 依次应用默认值、配置文件与 STYLUS_ 环境变量。file 为空时在当前目录与
// ~/.stylus 中查找 stylus.yaml，找不到不算错误。
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	if file != "" {
		path, err := homedir.Expand(file)
		if err != nil {
			return nil, &ConfigError{Field: "config", Message: "无法展开路径", Err: err}
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.stylus")
		v.SetConfigName("stylus")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper 反序列化并校验配置。
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for field, p := range map[string]*string{
		"logger.log_file":   &c.Logger.LogFile,
		"preview.font_file": &c.Preview.FontFile,
	} {
		if *p == "" {
			continue
		}
		full, err := homedir.Expand(*p)
		if err != nil {
			return &ConfigError{Field: field, Message: "无法展开路径", Err: err}
		}
		*p = full
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Device.DPI {
	case 60, 120, 180, 360:
	default:
		return NewConfigError("device.dpi", fmt.Sprintf("不支持的分辨率 %d（可选 60/120/180/360）", c.Device.DPI))
	}
	if _, ok := escp.ParseCharset(strings.ToLower(c.Device.Charset)); !ok {
		return NewConfigError("device.charset", fmt.Sprintf("未知的字符集 %q", c.Device.Charset))
	}
	if _, ok := escp.ParseCodeTable(strings.ToLower(c.Device.Table)); !ok {
		return NewConfigError("device.table", fmt.Sprintf("未知的码表 %q", c.Device.Table))
	}
	if c.Device.LineSpacing < 0 {
		return NewConfigError("device.line_spacing", "must not be negative")
	}
	if _, err := dsl.ResolvePage(c.Page.Default, c.Device.DPI); err != nil {
		return &ConfigError{Field: "page.default", Message: err.Error(), Err: err}
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Logger.Level)); err != nil {
		return &ConfigError{Field: "logger.level", Message: err.Error(), Err: err}
	}
	if c.Logger.Format != "console" && c.Logger.Format != "json" {
		return NewConfigError("logger.format", "must be console or json")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return NewConfigError("server.max_body_bytes", "must be a positive integer")
	}
	if c.Server.RateLimit < 0 {
		return NewConfigError("server.rate_limit", "must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		return NewConfigError("server.rate_burst", "must be positive when rate_limit is set")
	}
	if c.Batch.Concurrency <= 0 {
		return NewConfigError("batch.concurrency", "must be a positive integer")
	}
	return nil
}

// LineSpacing 返回行距（点）；未配置时为 1/6 英寸。
func (c *Config) LineSpacing() int {
	if c.Device.LineSpacing > 0 {
		return c.Device.LineSpacing
	}
	return metrics.DefaultLineSpacing(c.Device.DPI)
}

// DefaultPage 返回配置中的默认纸张。
func (c *Config) DefaultPage() (dsl.Page, error) {
	return dsl.ResolvePage(c.Page.Default, c.Device.DPI)
}

// Charset 与 Table 返回已校验的设备字符集与码表。
func (c *Config) Charset() escp.Charset {
	cs, _ := escp.ParseCharset(strings.ToLower(c.Device.Charset))
	return cs
}

func (c *Config) Table() escp.CodeTable {
	t, _ := escp.ParseCodeTable(strings.ToLower(c.Device.Table))
	return t
}
