// Package configs provides configuration structures and utilities for propview.
// It offers mechanisms for loading, validating, and saving configuration from
// JSON and YAML files, and a Viper wrapper adding environment overrides and
// hot reloading.
//
// Package configs 提供propview的配置结构和工具。
// 它提供从JSON和YAML文件加载、验证和保存配置的机制，
// 以及增加环境变量覆盖和热重载的Viper包装器。
package configs

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"encoding/json"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for propview.
//
// Config 表示propview的完整配置。
type Config struct {
	// API configures the listings backend client
	// API 配置房源后端客户端
	API APIConfig `json:"api" yaml:"api" mapstructure:"api"`

	// Session configures where the bearer token is kept
	// Session 配置持有令牌的存储位置
	Session SessionConfig `json:"session" yaml:"session" mapstructure:"session"`

	// Web configures the server-rendered front
	// Web 配置服务端渲染的前端
	Web WebConfig `json:"web" yaml:"web" mapstructure:"web"`

	// Locale configures display formatting
	// Locale 配置显示格式
	Locale LocaleConfig `json:"locale" yaml:"locale" mapstructure:"locale"`

	// Loader configures the detail cache
	// Loader 配置详情缓存
	Loader LoaderConfig `json:"loader" yaml:"loader" mapstructure:"loader"`

	// Metrics configures gateway request metrics
	// Metrics 配置网关请求指标
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Log configures the logging behavior
	// Log 配置日志行为
	Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`

	// Extensions configures optional features like hot reloading
	// Extensions 配置可选功能，如热重载
	Extensions ExtensionsConfig `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
}

// APIConfig holds the backend location and per-request timeout.
//
// APIConfig 包含后端地址和每个请求的超时。
type APIConfig struct {
	// BaseURL is the root of the REST surface, e.g. http://localhost:8080/api
	// BaseURL 是REST接口的根地址
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds every request
	// Timeout 限制每个请求的时长
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SessionConfig controls token persistence. An empty TokenFile keeps the
// token in memory only.
//
// SessionConfig 控制令牌持久化。TokenFile为空时令牌仅保存在内存中。
type SessionConfig struct {
	TokenFile string `json:"token_file" yaml:"token_file" mapstructure:"token_file"`
}

// WebConfig contains settings for the web front.
//
// WebConfig 包含Web前端的设置。
type WebConfig struct {
	// Addr is the listen address
	// Addr 是监听地址
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// PlaceholderImage is shown for listings without an image
	// PlaceholderImage 用于没有图片的房源
	PlaceholderImage string `json:"placeholder_image" yaml:"placeholder_image" mapstructure:"placeholder_image"`

	// ShutdownTimeout bounds graceful shutdown
	// ShutdownTimeout 限制优雅关闭的时长
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// Mode is the gin mode ("debug", "release", "test")
	// Mode 是gin的运行模式
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	// SessionIdle is how long an unused visitor session is kept
	// SessionIdle 是未使用的访客会话保留的时长
	SessionIdle time.Duration `json:"session_idle" yaml:"session_idle" mapstructure:"session_idle"`
}

// LocaleConfig contains display formatting options.
//
// LocaleConfig 包含显示格式选项。
type LocaleConfig struct {
	// Tag is a BCP 47 language tag such as "en-IN"
	// Tag 是BCP 47语言标签，例如"en-IN"
	Tag string `json:"tag" yaml:"tag" mapstructure:"tag"`

	// CurrencySymbol prefixes every price
	// CurrencySymbol 是价格前缀
	CurrencySymbol string `json:"currency_symbol" yaml:"currency_symbol" mapstructure:"currency_symbol"`

	// Grouping overrides the digit grouping of Tag: "indian" (85,00,000),
	// "western" (8,500,000), or "" to follow the tag
	// Grouping 覆盖Tag的数字分组："indian"、"western"，或""跟随标签
	Grouping string `json:"grouping" yaml:"grouping" mapstructure:"grouping"`

	// DateLayout is a Go time layout for long dates
	// DateLayout 是长日期的Go时间布局
	DateLayout string `json:"date_layout" yaml:"date_layout" mapstructure:"date_layout"`

	// PhonePrefix is prepended to 10-digit phone numbers
	// PhonePrefix 添加到10位电话号码之前
	PhonePrefix string `json:"phone_prefix" yaml:"phone_prefix" mapstructure:"phone_prefix"`
}

// LoaderConfig contains settings for the property detail cache.
// A zero DetailCacheTTL disables caching.
//
// LoaderConfig 包含房源详情缓存的设置。DetailCacheTTL为零时禁用缓存。
type LoaderConfig struct {
	DetailCacheTTL time.Duration `json:"detail_cache_ttl" yaml:"detail_cache_ttl" mapstructure:"detail_cache_ttl"`
}

// MetricsConfig contains settings for metrics collection.
//
// MetricsConfig 包含指标收集的设置。
type MetricsConfig struct {
	// Enable determines whether metrics collection is active
	// Enable 确定是否启用指标收集
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// Level controls the detail of metrics collection ("basic", "detailed", "disabled")
	// Level 控制指标收集的详细程度（"basic"、"detailed"、"disabled"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// HistogramBuckets is the number of latency histogram buckets
	// HistogramBuckets 是延迟直方图的桶数
	HistogramBuckets int `json:"histogram_buckets" yaml:"histogram_buckets" mapstructure:"histogram_buckets"`

	// Path is where the Prometheus text is served
	// Path 是Prometheus文本的服务路径
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig contains settings for logging.
//
// LogConfig 包含日志记录的设置。
type LogConfig struct {
	// Level sets the minimum log level ("debug", "info", "warn", "error")
	// Level 设置最低日志级别（"debug"、"info"、"warn"、"error"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format specifies the log format ("text", "json")
	// Format 指定日志格式（"text"、"json"）
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output determines where logs are written ("stdout", "stderr", "file")
	// Output 确定日志写入的位置（"stdout"、"stderr"、"file"）
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// FilePath is the path to the log file when Output is "file"
	// FilePath 是当Output为"file"时的日志文件路径
	FilePath string `json:"file_path" yaml:"file_path" mapstructure:"file_path"`
}

// ExtensionsConfig contains settings for extensions.
//
// ExtensionsConfig 包含扩展的设置。
type ExtensionsConfig struct {
	HotReload HotReloadConfig `json:"hot_reload" yaml:"hot_reload" mapstructure:"hot_reload"`
}

// HotReloadConfig contains settings for hot reloading.
//
// HotReloadConfig 包含热重载的设置。
type HotReloadConfig struct {
	// Enable determines whether hot reloading is active
	// Enable 确定是否启用热重载
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// WatchInterval switches from fsnotify to polling at this interval; 0 keeps fsnotify
	// WatchInterval 非零时改用该间隔轮询而不是fsnotify；0表示使用fsnotify
	WatchInterval time.Duration `json:"watch_interval" yaml:"watch_interval" mapstructure:"watch_interval"`
}

// DefaultConfig returns a new Config with default values.
// The defaults point at a backend running on localhost:8080.
//
// DefaultConfig 返回具有默认值的新Config。
// 默认值指向运行在localhost:8080上的后端。
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			TokenFile: "",
		},
		Web: WebConfig{
			Addr:             ":3000",
			PlaceholderImage: "/static/placeholder.svg",
			ShutdownTimeout:  5 * time.Second,
			Mode:             "release",
			SessionIdle:      24 * time.Hour,
		},
		Locale: LocaleConfig{
			Tag:            "en-IN",
			CurrencySymbol: "₹",
			Grouping:       "",
			DateLayout:     "2 January 2006",
			PhonePrefix:    "+91",
		},
		Loader: LoaderConfig{
			DetailCacheTTL: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enable:           true,
			Level:            "basic",
			HistogramBuckets: 10,
			Path:             "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Extensions: ExtensionsConfig{
			HotReload: HotReloadConfig{
				Enable:        false,
				WatchInterval: 0,
			},
		},
	}
}

// LoadFromFile loads configuration from a file.
// It supports both YAML and JSON formats, detected by file extension.
//
// LoadFromFile 从文件加载配置。
// 它支持YAML和JSON格式，根据文件扩展名检测格式。
func LoadFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer file.Close()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext != "yaml" && ext != "yml" && ext != "json" {
		return nil, fmt.Errorf("unsupported configuration file format: .%s", ext)
	}
	return LoadFromReader(file, ext)
}

// LoadFromReader loads configuration from an io.Reader.
// Fields absent from the input keep their default values.
//
// LoadFromReader 从io.Reader加载配置。输入中缺失的字段保持默认值。
//
// Parameters:
//   - r: The reader providing the configuration data
//   - format: The format of the data ("json", "yaml", or "yml")
//
// 参数：
//   - r: 提供配置数据的读取器
//   - format: 数据的格式（"json"、"yaml"或"yml"）
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	config := DefaultConfig()
	var err error

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(config)
	case "json":
		err = json.NewDecoder(r).Decode(config)
	default:
		return nil, fmt.Errorf("unsupported configuration format: %s", format)
	}

	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file, choosing YAML or JSON by extension.
//
// SaveToFile 将配置保存到文件，根据扩展名选择YAML或JSON。
func (c *Config) SaveToFile(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("unsupported configuration file format: %s", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer file.Close()

	return c.Write(file, strings.TrimPrefix(ext, "."))
}

// Write encodes the configuration to w in the given format.
//
// Write 以给定格式将配置编码到w。
func (c *Config) Write(w io.Writer, format string) error {
	var err error
	switch strings.ToLower(format) {
	case "yaml", "yml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		err = encoder.Encode(c)
		if cerr := encoder.Close(); err == nil {
			err = cerr
		}
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(c)
	default:
		return fmt.Errorf("unsupported configuration format: %s", format)
	}

	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return nil
}

// Validate checks that all settings have valid values.
//
// Validate 检查所有设置是否具有有效值。
//
// Returns:
//   - error: An error describing the first validation failure, or nil if valid
//
// 返回：
//   - error: 描述第一个验证失败的错误，如果有效则为nil
func (c *Config) Validate() error {
	// Validate API settings
	// 验证API设置
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	// Validate web settings
	// 验证Web设置
	if c.Web.Addr == "" {
		return fmt.Errorf("web.addr must be specified")
	}
	switch c.Web.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("web.mode must be one of: debug, release, test")
	}
	if c.Web.ShutdownTimeout < 0 {
		return fmt.Errorf("web.shutdown_timeout must be non-negative")
	}
	if c.Web.SessionIdle < 0 {
		return fmt.Errorf("web.session_idle must be non-negative")
	}

	// Validate locale settings
	// 验证区域设置
	if _, err := language.Parse(c.Locale.Tag); err != nil {
		return fmt.Errorf("locale.tag %q is not a valid language tag: %w", c.Locale.Tag, err)
	}
	switch c.Locale.Grouping {
	case "", "indian", "western":
	default:
		return fmt.Errorf("locale.grouping must be empty or one of: indian, western")
	}
	if c.Locale.DateLayout == "" {
		return fmt.Errorf("locale.date_layout must be specified")
	}

	// Validate loader settings
	// 验证加载器设置
	if c.Loader.DetailCacheTTL < 0 {
		return fmt.Errorf("loader.detail_cache_ttl must be non-negative")
	}

	// Validate metrics settings
	// 验证指标设置
	if c.Metrics.Enable {
		switch c.Metrics.Level {
		case "basic", "detailed", "disabled":
		default:
			return fmt.Errorf("metrics.level must be one of: basic, detailed, disabled")
		}
		if c.Metrics.HistogramBuckets < 0 {
			return fmt.Errorf("metrics.histogram_buckets must be non-negative")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/'")
		}
	}

	// Validate log settings
	// 验证日志设置
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	switch c.Log.Output {
	case "stdout", "stderr", "file":
	default:
		return fmt.Errorf("log.output must be one of: stdout, stderr, file")
	}
	if c.Log.Output == "file" && c.Log.FilePath == "" {
		return fmt.Errorf("log.file_path must be specified when log.output is 'file'")
	}

	// Validate extensions settings
	// 验证扩展设置
	if wi := c.Extensions.HotReload.WatchInterval; c.Extensions.HotReload.Enable && wi != 0 && wi < time.Second {
		return fmt.Errorf("extensions.hot_reload.watch_interval must be 0 or at least 1 second")
	}

	return nil
}
