// Package configs provides configuration structures and utilities for propview.
// This file implements Viper-based configuration management with environment
// overrides, .env loading and hot reloading support.
//
// Package configs 提供propview的配置结构和工具。
// 本文件实现基于Viper的配置管理，支持环境变量覆盖、.env加载和热重载。
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is the prefix for environment overrides, e.g. PROPVIEW_API_BASE_URL.
const EnvPrefix = "PROPVIEW"

// ViperConfig wraps a Config with Viper functionality for hot reloading.
// It provides thread-safe access to configuration and supports dynamic
// updates when the underlying configuration file changes.
//
// ViperConfig 使用Viper功能包装Config以支持热重载。
// 它提供对配置的线程安全访问，并支持在底层配置文件更改时进行动态更新。
type ViperConfig struct {
	*Config                     // Embedded configuration / 嵌入的配置
	viper       *viper.Viper    // Viper instance for configuration management / 用于配置管理的Viper实例
	configFile  string          // Path to the configuration file, may be empty / 配置文件路径，可以为空
	logger      *zap.Logger     // Logger for reload events / 重载事件日志
	mu          sync.RWMutex    // Mutex for thread-safe access / 用于线程安全访问的互斥锁
	subscribers []func(*Config) // List of subscribers to notify on config changes / 配置更改时要通知的订阅者列表
	reloader    string          // Active reload mechanism, "" until one starts / 当前的重载机制
}

// Reload mechanisms reported by ReloadMode.
const (
	ReloadNotify = "fsnotify"
	ReloadPoll   = "poll"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
//
// LoadDotEnv 从给定文件将KEY=VALUE对加载到进程环境中。
// 缺失的文件被跳过；已设置的变量优先。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// NewViperConfig creates a new ViperConfig.
// An empty configFile yields the defaults plus environment overrides.
//
// NewViperConfig 创建一个新的ViperConfig。
// configFile为空时使用默认值加环境变量覆盖。
//
// Parameters:
//   - configFile: Path to the configuration file, or ""
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading or validation fails
//
// 参数：
//   - configFile: 配置文件的路径，或""
//
// 返回：
//   - *ViperConfig: 一个新的ViperConfig实例
//   - error: 如果加载或验证失败则返回错误
func NewViperConfig(configFile string) (*ViperConfig, error) {
	v := viper.New()

	// Defaults and environment overrides
	// 默认值与环境变量覆盖
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		ext := filepath.Ext(configFile)
		v.SetConfigType(strings.TrimPrefix(ext, "."))

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	return &ViperConfig{
		Config:      config,
		viper:       v,
		configFile:  configFile,
		logger:      zap.NewNop(),
		subscribers: make([]func(*Config), 0),
	}, nil
}

// decode unmarshals and validates the current viper state.
func decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// setDefaults registers every leaf of cfg so AutomaticEnv can override keys
// that the config file does not mention.
func setDefaults(v *viper.Viper, cfg *Config) {
	var walk func(prefix string, rv reflect.Value)
	walk = func(prefix string, rv reflect.Value) {
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			key := field.Tag.Get("mapstructure")
			if key == "" {
				continue
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			fv := rv.Field(i)
			if fv.Kind() == reflect.Struct {
				walk(key, fv)
				continue
			}
			v.SetDefault(key, fv.Interface())
		}
	}
	walk("", reflect.ValueOf(cfg).Elem())
}

// SetLogger sets the logger used for reload events.
//
// SetLogger 设置重载事件使用的日志记录器。
func (vc *ViperConfig) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vc.mu.Lock()
	vc.logger = logger
	vc.mu.Unlock()
}

// ConfigFile returns the path the configuration was read from, or "".
func (vc *ViperConfig) ConfigFile() string {
	return vc.configFile
}

// StartHotReload starts exactly one reload mechanism: polling every
// interval when interval > 0, fsnotify otherwise. Polling stops when stop
// is closed.
//
// StartHotReload 只启动一种重载机制：interval > 0时轮询，否则使用fsnotify。
func (vc *ViperConfig) StartHotReload(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		vc.EnableHotReload()
		return
	}
	if vc.claim(ReloadPoll) {
		go vc.poll(interval, stop)
	}
}

// ReloadMode returns the running reload mechanism, or "".
func (vc *ViperConfig) ReloadMode() string {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.reloader
}

// claim records mode as the reload mechanism unless one already runs.
// Viper is not safe for concurrent reads of the same file, so fsnotify and
// polling never run together.
func (vc *ViperConfig) claim(mode string) bool {
	if vc.configFile == "" {
		return false
	}
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if vc.reloader != "" {
		vc.logger.Debug("hot reload already running", zap.String("mode", vc.reloader), zap.String("ignored", mode))
		return false
	}
	vc.reloader = mode
	return true
}

// EnableHotReload enables fsnotify hot reloading of the configuration file.
// When the configuration file changes, the configuration is automatically
// reloaded and all subscribers are notified. It is a no-op without a file
// or when polling already runs.
//
// EnableHotReload 启用基于fsnotify的配置文件热重载。
// 当配置文件更改时，配置会自动重新加载，并通知所有订阅者。
// 没有文件或已在轮询时无操作。
func (vc *ViperConfig) EnableHotReload() {
	if !vc.claim(ReloadNotify) {
		return
	}
	vc.viper.OnConfigChange(func(e fsnotify.Event) {
		vc.log().Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		vc.reload()
	})
	vc.viper.WatchConfig()
}

func (vc *ViperConfig) log() *zap.Logger {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.logger
}

// reload re-decodes the viper state and notifies subscribers on change.
// An invalid file keeps the previous configuration.
func (vc *ViperConfig) reload() bool {
	newConfig, err := decode(vc.viper)
	if err != nil {
		vc.log().Warn("config reload rejected", zap.Error(err))
		return false
	}

	vc.mu.Lock()
	if configsEqual(vc.Config, newConfig) {
		vc.mu.Unlock()
		return false
	}
	vc.Config = newConfig
	subscribers := make([]func(*Config), len(vc.subscribers))
	copy(subscribers, vc.subscribers)
	vc.mu.Unlock()

	// Notify subscribers
	// 通知订阅者
	for _, subscriber := range subscribers {
		subscriber(newConfig)
	}
	return true
}

// Subscribe adds a subscriber that will be notified when the configuration changes.
//
// Subscribe 添加一个在配置更改时将被通知的订阅者。
func (vc *ViperConfig) Subscribe(subscriber func(*Config)) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.subscribers = append(vc.subscribers, subscriber)
}

// Get returns the current configuration.
// This method is thread-safe and can be called concurrently.
//
// Get 返回当前配置。
// 此方法是线程安全的，可以并发调用。
func (vc *ViperConfig) Get() *Config {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.Config
}

// Watch polls the configuration file every interval until stop is closed.
// This is an alternative to fsnotify-based hot reloading for file systems
// where notifications are unreliable. It returns at once when another
// reload mechanism already runs.
//
// Watch 每隔interval轮询配置文件，直到stop被关闭。
// 这是基于fsnotify的热重载的替代方案，适用于通知不可靠的文件系统。
func (vc *ViperConfig) Watch(interval time.Duration, stop <-chan struct{}) {
	if vc.claim(ReloadPoll) {
		vc.poll(interval, stop)
	}
}

func (vc *ViperConfig) poll(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := vc.viper.ReadInConfig(); err != nil {
				vc.log().Warn("failed to read config file", zap.Error(err))
				continue
			}
			if vc.reload() {
				vc.log().Info("config file changed", zap.String("file", vc.configFile))
			}
		}
	}
}

// configsEqual checks if two configs are equal.
//
// configsEqual 检查两个配置是否相等。
func configsEqual(c1, c2 *Config) bool {
	return reflect.DeepEqual(c1, c2)
}
