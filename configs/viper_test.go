// Package configs provides configuration structures and utilities for propview.
// This file contains tests for the Viper-based configuration functionality.
//
// Package configs 提供propview的配置结构和工具。
// 本文件包含基于Viper的配置功能的测试。
package configs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestViperConfigWithReader tests configuration loading using a reader
// instead of actual files. It verifies that values are correctly parsed
// from YAML content.
//
// TestViperConfigWithReader 使用读取器而不是实际文件测试配置加载。
// 它验证配置值是否正确地从YAML内容解析。
func TestViperConfigWithReader(t *testing.T) {
	yamlConfig := `
api:
  base_url: "http://backend:9090/api"
  timeout: 3s
web:
  addr: ":8000"
loader:
  detail_cache_ttl: 0s
`

	config, err := LoadFromReader(strings.NewReader(yamlConfig), "yaml")
	if err != nil {
		t.Fatalf("Failed to load config from reader: %v", err)
	}

	if config.API.BaseURL != "http://backend:9090/api" {
		t.Errorf("Expected API.BaseURL to be 'http://backend:9090/api', got '%s'", config.API.BaseURL)
	}
	if config.API.Timeout != 3*time.Second {
		t.Errorf("Expected API.Timeout to be 3s, got %s", config.API.Timeout)
	}
	if config.Web.Addr != ":8000" {
		t.Errorf("Expected Web.Addr to be ':8000', got '%s'", config.Web.Addr)
	}
	if config.Loader.DetailCacheTTL != 0 {
		t.Errorf("Expected caching disabled, got %s", config.Loader.DetailCacheTTL)
	}
	if config.Locale.Tag != "en-IN" {
		t.Errorf("Expected untouched Locale.Tag default, got '%s'", config.Locale.Tag)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "propview.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestNewViperConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: "http://backend:9090/api"
  timeout: 4s
log:
  level: debug
`)
	vc, err := NewViperConfig(path)
	if err != nil {
		t.Fatalf("NewViperConfig failed: %v", err)
	}
	cfg := vc.Get()
	if cfg.API.BaseURL != "http://backend:9090/api" || cfg.API.Timeout != 4*time.Second {
		t.Errorf("Unexpected API section: %+v", cfg.API)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug log level, got %s", cfg.Log.Level)
	}
	if cfg.Web.Addr != ":3000" {
		t.Errorf("Expected default web addr, got %s", cfg.Web.Addr)
	}
	if vc.ConfigFile() != path {
		t.Errorf("Expected ConfigFile %s, got %s", path, vc.ConfigFile())
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("PROPVIEW_API_BASE_URL", "http://env-host:7070/api")
	t.Setenv("PROPVIEW_API_TIMEOUT", "2s")

	vc, err := NewViperConfig("")
	if err != nil {
		t.Fatalf("NewViperConfig failed: %v", err)
	}
	if vc.Get().API.BaseURL != "http://env-host:7070/api" {
		t.Errorf("Expected env base url, got %s", vc.Get().API.BaseURL)
	}
	if vc.Get().API.Timeout != 2*time.Second {
		t.Errorf("Expected env timeout 2s, got %s", vc.Get().API.Timeout)
	}
}

func TestInvalidFileRejected(t *testing.T) {
	path := writeConfig(t, "log:\n  level: loud\n")
	if _, err := NewViperConfig(path); err == nil {
		t.Error("Expected invalid log level to be rejected")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PROPVIEW_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROPVIEW_TEST_DOTENV", "")
	os.Unsetenv("PROPVIEW_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("PROPVIEW_TEST_DOTENV"); got != "from-file" {
		t.Errorf("Expected from-file, got %q", got)
	}
}

func TestReloadNotifiesSubscribers(t *testing.T) {
	path := writeConfig(t, "api:\n  timeout: 4s\n")
	vc, err := NewViperConfig(path)
	if err != nil {
		t.Fatalf("NewViperConfig failed: %v", err)
	}

	var got *Config
	vc.Subscribe(func(c *Config) { got = c })

	if err := os.WriteFile(path, []byte("api:\n  timeout: 6s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := vc.viper.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	if !vc.reload() {
		t.Fatal("Expected reload to report a change")
	}
	if got == nil || got.API.Timeout != 6*time.Second {
		t.Errorf("Expected subscriber to see 6s timeout, got %+v", got)
	}
	if vc.reload() {
		t.Error("Expected second reload without changes to be a no-op")
	}
}

func TestHotReloadModesAreExclusive(t *testing.T) {
	path := writeConfig(t, "api:\n  timeout: 4s\n")
	vc, err := NewViperConfig(path)
	if err != nil {
		t.Fatalf("NewViperConfig failed: %v", err)
	}
	stop := make(chan struct{})
	defer close(stop)

	vc.StartHotReload(time.Hour, stop)
	if got := vc.ReloadMode(); got != ReloadPoll {
		t.Fatalf("Expected %q, got %q", ReloadPoll, got)
	}
	vc.EnableHotReload()
	vc.StartHotReload(0, stop)
	if got := vc.ReloadMode(); got != ReloadPoll {
		t.Errorf("Expected fsnotify to stay off while polling, got %q", got)
	}

	done := make(chan struct{})
	go func() {
		vc.Watch(time.Millisecond, stop)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Expected a second poller to return immediately")
	}
}

func TestHotReloadNeedsFile(t *testing.T) {
	vc, err := NewViperConfig("")
	if err != nil {
		t.Fatalf("NewViperConfig failed: %v", err)
	}
	vc.StartHotReload(0, nil)
	if got := vc.ReloadMode(); got != "" {
		t.Errorf("Expected no reload without a file, got %q", got)
	}
}

// TestConfigsEqual tests the configsEqual helper function.
//
// TestConfigsEqual 测试configsEqual辅助函数。
func TestConfigsEqual(t *testing.T) {
	config1 := DefaultConfig()
	config2 := DefaultConfig()

	if !configsEqual(config1, config2) {
		t.Error("configsEqual() returned false for identical configs")
	}

	config2.API.Timeout = time.Second
	if configsEqual(config1, config2) {
		t.Error("configsEqual() returned true for different configs")
	}
}
