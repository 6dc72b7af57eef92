// Package logging builds the process logger from configuration.
//
// Package logging 根据配置构建进程日志记录器。
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Humphrey-He/propview/configs"
)

// New builds a zap logger for cfg. Format "text" selects the console encoder.
//
// New 根据cfg构建zap日志记录器。格式"text"选择控制台编码器。
func New(cfg configs.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "text", "":
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = level > zapcore.DebugLevel

	switch cfg.Output {
	case "stdout":
		zc.OutputPaths = []string{"stdout"}
	case "stderr", "":
		zc.OutputPaths = []string{"stderr"}
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("log output 'file' requires a file path")
		}
		zc.OutputPaths = []string{cfg.FilePath}
	default:
		return nil, fmt.Errorf("unsupported log output: %s", cfg.Output)
	}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.String("app", "propview")), nil
}

// Verbose returns cfg with the level forced to debug.
func Verbose(cfg configs.LogConfig) configs.LogConfig {
	cfg.Level = "debug"
	return cfg
}
