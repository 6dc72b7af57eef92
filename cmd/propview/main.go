// Command propview browses property listings from a listings backend,
// either as a server-rendered web front (serve) or from the terminal.
//
// Command propview 从房源后端浏览房产列表，
// 既可以作为服务端渲染的Web前端（serve），也可以在终端中使用。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Humphrey-He/propview/configs"
	"github.com/Humphrey-He/propview/internal/logging"
	"github.com/Humphrey-He/propview/internal/metrics"
	"github.com/Humphrey-He/propview/pkg/gateway"
	"github.com/Humphrey-He/propview/pkg/session"
)

// app is the state every subcommand shares, built in PersistentPreRunE.
type app struct {
	// Global flags
	configFile string
	envFile    string
	baseURL    string
	tokenFile  string
	timeout    time.Duration
	verbose    bool

	vc      *configs.ViperConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	store   session.TokenStore
	gw      *gateway.Client
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "propview",
		Short: "Browse property listings from a listings backend",
		Long: `propview talks to a REST listings backend.

Run "propview serve" for the web front, or use the list/show/login
commands from the terminal. Configuration comes from --config, a .env
file and PROPVIEW_* environment variables, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "Config file (yaml or json)")
	pf.StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before the config")
	pf.StringVar(&a.baseURL, "base-url", "", "Backend base URL (overrides api.base_url)")
	pf.StringVar(&a.tokenFile, "token-file", "", "Session token file (overrides session.token_file)")
	pf.DurationVar(&a.timeout, "timeout", 0, "Per-request timeout (overrides api.timeout)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(a),
		newDemoBackendCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newStatusCmd(a),
		newConfigCmd(a),
	)
	return root
}

// init loads configuration and builds the logger, metrics, token store
// and gateway client.
func (a *app) init(cmd *cobra.Command) error {
	if err := configs.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	vc, err := configs.NewViperConfig(a.configFile)
	if err != nil {
		return err
	}
	a.vc = vc
	cfg := a.config()

	logCfg := cfg.Log
	if a.verbose {
		logCfg = logging.Verbose(logCfg)
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	a.logger = logger
	vc.SetLogger(logger.Named("config"))

	a.metrics = newMetrics(cfg.Metrics)

	// serve keeps the session in memory unless a token file is configured;
	// one-shot commands need a file to stay logged in between runs.
	tokenFile := cfg.Session.TokenFile
	if tokenFile == "" && cmd.Name() != "serve" {
		tokenFile = defaultTokenFile()
	}
	if tokenFile != "" {
		a.store = session.NewFileStore(tokenFile)
	} else {
		a.store = session.NewMemoryStore()
	}

	a.gw = gateway.New(cfg.API.BaseURL,
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithTokenSource(session.Fresh{Source: a.store}),
		gateway.WithLogger(logger.Named("gateway")),
		gateway.WithMetrics(a.metrics),
	)
	logger.Debug("propview initialized",
		zap.String("config", vc.ConfigFile()),
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("token_file", tokenFile),
	)
	return nil
}

// config returns the current configuration with flag overrides applied.
func (a *app) config() *configs.Config {
	return a.overlay(a.vc.Get())
}

// overlay copies cfg and applies the global flag overrides.
func (a *app) overlay(cfg *configs.Config) *configs.Config {
	c := *cfg
	if a.baseURL != "" {
		c.API.BaseURL = a.baseURL
	}
	if a.timeout > 0 {
		c.API.Timeout = a.timeout
	}
	if a.tokenFile != "" {
		c.Session.TokenFile = a.tokenFile
	}
	return &c
}

func newMetrics(cfg configs.MetricsConfig) *metrics.Metrics {
	level := metrics.Disabled
	if cfg.Enable {
		level = metrics.ParseLevel(cfg.Level)
	}
	return metrics.New(&metrics.Config{Level: level, HistogramBuckets: cfg.HistogramBuckets})
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".propview", "token.yaml")
	}
	return filepath.Join(dir, "propview", "token.yaml")
}
