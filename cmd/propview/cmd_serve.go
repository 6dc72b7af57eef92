package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Humphrey-He/propview/configs"
	"github.com/Humphrey-He/propview/internal/backendtest"
	"github.com/Humphrey-He/propview/internal/web"
	"github.com/Humphrey-He/propview/pkg/listing"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.config()
			if addr == "" {
				addr = cfg.Web.Addr
			}
			gin.SetMode(cfg.Web.Mode)

			ctl := web.NewControllers(a.gw, cfg.Loader.DetailCacheTTL, cfg.Web.SessionIdle, a.logger)
			opts := []web.Option{
				web.WithLogger(a.logger.Named("web")),
				web.WithFormatter(cfg.Locale.Formatter()),
				web.WithPlaceholder(cfg.Web.PlaceholderImage),
			}
			if cfg.Metrics.Enable {
				opts = append(opts, web.WithMetrics(a.metrics, cfg.Metrics.Path))
			}
			srv, err := web.New(ctl, opts...)
			if err != nil {
				return err
			}

			if hr := cfg.Extensions.HotReload; hr.Enable {
				a.vc.Subscribe(func(c *configs.Config) {
					c = a.overlay(c)
					ctl.Detail.SetTTL(c.Loader.DetailCacheTTL)
					srv.SetFormatter(c.Locale.Formatter())
					a.logger.Info("configuration reloaded",
						zap.Duration("detail_cache_ttl", c.Loader.DetailCacheTTL),
						zap.String("locale", c.Locale.Tag),
					)
				})
				// A watch interval selects polling instead of fsnotify.
				a.vc.StartHotReload(hr.WatchInterval, ctx.Done())
			}

			return srv.Run(ctx, addr, cfg.Web.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides web.addr)")
	return cmd
}

func newDemoBackendCmd(a *app) *cobra.Command {
	var (
		addr     string
		admin    listing.User
		password string
	)
	cmd := &cobra.Command{
		Use:   "demo-backend",
		Short: "Run an in-memory listings backend with sample data",
		Long: `Run an in-memory REST backend under /api, seeded with sample
listings and one admin account. Data is lost on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := a.logger.Named("backend")
			b := backendtest.New(
				backendtest.WithListings(backendtest.Sample()...),
				backendtest.WithUser(admin, password),
				backendtest.WithLogger(logger),
			)
			srv := &http.Server{
				Addr:              addr,
				Handler:           b.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "demo backend on %s/api (admin: %s)\n", displayAddr(addr), admin.Email)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config().Web.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	admin.FirstName, admin.LastName, admin.Type = "Admin", "User", "ADMIN"
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&admin.Email, "admin-email", "admin@example.com", "Seeded admin email")
	cmd.Flags().StringVar(&password, "admin-password", "admin123", "Seeded admin password")
	return cmd
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
