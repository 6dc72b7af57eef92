// Package web serves the server-rendered property views with gin.
// It is a thin presentation layer over the view-state controllers:
// handlers translate form and query input into controller calls and
// render the resulting state with html/template.
//
// Each browser gets its own backend session, keyed by the propview_session
// cookie. Listings and details are shared; auth and admin state are not.
//
// Package web 使用gin提供服务端渲染的房源视图。
// 它是视图状态控制器之上的薄表示层：处理程序将表单和查询输入转换为
// 控制器调用，并使用html/template渲染结果状态。
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Humphrey-He/propview/internal/controller"
	"github.com/Humphrey-He/propview/internal/metrics"
	"github.com/Humphrey-He/propview/pkg/format"
	"github.com/Humphrey-He/propview/pkg/gateway"
)

//go:embed templates/*.html static/*
var assets embed.FS

// DefaultPlaceholder is the image shown for listings without one.
const DefaultPlaceholder = "/static/placeholder.svg"

// Controllers groups the view-state controllers the pages render. Auth
// and admin controllers live per visitor in Sessions.
type Controllers struct {
	List     *controller.ListController
	Detail   *controller.DetailController
	Status   *controller.StatusController
	Sessions *Sessions
}

// NewControllers wires every controller to one gateway client. Visitors'
// admin controllers invalidate the shared detail cache after edits.
//
// NewControllers 将所有控制器连接到同一个网关客户端。
// 访客的管理控制器在编辑后使共享的详情缓存失效。
func NewControllers(gw *gateway.Client, detailTTL, sessionIdle time.Duration, logger *zap.Logger) Controllers {
	if logger == nil {
		logger = zap.NewNop()
	}
	detail := controller.NewDetailController(gw, detailTTL, logger.Named("detail"))
	return Controllers{
		List:     controller.NewListController(gw, logger.Named("list")),
		Detail:   detail,
		Status:   controller.NewStatusController(gw),
		Sessions: NewSessions(gw, detail, sessionIdle, logger.Named("sessions")),
	}
}

// Server renders the pages.
type Server struct {
	ctl         Controllers
	logger      *zap.Logger
	formatter   atomic.Pointer[format.Formatter]
	placeholder string
	metrics     *metrics.Metrics
	metricsPath string
	templates   *template.Template
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and handler logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFormatter sets the display formatter.
func WithFormatter(f *format.Formatter) Option {
	return func(s *Server) {
		if f != nil {
			s.formatter.Store(f)
		}
	}
}

// WithPlaceholder sets the fallback image URL.
func WithPlaceholder(url string) Option {
	return func(s *Server) {
		if url != "" {
			s.placeholder = url
		}
	}
}

// WithMetrics exposes m in the Prometheus text format at path.
func WithMetrics(m *metrics.Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsPath = path
	}
}

// New creates a server and parses the embedded templates.
//
// New 创建服务器并解析嵌入的模板。
func New(ctl Controllers, opts ...Option) (*Server, error) {
	s := &Server{
		ctl:         ctl,
		logger:      zap.NewNop(),
		placeholder: DefaultPlaceholder,
	}
	s.formatter.Store(format.Default())
	for _, opt := range opts {
		opt(s)
	}

	tmpl, err := template.New("").Funcs(s.funcs()).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.templates = tmpl
	return s, nil
}

// SetFormatter swaps the display formatter, e.g. after a config reload.
func (s *Server) SetFormatter(f *format.Formatter) {
	if f != nil {
		s.formatter.Store(f)
	}
}

// Router builds the gin engine. It does not touch gin's global mode.
//
// Router 构建gin引擎。它不修改gin的全局模式。
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(s.logger), RequestLogger(s.logger), VisitorSession(s.ctl.Sessions))
	r.SetHTMLTemplate(s.templates)

	static, _ := fs.Sub(assets, "static")
	r.StaticFS("/static", http.FS(static))

	r.GET("/", s.listPage)
	r.GET("/properties/:id", s.detailPage)
	r.POST("/properties/:id/enquiry", s.enquire)

	admin := r.Group("/admin")
	admin.GET("", s.adminPage)
	admin.POST("/properties", s.createListing)
	admin.POST("/properties/:id", s.updateListing)
	admin.POST("/properties/:id/delete", s.deleteListing)

	r.GET("/login", s.loginForm)
	r.POST("/login", s.login)
	r.GET("/signup", s.signupForm)
	r.POST("/signup", s.signup)
	r.POST("/logout", s.logout)

	r.GET("/status", s.status)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil && s.metricsPath != "" {
		r.GET(s.metricsPath, gin.WrapH(metrics.NewPrometheusExporter(s.metrics)))
	}

	r.NoRoute(func(c *gin.Context) {
		s.render(c, http.StatusNotFound, "error", errorPage{Layout: s.layout(c, "Not found"), Message: "Page not found"})
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
//
// Run 在addr上提供服务直到ctx被取消，然后优雅关闭。
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("web front listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("web front shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
