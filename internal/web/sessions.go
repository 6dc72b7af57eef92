package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Humphrey-He/propview/internal/controller"
	"github.com/Humphrey-He/propview/pkg/gateway"
	"github.com/Humphrey-He/propview/pkg/session"
)

// SessionCookie names the cookie that carries the visitor session id.
const SessionCookie = "propview_session"

// DefaultSessionIdle is used when NewSessions is given a non-positive idle time.
const DefaultSessionIdle = 24 * time.Hour

const visitorKey = "visitor"

// Visitor is one browser's session: its backend token and the auth and
// admin state rendered for it. Anonymous visitors are never registered.
//
// Visitor 是一个浏览器的会话：它的后端令牌以及为它渲染的认证和管理状态。
// 匿名访客不会被注册。
type Visitor struct {
	ID    string
	Store *session.MemoryStore
	Auth  *controller.AuthController
	Admin *controller.AdminController

	lastSeen time.Time
}

// Sessions keeps the registered visitors in memory, keyed by cookie value.
// Sessions idle for longer than the idle time are dropped.
//
// Sessions 在内存中保存已注册的访客，以cookie值为键。
type Sessions struct {
	gw     *gateway.Client
	cache  controller.Invalidator
	idle   time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	byID map[string]*Visitor
}

// NewSessions creates an empty registry. Admin edits made by any visitor
// invalidate cache.
func NewSessions(gw *gateway.Client, cache controller.Invalidator, idle time.Duration, logger *zap.Logger) *Sessions {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{
		gw:     gw,
		cache:  cache,
		idle:   idle,
		logger: logger,
		now:    time.Now,
		byID:   make(map[string]*Visitor),
	}
}

func (s *Sessions) newVisitor(id string) *Visitor {
	auth := controller.NewAuthController(s.gw, s.logger.Named("auth"))
	return &Visitor{
		ID:    id,
		Store: session.NewMemoryStore(),
		Auth:  auth,
		Admin: controller.NewAdminController(s.gw, auth, s.cache, s.logger.Named("admin")),
	}
}

// Anonymous returns a fresh unregistered visitor with no token.
func (s *Sessions) Anonymous() *Visitor {
	return s.newVisitor("")
}

// Register gives v a new id and keeps it. A visitor that already had an
// id is re-keyed, so the id changes on every login.
func (s *Sessions) Register(v *Visitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	if v.ID != "" {
		delete(s.byID, v.ID)
	}
	v.ID = uuid.NewString()
	v.lastSeen = s.now()
	s.byID[v.ID] = v
}

// Get returns the live visitor for id, or nil.
func (s *Sessions) Get(id string) *Visitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return nil
	}
	now := s.now()
	if now.Sub(v.lastSeen) > s.idle {
		delete(s.byID, id)
		return nil
	}
	v.lastSeen = now
	return v
}

// Drop forgets the visitor with id.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

// Len returns the number of registered visitors.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// sweep drops idle visitors. Callers hold s.mu.
func (s *Sessions) sweep() {
	now := s.now()
	for id, v := range s.byID {
		if now.Sub(v.lastSeen) > s.idle {
			delete(s.byID, id)
		}
	}
}

// VisitorSession resolves the visitor from the session cookie and attaches
// its token store to the request context, so backend calls made while
// handling the request carry that visitor's token and nobody else's.
//
// VisitorSession 根据会话cookie解析访客，并将其令牌存储附加到请求上下文。
func VisitorSession(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var v *Visitor
		if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
			v = sessions.Get(id)
		}
		if v == nil {
			v = sessions.Anonymous()
		}
		bindVisitor(c, v)
		c.Next()
	}
}

func bindVisitor(c *gin.Context, v *Visitor) {
	c.Set(visitorKey, v)
	c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), v.Store))
}

func visitorOf(c *gin.Context) *Visitor {
	return c.MustGet(visitorKey).(*Visitor)
}

// keepVisitor registers v and sets its cookie.
func (s *Server) keepVisitor(c *gin.Context, v *Visitor) {
	s.ctl.Sessions.Register(v)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, v.ID, int(s.ctl.Sessions.idle/time.Second), "/", "", c.Request.TLS != nil, true)
}

// forgetVisitor drops v and expires its cookie.
func (s *Server) forgetVisitor(c *gin.Context, v *Visitor) {
	if v.ID != "" {
		s.ctl.Sessions.Drop(v.ID)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}
