package controller

import (
	"context"
	"sync"

	"go.uber.org/zap"

	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/listing"
)

// AuthState is a copy of the auth controller's state.
type AuthState struct {
	User    *listing.User
	Loading bool
	Error   string
	Fields  perrors.FieldErrors
	Notice  string
}

// AuthController runs the login and signup forms and remembers the user.
type AuthController struct {
	svc    AuthService
	logger *zap.Logger

	mu    sync.Mutex
	state AuthState
}

// NewAuthController creates a controller over svc.
func NewAuthController(svc AuthService, logger *zap.Logger) *AuthController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthController{svc: svc, logger: logger}
}

func (c *AuthController) set(fn func(*AuthState)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
}

// Login validates creds client side, then authenticates.
func (c *AuthController) Login(ctx context.Context, creds listing.Credentials) (*listing.User, error) {
	if err := creds.Validate(); err != nil {
		c.set(func(s *AuthState) { s.Error, s.Fields, s.Notice = "", perrors.Fields(err), "" })
		return nil, err
	}
	c.set(func(s *AuthState) { *s = AuthState{User: s.User, Loading: true} })

	env, err := c.svc.Login(ctx, creds)
	if err != nil {
		msg := authMessage(err, MsgLoginFailed)
		c.logger.Info("login failed", zap.String("email", creds.Email), zap.Error(err))
		c.set(func(s *AuthState) { s.Loading, s.Error = false, msg })
		return nil, err
	}

	u := env.Data.User
	notice := env.Message
	if notice == "" {
		notice = "Login successful!"
	}
	c.set(func(s *AuthState) { *s = AuthState{User: &u, Notice: notice} })
	return &u, nil
}

// Signup validates req client side, then registers. It does not log in.
func (c *AuthController) Signup(ctx context.Context, req listing.SignupRequest) (*listing.User, error) {
	if err := req.Validate(); err != nil {
		c.set(func(s *AuthState) { s.Error, s.Fields, s.Notice = "", perrors.Fields(err), "" })
		return nil, err
	}
	c.set(func(s *AuthState) { *s = AuthState{User: s.User, Loading: true} })

	env, err := c.svc.Signup(ctx, req)
	if err != nil {
		msg := authMessage(err, MsgSignupFailed)
		c.logger.Info("signup failed", zap.String("email", req.Email), zap.Error(err))
		c.set(func(s *AuthState) { s.Loading, s.Error = false, msg })
		return nil, err
	}

	u := env.Data
	notice := env.Message
	if notice == "" {
		notice = "Account created successfully!"
	}
	c.set(func(s *AuthState) { *s = AuthState{User: s.User, Notice: notice} })
	return &u, nil
}

// Logout ends the session. The local user is forgotten even when the
// remote call fails.
func (c *AuthController) Logout(ctx context.Context) error {
	_, err := c.svc.Logout(ctx)
	if err != nil {
		c.logger.Warn("remote logout failed", zap.Error(err))
	}
	c.set(func(s *AuthState) { *s = AuthState{Notice: "Logged out"} })
	return err
}

// Restore asks the backend who the held token belongs to. A failure simply
// leaves the user logged out.
func (c *AuthController) Restore(ctx context.Context) (*listing.User, error) {
	env, err := c.svc.CurrentUser(ctx)
	if err != nil {
		c.set(func(s *AuthState) { s.User = nil })
		return nil, err
	}
	u := env.Data
	c.set(func(s *AuthState) { s.User = &u })
	return &u, nil
}

// CurrentUser returns the logged-in user or nil.
func (c *AuthController) CurrentUser() *listing.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.User == nil {
		return nil
	}
	u := *c.state.User
	return &u
}

// State returns a copy of the current state.
func (c *AuthController) State() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ClearMessages resets the error, field errors and notice.
func (c *AuthController) ClearMessages() {
	c.set(func(s *AuthState) { s.Error, s.Fields, s.Notice = "", nil, "" })
}
