// Package session holds the bearer credential used by the gateway client.
// The storage mechanism is pluggable; presence of a token is never required.
//
// Package session 保存网关客户端使用的持有者凭证。
// 存储机制是可插拔的；从不要求令牌存在。
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

// TokenSource supplies the current bearer token. An empty token means
// requests go out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenStore is a TokenSource that can also be written to.
type TokenStore interface {
	TokenSource
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type storeKey struct{}

// NewContext returns a copy of ctx carrying ts. A gateway call made with
// that context reads and writes ts instead of its own token source, which
// lets one client serve many independent sessions.
//
// NewContext 返回携带ts的ctx副本。使用该上下文的网关调用读写ts而不是
// 客户端自身的令牌源，从而让一个客户端服务多个独立会话。
func NewContext(ctx context.Context, ts TokenStore) context.Context {
	return context.WithValue(ctx, storeKey{}, ts)
}

// FromContext returns the store attached by NewContext.
func FromContext(ctx context.Context) (TokenStore, bool) {
	ts, ok := ctx.Value(storeKey{}).(TokenStore)
	return ts, ok && ts != nil
}

// StaticToken is a read-only TokenSource.
type StaticToken string

// Token returns the static token.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Token(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	return m.SetToken(context.Background(), "")
}

// FileStore persists the token to a small YAML file so the CLI keeps its
// login between invocations.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type tokenFile struct {
	Token   string    `yaml:"token"`
	SavedAt time.Time `yaml:"saved_at"`
}

// NewFileStore creates a store backed by path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var tf tokenFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("failed to decode token file: %w", err)
	}
	return tf.Token, nil
}

func (f *FileStore) SetToken(_ context.Context, token string) error {
	if token == "" {
		return f.Clear(context.Background())
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := yaml.Marshal(tokenFile{Token: token, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// Claims is what the client can read from a JWT without verifying it.
// The server stays the sole authority on access; these are for display
// and for dropping obviously expired tokens.
type Claims struct {
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

// Expired reports whether the token carried an exp claim in the past.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// HasRole reports whether role appears in the roles claim.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Peek decodes a JWT without verifying its signature. Opaque (non-JWT)
// tokens return ok=false and no error.
func Peek(token string) (claims Claims, ok bool) {
	if token == "" {
		return Claims{}, false
	}
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, false
	}

	if sub, err := mc.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	switch roles := mc["roles"].(type) {
	case []interface{}:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, s)
			}
		}
	case string:
		claims.Roles = []string{roles}
	}
	return claims, true
}

// Fresh wraps a TokenSource and hides tokens whose exp claim has passed,
// so requests go out unauthenticated instead of with a stale credential.
type Fresh struct {
	Source TokenSource
	Now    func() time.Time
}

func (f Fresh) Token(ctx context.Context) (string, error) {
	tok, err := f.Source.Token(ctx)
	if err != nil || tok == "" {
		return tok, err
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	if c, ok := Peek(tok); ok && c.Expired(now()) {
		return "", nil
	}
	return tok, nil
}

// SetToken writes through to the wrapped source when it is a TokenStore.
func (f Fresh) SetToken(ctx context.Context, token string) error {
	if s, ok := f.Source.(TokenStore); ok {
		return s.SetToken(ctx, token)
	}
	return nil
}

// Clear clears the wrapped source when it is a TokenStore.
func (f Fresh) Clear(ctx context.Context) error {
	if s, ok := f.Source.(TokenStore); ok {
		return s.Clear(ctx)
	}
	return nil
}
