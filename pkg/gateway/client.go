// Package gateway is the HTTP client for the listings/auth backend.
// Every call returns the decoded success envelope or one of the
// classified errors from pkg/errors: NetworkError when no response
// arrived, NotFoundError for 404, and APIError for everything else.
//
// Package gateway 是房源/认证后端的HTTP客户端。
// 每个调用返回解码后的成功信封，或pkg/errors中的分类错误：
// 没有收到响应时返回NetworkError，404返回NotFoundError，其余返回APIError。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Humphrey-He/propview/internal/metrics"
	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/listing"
	"github.com/Humphrey-He/propview/pkg/session"
)

// Defaults used when no option overrides them.
const (
	DefaultBaseURL = "http://localhost:8080/api"
	DefaultTimeout = 10 * time.Second

	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes    = 4 << 20
	maxMessageLen   = 512
	contentTypeJSON = "application/json"
)

// Client talks to the backend. It is safe for concurrent use.
//
// Client 与后端通信。它可以安全地并发使用。
type Client struct {
	baseURL string
	http    *http.Client
	tokens  session.TokenSource
	logger  *zap.Logger
	metrics *metrics.Metrics
	newID   func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the fixed per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenSource sets where the bearer token comes from. When the source
// is also a session.TokenStore, Login and Logout write to it.
func WithTokenSource(ts session.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the debug logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records every call into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for baseURL. An empty baseURL means DefaultBaseURL.
//
// New 为baseURL创建客户端。空的baseURL表示DefaultBaseURL。
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  zap.NewNop(),
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Metrics returns the collector, which may be nil.
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// request describes one backend call.
type request struct {
	method string
	route  string // route template for metrics, e.g. "/properties/{id}"
	path   string
	query  url.Values
	body   any

	// noData marks operations whose success envelope may omit data.
	noData bool
}

func (r request) op() string {
	return r.method + " " + r.route
}

// call performs r and decodes the envelope into T.
func call[T any](ctx context.Context, c *Client, r request) (*listing.Envelope[T], error) {
	start := time.Now()
	requestID := c.newID()

	env, status, err := roundTrip[T](ctx, c, r, requestID)

	elapsed := time.Since(start)
	outcome := classify(err)
	if c.metrics != nil {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		c.metrics.Record(r.op(), outcome, elapsed, msg)
	}

	fields := []zap.Field{
		zap.String("op", r.op()),
		zap.String("request_id", requestID),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		c.logger.Debug("backend request failed", append(fields, zap.String("outcome", string(outcome)), zap.Error(err))...)
		return nil, err
	}
	c.logger.Debug("backend request", fields...)
	return env, nil
}

func roundTrip[T any](ctx context.Context, c *Client, r request, requestID string) (*listing.Envelope[T], int, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: failed to encode request body: %w", r.op(), err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: failed to build request: %w", r.op(), err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(RequestIDHeader, requestID)

	if ts := c.tokenSource(ctx); ts != nil {
		token, err := ts.Token(ctx)
		if err != nil {
			c.logger.Warn("token source failed, sending unauthenticated", zap.Error(err))
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &perrors.NetworkError{Op: r.op(), BaseURL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, &perrors.NetworkError{Op: r.op(), BaseURL: c.baseURL, Err: err}
	}

	env, err := decodeResponse[T](resp.StatusCode, r.path, raw, !r.noData)
	return env, resp.StatusCode, err
}

// tokenSource prefers a store attached to ctx over the client's own, so a
// single client can act for many sessions.
func (c *Client) tokenSource(ctx context.Context) session.TokenSource {
	if ts, ok := session.FromContext(ctx); ok {
		return session.Fresh{Source: ts}
	}
	return c.tokens
}

// decodeResponse classifies a received response. With needData set, a
// success envelope whose data is missing or null is an APIError.
func decodeResponse[T any](status int, path string, raw []byte, needData bool) (*listing.Envelope[T], error) {
	switch {
	case status == http.StatusNotFound:
		return nil, &perrors.NotFoundError{Path: path, Message: envelopeMessage(raw)}
	case status < 200 || status > 299:
		return nil, perrors.NewAPIError(status, errorMessage(status, raw))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, perrors.NewAPIError(0, "")
	}
	if _, ok := top["success"]; !ok {
		return nil, perrors.NewAPIError(0, "")
	}

	var env listing.Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, perrors.NewAPIError(0, envelopeMessage(raw))
	}
	if !env.Success {
		return nil, perrors.NewAPIError(0, env.Message)
	}
	if data, ok := top["data"]; needData && (!ok || string(bytes.TrimSpace(data)) == "null") {
		return nil, perrors.NewAPIError(0, env.Message)
	}
	return &env, nil
}

// envelopeMessage returns the "message" field of a JSON body, or "".
func envelopeMessage(raw []byte) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	if m.Message != "" {
		return m.Message
	}
	return m.Error
}

// errorMessage picks the envelope message, then the raw body, then the status text.
func errorMessage(status int, raw []byte) string {
	if msg := envelopeMessage(raw); msg != "" {
		return msg
	}
	if text := strings.TrimSpace(string(raw)); text != "" && !strings.HasPrefix(text, "{") {
		return truncate(text, maxMessageLen)
	}
	return http.StatusText(status)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// classify maps an error to a metrics outcome.
func classify(err error) metrics.Outcome {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case perrors.IsNetwork(err):
		return metrics.OutcomeNetwork
	case perrors.IsNotFound(err):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeAPI
	}
}
