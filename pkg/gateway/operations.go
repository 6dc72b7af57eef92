package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Humphrey-He/propview/pkg/listing"
	"github.com/Humphrey-He/propview/pkg/session"
)

// SearchParams are the server-side search filters. Zero values are omitted.
type SearchParams struct {
	Query    string
	Location string
	Title    string
	MinPrice float64
	MaxPrice float64
}

// Values encodes the params as a query string.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(p.Query); s != "" {
		v.Set("query", s)
	}
	if s := strings.TrimSpace(p.Location); s != "" {
		v.Set("location", s)
	}
	if s := strings.TrimSpace(p.Title); s != "" {
		v.Set("title", s)
	}
	if p.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatFloat(p.MinPrice, 'f', -1, 64))
	}
	if p.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatFloat(p.MaxPrice, 'f', -1, 64))
	}
	return v
}

func propertyPath(id int64) string {
	return "/properties/" + strconv.FormatInt(id, 10)
}

// ListAll fetches every listing.
func (c *Client) ListAll(ctx context.Context) (*listing.Envelope[[]listing.Listing], error) {
	return call[[]listing.Listing](ctx, c, request{method: http.MethodGet, route: "/properties", path: "/properties"})
}

// GetByID fetches one listing.
func (c *Client) GetByID(ctx context.Context, id int64) (*listing.Envelope[listing.Listing], error) {
	return call[listing.Listing](ctx, c, request{method: http.MethodGet, route: "/properties/{id}", path: propertyPath(id)})
}

// Create posts a new listing.
func (c *Client) Create(ctx context.Context, p listing.Payload) (*listing.Envelope[listing.Listing], error) {
	return call[listing.Listing](ctx, c, request{method: http.MethodPost, route: "/properties", path: "/properties", body: p})
}

// Update replaces the listing with the given id.
func (c *Client) Update(ctx context.Context, id int64, p listing.Payload) (*listing.Envelope[listing.Listing], error) {
	return call[listing.Listing](ctx, c, request{method: http.MethodPut, route: "/properties/{id}", path: propertyPath(id), body: p})
}

// Delete removes the listing with the given id.
func (c *Client) Delete(ctx context.Context, id int64) (*listing.Envelope[json.RawMessage], error) {
	return call[json.RawMessage](ctx, c, request{method: http.MethodDelete, route: "/properties/{id}", path: propertyPath(id), noData: true})
}

// Search runs a server-side query.
func (c *Client) Search(ctx context.Context, params SearchParams) (*listing.Envelope[[]listing.Listing], error) {
	return call[[]listing.Listing](ctx, c, request{
		method: http.MethodGet,
		route:  "/properties/search",
		path:   "/properties/search",
		query:  params.Values(),
	})
}

// Signup registers a user.
func (c *Client) Signup(ctx context.Context, req listing.SignupRequest) (*listing.Envelope[listing.User], error) {
	return call[listing.User](ctx, c, request{method: http.MethodPost, route: "/auth/signup", path: "/auth/signup", body: req})
}

// Login authenticates. A token in the response is stored when the client's
// token source is writable.
func (c *Client) Login(ctx context.Context, creds listing.Credentials) (*listing.Envelope[listing.Session], error) {
	env, err := call[listing.Session](ctx, c, request{method: http.MethodPost, route: "/login", path: "/login", body: creds})
	if err != nil {
		return nil, err
	}
	if store, ok := c.tokenSource(ctx).(session.TokenStore); ok && env.Data.Token != "" {
		if err := store.SetToken(ctx, env.Data.Token); err != nil {
			c.logger.Warn("failed to store session token", zap.Error(err))
		}
	}
	return env, nil
}

// Logout ends the session. The local token is cleared even when the
// remote call fails; the remote error is still returned.
func (c *Client) Logout(ctx context.Context) (*listing.Envelope[json.RawMessage], error) {
	env, err := call[json.RawMessage](ctx, c, request{method: http.MethodPost, route: "/logout", path: "/logout", noData: true})
	if store, ok := c.tokenSource(ctx).(session.TokenStore); ok {
		if cerr := store.Clear(ctx); cerr != nil {
			c.logger.Warn("failed to clear session token", zap.Error(cerr))
			err = errors.Join(err, cerr)
		}
	}
	return env, err
}

// CurrentUser returns the identity behind the current session.
func (c *Client) CurrentUser(ctx context.Context) (*listing.Envelope[listing.User], error) {
	return call[listing.User](ctx, c, request{method: http.MethodGet, route: "/me", path: "/me"})
}
