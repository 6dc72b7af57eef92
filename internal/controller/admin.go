package controller

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/listing"
)

// SessionHolder reports the logged-in user, or nil.
type SessionHolder interface {
	CurrentUser() *listing.User
}

// Invalidator drops cached copies of listings.
type Invalidator interface {
	Invalidate(id int64)
	Purge()
}

// AdminState is a copy of the admin controller's state.
type AdminState struct {
	Listings []listing.Listing
	Loading  bool
	Error    string
	Fields   perrors.FieldErrors
	Notice   string
}

// AdminController manages listings for a logged-in user. Every successful
// mutation refetches the full collection.
//
// AdminController 为已登录用户管理房源。每次成功的修改都会重新获取完整集合。
type AdminController struct {
	store   ListingStore
	session SessionHolder
	cache   Invalidator
	logger  *zap.Logger

	mu    sync.Mutex
	state AdminState
}

// NewAdminController creates a controller. cache may be nil.
func NewAdminController(store ListingStore, session SessionHolder, cache Invalidator, logger *zap.Logger) *AdminController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminController{store: store, session: session, cache: cache, logger: logger}
}

func (c *AdminController) authorize() error {
	if c.session == nil || c.session.CurrentUser() == nil {
		c.mu.Lock()
		c.state.Error = MsgLoginRequired
		c.mu.Unlock()
		return perrors.ErrForbidden
	}
	return nil
}

func (c *AdminController) begin() {
	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.state.Fields = nil
	c.state.Notice = ""
	c.mu.Unlock()
}

func (c *AdminController) finish(err error, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		c.state.Error = msg
		c.state.Fields = perrors.Fields(err)
	}
}

// Refresh reloads the collection. Listings may have changed outside this
// controller, so a successful refresh also purges cached details.
func (c *AdminController) Refresh(ctx context.Context) error {
	if err := c.authorize(); err != nil {
		return err
	}
	c.begin()
	err := c.reload(ctx)
	c.finish(err, MsgFetchFailed)
	if err == nil && c.cache != nil {
		c.cache.Purge()
	}
	return err
}

func (c *AdminController) reload(ctx context.Context) error {
	env, err := c.store.ListAll(ctx)
	if err != nil {
		c.logger.Warn("admin refresh failed", zap.Error(err))
		return err
	}
	snap := listing.NewSnapshot(env.Data)
	if err := checkSnapshot(snap); err != nil {
		c.logger.Warn("admin refresh rejected", zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.state.Listings = snap.Listings()
	c.mu.Unlock()
	return nil
}

// Create validates p, posts it and refetches.
func (c *AdminController) Create(ctx context.Context, p listing.Payload) (listing.Listing, error) {
	if err := c.authorize(); err != nil {
		return listing.Listing{}, err
	}
	c.begin()

	if err := p.Validate(); err != nil {
		c.finish(err, MsgAddFailed)
		return listing.Listing{}, err
	}
	env, err := c.store.Create(ctx, p)
	if err != nil {
		c.logger.Warn("create listing failed", zap.Error(err))
		c.finish(err, mutationMessage(MsgAddFailed, err))
		return listing.Listing{}, err
	}
	err = c.reload(ctx)
	c.finish(err, MsgFetchFailed)
	c.notice(env.Message, "Property added")
	return env.Data, nil
}

// Update validates p, puts it and refetches.
func (c *AdminController) Update(ctx context.Context, id int64, p listing.Payload) (listing.Listing, error) {
	if err := c.authorize(); err != nil {
		return listing.Listing{}, err
	}
	c.begin()

	if err := p.Validate(); err != nil {
		c.finish(err, MsgUpdateFailed)
		return listing.Listing{}, err
	}
	env, err := c.store.Update(ctx, id, p)
	if err != nil {
		c.logger.Warn("update listing failed", zap.Int64("id", id), zap.Error(err))
		c.finish(err, mutationMessage(MsgUpdateFailed, err))
		return listing.Listing{}, err
	}
	if c.cache != nil {
		c.cache.Invalidate(id)
	}
	err = c.reload(ctx)
	c.finish(err, MsgFetchFailed)
	c.notice(env.Message, "Property updated")
	return env.Data, nil
}

// Delete removes the listing and refetches.
func (c *AdminController) Delete(ctx context.Context, id int64) error {
	if err := c.authorize(); err != nil {
		return err
	}
	c.begin()

	env, err := c.store.Delete(ctx, id)
	if err != nil {
		c.logger.Warn("delete listing failed", zap.Int64("id", id), zap.Error(err))
		c.finish(err, mutationMessage(MsgDeleteFailed, err))
		return err
	}
	if c.cache != nil {
		c.cache.Invalidate(id)
	}
	err = c.reload(ctx)
	c.finish(err, MsgFetchFailed)
	c.notice(env.Message, fmt.Sprintf("Property %d deleted", id))
	return nil
}

func (c *AdminController) notice(msg, fallback string) {
	if msg == "" {
		msg = fallback
	}
	c.mu.Lock()
	c.state.Notice = msg
	c.mu.Unlock()
}

// mutationMessage appends the server's message when it gave one.
func mutationMessage(base string, err error) string {
	if msg := perrors.Message(err); msg != "" && msg != perrors.DefaultAPIMessage {
		return base + ": " + msg
	}
	return base
}

// State returns a copy of the current state.
func (c *AdminController) State() AdminState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Listings = append([]listing.Listing(nil), c.state.Listings...)
	return st
}
