package controller

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/listing"
	"github.com/Humphrey-He/propview/pkg/loader"
)

// ListingGetter fetches a single listing.
type ListingGetter interface {
	GetByID(ctx context.Context, id int64) (*listing.Envelope[listing.Listing], error)
}

// DetailState is a copy of the detail controller's state.
type DetailState struct {
	ID      int64
	Listing *listing.Listing
	Loading bool
	Error   string
	Err     error
}

// DetailController loads single listings through a TTL cache.
type DetailController struct {
	cache  *loader.CachedLoader[listing.Listing]
	logger *zap.Logger

	mu     sync.Mutex
	latest uint64
	state  DetailState
}

// NewDetailController creates a controller. A ttl of zero disables caching.
func NewDetailController(src ListingGetter, ttl time.Duration, logger *zap.Logger) *DetailController {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := loader.LoaderFunc[listing.Listing](func(ctx context.Context, key string) (listing.Listing, error) {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return listing.Listing{}, &perrors.NotFoundError{Path: "/properties/" + key, Message: "invalid id"}
		}
		env, err := src.GetByID(ctx, id)
		if err != nil {
			return listing.Listing{}, err
		}
		return env.Data, nil
	})
	return &DetailController{
		cache:  loader.NewCachedLoader[listing.Listing](backend, ttl),
		logger: logger,
	}
}

// Load fetches the listing with the given id and makes it current.
func (c *DetailController) Load(ctx context.Context, id int64) (listing.Listing, error) {
	c.mu.Lock()
	c.latest++
	token := c.latest
	c.state = DetailState{ID: id, Loading: true}
	c.mu.Unlock()

	l, err := c.cache.Load(ctx, strconv.FormatInt(id, 10))

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.latest {
		return l, err
	}
	c.state.Loading = false
	if err != nil {
		c.state.Err = err
		c.state.Error = DetailMessage(err)
		c.logger.Debug("listing detail failed", zap.Int64("id", id), zap.Error(err))
		return listing.Listing{}, err
	}
	c.state.Listing = &l
	return l, nil
}

// Invalidate drops the cached copy of id, e.g. after an admin edit.
func (c *DetailController) Invalidate(id int64) {
	c.cache.Invalidate(strconv.FormatInt(id, 10))
}

// Purge drops every cached listing.
func (c *DetailController) Purge() {
	c.cache.Purge()
}

// SetTTL changes the cache lifetime, e.g. on config reload.
func (c *DetailController) SetTTL(ttl time.Duration) {
	c.cache.SetTTL(ttl)
}

// CacheStats returns cache hits and misses.
func (c *DetailController) CacheStats() (hits, misses uint64) {
	return c.cache.Stats()
}

// State returns a copy of the current state.
func (c *DetailController) State() DetailState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Enquire validates the contact form for listing id and records it.
// Enquiries are not sent anywhere; the owner is notified out of band.
func (c *DetailController) Enquire(ctx context.Context, id int64, e listing.Enquiry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if _, err := c.cache.Load(ctx, strconv.FormatInt(id, 10)); err != nil {
		return "", err
	}
	c.logger.Info("enquiry received",
		zap.Int64("listing_id", id),
		zap.String("name", e.Name),
		zap.String("email", e.Email),
	)
	return MsgEnquirySent, nil
}
