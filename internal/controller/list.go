package controller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Humphrey-He/propview/pkg/filter"
	"github.com/Humphrey-He/propview/pkg/listing"
)

// ListState is a copy of the list controller's state.
type ListState struct {
	Snapshot  listing.Snapshot
	Criteria  filter.Criteria
	Loading   bool
	Loaded    bool
	Error     string
	Err       error
	UpdatedAt time.Time
}

// ListView is what the list page renders.
type ListView struct {
	Listings  []listing.Listing
	Locations []string
	Bands     []filter.Band
	Criteria  filter.Criteria
	Summary   string
	Total     int
	Shown     int
	Loading   bool
	Error     string
}

// ListController owns the listing snapshot and the active filter criteria.
//
// Every Refresh takes a new request token; a response is applied only while
// its token is still the latest, so a superseded fetch never overwrites the
// state written by a newer one.
//
// ListController 持有房源快照和当前过滤条件。
// 每次Refresh获取一个新的请求令牌；只有当响应的令牌仍是最新时才会应用，
// 因此被取代的请求永远不会覆盖较新请求写入的状态。
type ListController struct {
	src    ListingSource
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	latest uint64
	state  ListState
}

// NewListController creates a controller over src.
func NewListController(src ListingSource, logger *zap.Logger) *ListController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListController{src: src, logger: logger, now: time.Now}
}

// Refresh fetches the full collection and replaces the snapshot on success.
// A collection that fails Snapshot.Validate is rejected like a failed fetch.
// The returned error is the fetch error, also when the response was stale.
func (c *ListController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.latest++
	token := c.latest
	c.state.Loading = true
	c.mu.Unlock()

	env, err := c.src.ListAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.latest {
		c.logger.Debug("dropping stale listing response", zap.Uint64("token", token), zap.Uint64("latest", c.latest))
		return err
	}

	c.state.Loading = false
	var snap listing.Snapshot
	if err == nil {
		snap = listing.NewSnapshot(env.Data)
		err = checkSnapshot(snap)
	}
	// A failed or rejected fetch keeps the previous snapshot.
	if err != nil {
		c.state.Err = err
		c.state.Error = ListMessage(err, c.src.BaseURL())
		c.logger.Warn("listing refresh failed", zap.Error(err))
		return err
	}

	c.state.Snapshot = snap
	c.state.Loaded = true
	c.state.Err = nil
	c.state.Error = ""
	c.state.UpdatedAt = c.now()
	return nil
}

// Retry is the manual retry affordance. It is Refresh.
func (c *ListController) Retry(ctx context.Context) error {
	return c.Refresh(ctx)
}

// SetCriteria replaces the active criteria. Malformed criteria are rejected
// and the previous criteria stay in effect.
func (c *ListController) SetCriteria(crit filter.Criteria) error {
	if err := crit.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Criteria = crit
	c.mu.Unlock()
	return nil
}

// ClearFilters resets every filter.
func (c *ListController) ClearFilters() {
	c.mu.Lock()
	c.state.Criteria = c.state.Criteria.Clear()
	c.mu.Unlock()
}

// State returns a copy of the current state.
func (c *ListController) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View applies the active criteria to the current snapshot.
func (c *ListController) View() (ListView, error) {
	return c.ViewWith(c.State().Criteria)
}

// ViewWith applies crit to the current snapshot without making it the
// active criteria. Web requests use it so concurrent pages do not share
// filter state.
func (c *ListController) ViewWith(crit filter.Criteria) (ListView, error) {
	st := c.State()
	all := st.Snapshot.Listings()

	shown, err := filter.Filter(all, crit)
	if err != nil {
		return ListView{}, err
	}
	return ListView{
		Listings:  shown,
		Locations: filter.Locations(all),
		Bands:     filter.PriceBands(),
		Criteria:  crit,
		Summary:   filter.Summary(crit),
		Total:     len(all),
		Shown:     len(shown),
		Loading:   st.Loading,
		Error:     st.Error,
	}, nil
}
