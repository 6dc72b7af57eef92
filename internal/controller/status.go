package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	perrors "github.com/Humphrey-He/propview/pkg/errors"
)

// Status is the backend connectivity state.
type Status string

const (
	StatusChecking  Status = "checking"
	StatusConnected Status = "connected"
	StatusError     Status = "error"
)

// StatusState is a copy of the status controller's state.
type StatusState struct {
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	BaseURL   string        `json:"base_url"`
	Latency   time.Duration `json:"latency_ns"`
	CheckedAt time.Time     `json:"checked_at"`
	Listings  int           `json:"listings"`
}

// StatusController checks the backend with a list call.
type StatusController struct {
	src ListingSource
	now func() time.Time

	mu    sync.Mutex
	state StatusState
}

// NewStatusController creates a controller in the checking state.
func NewStatusController(src ListingSource) *StatusController {
	return &StatusController{
		src:   src,
		now:   time.Now,
		state: StatusState{Status: StatusChecking, BaseURL: src.BaseURL()},
	}
}

// Check pings the backend and returns the new state.
func (c *StatusController) Check(ctx context.Context) StatusState {
	c.mu.Lock()
	c.state.Status = StatusChecking
	c.mu.Unlock()

	start := c.now()
	env, err := c.src.ListAll(ctx)
	st := StatusState{
		Status:    StatusConnected,
		BaseURL:   c.src.BaseURL(),
		Latency:   c.now().Sub(start),
		CheckedAt: c.now(),
	}
	if err != nil {
		st.Status = StatusError
		st.Error = StatusMessage(err)
	} else {
		st.Listings = len(env.Data)
	}

	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
	return st
}

// State returns the last observed state.
func (c *StatusController) State() StatusState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StatusMessage maps a failed check to the status badge text.
func StatusMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case perrors.IsNetwork(err):
		return MsgStatusNetwork
	case perrors.IsNotFound(err):
		return MsgStatusNotFound
	}
	var apiErr *perrors.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 0 {
			return MsgStatusBadResponse
		}
		return apiErr.Message
	}
	return err.Error()
}
