// Package controller holds the view-state controllers behind the web front
// and the CLI. Each controller owns its loading, error and form state behind
// a mutex and hands out value copies of that state.
//
// Package controller 包含Web前端和CLI背后的视图状态控制器。
// 每个控制器在互斥锁保护下持有其加载、错误和表单状态，并对外提供状态的值拷贝。
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/listing"
)

// ListingSource fetches the full collection.
type ListingSource interface {
	ListAll(ctx context.Context) (*listing.Envelope[[]listing.Listing], error)
	BaseURL() string
}

// ListingStore is the admin-side surface of the gateway.
type ListingStore interface {
	ListingSource
	GetByID(ctx context.Context, id int64) (*listing.Envelope[listing.Listing], error)
	Create(ctx context.Context, p listing.Payload) (*listing.Envelope[listing.Listing], error)
	Update(ctx context.Context, id int64, p listing.Payload) (*listing.Envelope[listing.Listing], error)
	Delete(ctx context.Context, id int64) (*listing.Envelope[json.RawMessage], error)
}

// AuthService is the session surface of the gateway.
type AuthService interface {
	Signup(ctx context.Context, req listing.SignupRequest) (*listing.Envelope[listing.User], error)
	Login(ctx context.Context, creds listing.Credentials) (*listing.Envelope[listing.Session], error)
	Logout(ctx context.Context) (*listing.Envelope[json.RawMessage], error)
	CurrentUser(ctx context.Context) (*listing.Envelope[listing.User], error)
}

// User-facing messages.
const (
	MsgEndpointNotFound  = "API endpoint not found. Please check the backend configuration."
	MsgPropertyNotFound  = "Property not found"
	MsgDetailFailed      = "Failed to load property details"
	MsgFetchFailed       = "Failed to fetch properties"
	MsgBadListings       = "Invalid listing data from server"
	MsgAddFailed         = "Failed to add property"
	MsgUpdateFailed      = "Failed to update property"
	MsgDeleteFailed      = "Failed to delete property"
	MsgNetwork           = "Network error. Please check your connection."
	MsgLoginFailed       = "Login failed. Please try again."
	MsgSignupFailed      = "Signup failed. Please try again."
	MsgStatusNetwork     = "Network error - Backend server not running"
	MsgStatusNotFound    = "API endpoint not found"
	MsgStatusBadResponse = "Invalid API response format"
	MsgLoginRequired     = "Please log in to continue"
	MsgEnquirySent       = "Thank you, the owner will contact you shortly."
)

// unreachableMessage names the backend origin, e.g. http://localhost:8080.
func unreachableMessage(baseURL string) string {
	return "Unable to connect to server. Please check if the backend is running on " + origin(baseURL)
}

func origin(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Scheme + "://" + u.Host
}

// ListMessage maps a collection fetch failure to the list view banner.
func ListMessage(err error, baseURL string) string {
	switch {
	case err == nil:
		return ""
	case perrors.IsNetwork(err):
		return unreachableMessage(baseURL)
	case perrors.IsNotFound(err):
		return MsgEndpointNotFound
	case perrors.IsInvalidCriteria(err):
		return err.Error()
	}
	var apiErr *perrors.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 0 {
		return apiErr.Message
	}
	msg := perrors.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	return MsgFetchFailed + ": " + msg
}

// checkSnapshot rejects a collection the rest of the view cannot trust,
// such as one with duplicate ids, as an APIError.
func checkSnapshot(s listing.Snapshot) error {
	if err := s.Validate(); err != nil {
		return perrors.NewAPIError(0, MsgBadListings+": "+err.Error())
	}
	return nil
}

// DetailMessage maps a single-listing fetch failure.
func DetailMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case perrors.IsNotFound(err):
		return MsgPropertyNotFound
	default:
		return MsgDetailFailed
	}
}

// authMessage prefers the server's message, then the network hint, then fallback.
func authMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := perrors.Message(err); msg != "" && msg != perrors.DefaultAPIMessage {
		return msg
	}
	if perrors.IsNetwork(err) {
		return MsgNetwork
	}
	return fallback
}
