// Package errors provides the error taxonomy shared by the gateway client,
// the filter engine and the view-state controllers.
// It defines sentinel errors, typed wrappers carrying request context,
// and helper functions for classifying failures with errors.Is/errors.As.
//
// Package errors 提供网关客户端、过滤引擎和视图状态控制器共享的错误分类。
// 它定义了哨兵错误、携带请求上下文的类型化包装器，
// 以及用于通过errors.Is/errors.As对失败进行分类的辅助函数。
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Standard errors returned by propview.
// Every typed error below unwraps to exactly one of these.
//
// propview返回的标准错误。
// 下面的每个类型化错误都会解包为其中之一。
var (
	// ErrNetwork is returned when no response reached the client.
	// 当客户端没有收到任何响应时返回ErrNetwork。
	ErrNetwork = errors.New("propview: backend unreachable")

	// ErrNotFound is returned when the backend answers 404.
	// 当后端返回404时返回ErrNotFound。
	ErrNotFound = errors.New("propview: not found")

	// ErrAPI is returned for application-level failures.
	// 应用层失败时返回ErrAPI。
	ErrAPI = errors.New("propview: api error")

	// ErrInvalidCriteria is returned when filter criteria are malformed.
	// 当过滤条件格式错误时返回ErrInvalidCriteria。
	ErrInvalidCriteria = errors.New("propview: invalid criteria")

	// ErrValidation is returned when a form payload fails client-side validation.
	// 当表单负载未通过客户端验证时返回ErrValidation。
	ErrValidation = errors.New("propview: validation failed")

	// ErrForbidden is returned when a view requires a session that is absent.
	// 当视图需要会话但会话不存在时返回ErrForbidden。
	ErrForbidden = errors.New("propview: login required")
)

// DefaultAPIMessage is used when the backend gave no message of its own.
const DefaultAPIMessage = "Invalid response format from API"

// NetworkError represents a transport failure: connection refused,
// DNS failure, timeout or a cancelled context.
//
// NetworkError 表示传输失败：连接被拒绝、DNS失败、超时或上下文被取消。
type NetworkError struct {
	Op      string // Operation name, e.g. "GET /properties" / 操作名称
	BaseURL string // Backend base URL / 后端基础URL
	Err     error  // The underlying transport error / 底层传输错误
}

// Error returns a user-facing message naming the unreachable backend.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: unable to reach backend at %s, it may not be running: %v", e.Op, e.BaseURL, e.Err)
}

// Unwrap allows errors.Is(err, ErrNetwork) and access to the transport error.
func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// NotFoundError represents an HTTP 404 from the backend.
//
// NotFoundError 表示后端返回的HTTP 404。
type NotFoundError struct {
	Path    string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", ErrNotFound, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrNotFound, e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// APIError represents a response that was received but did not succeed:
// an envelope with success=false, a missing envelope, or a non-2xx status.
// Status is zero when the HTTP status itself was 2xx.
//
// APIError 表示已收到但未成功的响应：success=false的信封、缺失的信封或非2xx状态。
// 当HTTP状态本身为2xx时，Status为零。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", ErrAPI, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrAPI, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrAPI
}

// NewAPIError creates an APIError, falling back to DefaultAPIMessage
// when the server supplied no message.
func NewAPIError(status int, message string) *APIError {
	message = strings.TrimSpace(message)
	if message == "" {
		message = DefaultAPIMessage
	}
	return &APIError{Status: status, Message: message}
}

// CriteriaError reports which part of the filter criteria is malformed.
type CriteriaError struct {
	Field  string
	Reason string
}

func (e *CriteriaError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidCriteria, e.Field, e.Reason)
}

func (e *CriteriaError) Unwrap() error {
	return ErrInvalidCriteria
}

// NewCriteriaError creates a CriteriaError.
func NewCriteriaError(field, reason string) *CriteriaError {
	return &CriteriaError{Field: field, Reason: reason}
}

// FieldErrors maps form field names to validation messages.
//
// FieldErrors 将表单字段名映射到验证消息。
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (fe FieldErrors) Unwrap() error {
	return ErrValidation
}

// Err returns nil when there are no field errors, so callers can write
// `return fe.Err()` after collecting.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// IsNetwork returns true if the error is or wraps ErrNetwork.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsNotFound returns true if the error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAPI returns true if the error is or wraps ErrAPI.
func IsAPI(err error) bool {
	return errors.Is(err, ErrAPI)
}

// IsInvalidCriteria returns true if the error is or wraps ErrInvalidCriteria.
func IsInvalidCriteria(err error) bool {
	return errors.Is(err, ErrInvalidCriteria)
}

// IsValidation returns true if the error is or wraps ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsForbidden returns true if the error is or wraps ErrForbidden.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// Message extracts the server-supplied message from an APIError or
// NotFoundError anywhere in the chain. It returns "" when there is none.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var nfErr *NotFoundError
	if errors.As(err, &nfErr) {
		return nfErr.Message
	}
	return ""
}

// Fields returns the FieldErrors in the chain, or nil.
func Fields(err error) FieldErrors {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}
