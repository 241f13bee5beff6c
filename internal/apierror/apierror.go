// Package apierror defines the canonical client-facing error shape and the
// mapping from upstream provider failures onto it.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Error is the single error type that crosses the handler boundary. Every
// client-visible failure is rendered as
// {"error":{"message","type","code","requestId"}}.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Type, e.Message)
}

// Error codes.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeForbidden            = "forbidden"
	CodeNotFound             = "not_found"
	CodeInvalidAPIKey        = "invalid_api_key"
	CodeInvalidToken         = "invalid_token"
	CodeAuthRequired         = "auth_required"
	CodeSensitiveDataBlocked = "sensitive_data_blocked"
	CodeBudgetExceeded       = "budget_exceeded"
	CodeRateLimited          = "rate_limited"
	CodeUpstreamAuthError    = "upstream_auth_error"
	CodeAPIOverloaded        = "api_overloaded"
	CodeUpstreamError        = "upstream_error"
	CodeInternalError        = "internal_error"
)

func New(status int, code, errType, message string) *Error {
	return &Error{Status: status, Code: code, Type: errType, Message: message}
}

func InvalidRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeInvalidRequest, "invalid_request_error", message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeForbidden, "permission_error", message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, "invalid_request_error", message)
}

func InvalidAPIKey() *Error {
	return New(http.StatusUnauthorized, CodeInvalidAPIKey, "authentication_error", "Invalid or revoked API key")
}

func InvalidToken() *Error {
	return New(http.StatusUnauthorized, CodeInvalidToken, "authentication_error", "Invalid or expired token")
}

func AuthRequired() *Error {
	return New(http.StatusUnauthorized, CodeAuthRequired, "authentication_error", "Authentication required")
}

func SensitiveDataBlocked(message string) *Error {
	return New(http.StatusBadRequest, CodeSensitiveDataBlocked, "invalid_request_error", message)
}

func BudgetExceeded(message string) *Error {
	return New(http.StatusTooManyRequests, CodeBudgetExceeded, "rate_limit_error", message)
}

func Internal() *Error {
	return New(http.StatusInternalServerError, CodeInternalError, "api_error", "An internal error occurred")
}

// UpstreamError represents a non-2xx response from the upstream provider.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("upstream: HTTP %d: %s", e.StatusCode, body)
}

// FromUpstream maps an upstream provider failure onto the client taxonomy.
// The upstream error body is expected to carry {"error":{"type","message"}}.
func FromUpstream(ue *UpstreamError) *Error {
	errType := gjson.GetBytes(ue.Body, "error.type").String()
	message := gjson.GetBytes(ue.Body, "error.message").String()
	if message == "" {
		message = "Upstream request failed"
	}

	switch errType {
	case "authentication_error", "permission_error":
		return New(http.StatusBadGateway, CodeUpstreamAuthError, "api_error",
			"Upstream authentication failed")
	case "rate_limit_error":
		return New(http.StatusBadGateway, CodeRateLimited, "rate_limit_error", message)
	case "overloaded_error":
		return New(http.StatusBadGateway, CodeAPIOverloaded, "api_error", message)
	default:
		status := http.StatusBadGateway
		if ue.StatusCode < 500 && ue.StatusCode >= 400 {
			status = ue.StatusCode
		}
		return New(status, CodeUpstreamError, "api_error", message)
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
}

// Write renders err as the canonical error body. Errors that are not an
// *Error or *UpstreamError become internal_error without leaking detail.
func Write(w http.ResponseWriter, requestID string, err error) {
	var apiErr *Error
	var upErr *UpstreamError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &upErr):
		apiErr = FromUpstream(upErr)
	default:
		apiErr = Internal()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Message:   apiErr.Message,
		Type:      apiErr.Type,
		Code:      apiErr.Code,
		RequestID: requestID,
	}})
}
