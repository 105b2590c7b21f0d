package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// Components MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationUnsupportedDecode ErrorCode = "validation_unsupported_decode"
	ErrCodeValidationMissingField      ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidEmail      ErrorCode = "validation_invalid_email"
	ErrCodeValidationInvalidWebhook    ErrorCode = "validation_invalid_webhook_url"
	ErrCodeValidationInvalidPayload    ErrorCode = "validation_invalid_payload"

	// Auth (401)
	ErrCodeAuthInvalidSignature ErrorCode = "auth_invalid_signature"

	// Routing (404)
	ErrCodeNotFoundRoutingTag ErrorCode = "not_found_routing_tag"

	// Delivery
	ErrCodeEmailBlocked        ErrorCode = "email_blocked"
	ErrCodeDeliveryRejected    ErrorCode = "delivery_rejected"
	ErrCodeDeliveryPartial     ErrorCode = "delivery_partial_failure"
	ErrCodeDeliveryUnsupported ErrorCode = "delivery_unsupported_generation"

	// Internal/Upstream (500/502)
	ErrCodeInternalUnexpected    ErrorCode = "internal_unexpected_error"
	ErrCodeInternalConfig        ErrorCode = "internal_configuration_error"
	ErrCodeUpstreamSlack         ErrorCode = "upstream_slack_unavailable"
	ErrCodeUpstreamEmailProvider ErrorCode = "upstream_email_provider_unavailable"
	ErrCodeUpstreamUnavailable   ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited   ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// The dispatcher and the local receiver use it to translate AppErrors into
// invocation responses. Returns 500 for unrecognized error codes.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case s == string(ErrCodeEmailBlocked), s == string(ErrCodeDeliveryRejected):
		return http.StatusForbidden // 403
	case s == string(ErrCodeDeliveryUnsupported):
		return http.StatusOK
	case s == string(ErrCodeDeliveryPartial):
		return http.StatusBadGateway // 502
	case s == string(ErrCodeUpstreamRateLimited):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the alert system.
// Upstream and domain failures should be expressed as AppError so that delivery
// outcomes and invocation responses carry a stable code.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
