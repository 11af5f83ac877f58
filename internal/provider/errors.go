package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorCode is a machine-readable failure classification.
type ErrorCode string

const (
	CodeMissingConfig     ErrorCode = "MISSING_CONFIG"
	CodeInvalidConfig     ErrorCode = "INVALID_CONFIG"
	CodeNotConfigured     ErrorCode = "NOT_CONFIGURED"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeNetworkError      ErrorCode = "NETWORK_ERROR"
	CodeServerError       ErrorCode = "SERVER_ERROR"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	CodeOperationFailed   ErrorCode = "OPERATION_FAILED"
	CodeHealthCheckFailed ErrorCode = "HEALTH_CHECK_FAILED"
)

var retryableCodes = map[ErrorCode]bool{
	CodeTimeout:      true,
	CodeNetworkError: true,
	CodeServerError:  true,
	CodeRateLimited:  true,
}

// IsRetryableCode reports whether failures with this code are worth retrying.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// ProviderError represents an error from a provider
type ProviderError struct {
	Provider   string
	Code       ErrorCode
	Message    string
	Retry      bool
	RetryAfter int // Seconds to wait before retry
	StatusCode int // HTTP status, when the failure came from an HTTP API
	Cause      error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewError builds a ProviderError whose retryability follows its code.
func NewError(providerID string, code ErrorCode, message string) *ProviderError {
	return &ProviderError{
		Provider: providerID,
		Code:     code,
		Message:  message,
		Retry:    IsRetryableCode(code),
	}
}

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// HTTPStatusError is returned by provider HTTP plumbing for non-2xx responses.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status code %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("unexpected status code %d", e.Status)
}

func (e *HTTPStatusError) StatusCode() int { return e.Status }

// CodeForStatus maps an HTTP status to an error code.
func CodeForStatus(status int) ErrorCode {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return CodeTimeout
	case status >= 500:
		return CodeServerError
	case status >= 400:
		return CodeInvalidRequest
	default:
		return CodeOperationFailed
	}
}

// Classify converts any error into a *ProviderError. Typed information is
// preferred: an existing ProviderError passes through, context deadlines,
// net.Error and StatusCoder are mapped directly. Message inspection is only
// the fallback for untyped errors from third-party clients.
func Classify(providerID string, err error) *ProviderError {
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	wrap := func(code ErrorCode, status int) *ProviderError {
		return &ProviderError{
			Provider:   providerID,
			Code:       code,
			Message:    err.Error(),
			Retry:      IsRetryableCode(code),
			StatusCode: status,
			Cause:      err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return wrap(CodeTimeout, 0)
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return wrap(CodeForStatus(sc.StatusCode()), sc.StatusCode())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return wrap(CodeTimeout, 0)
		}
		return wrap(CodeNetworkError, 0)
	}

	return wrap(classifyMessage(err.Error()))
}

func classifyMessage(msg string) (ErrorCode, int) {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return CodeTimeout, 0
	case strings.Contains(lower, "429"), strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"), strings.Contains(lower, "limit reached"):
		return CodeRateLimited, http.StatusTooManyRequests
	case strings.Contains(lower, "401"), strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "invalid api key"):
		return CodeUnauthorized, http.StatusUnauthorized
	case strings.Contains(lower, "403"), strings.Contains(lower, "forbidden"):
		return CodeForbidden, http.StatusForbidden
	case strings.Contains(lower, "404"), strings.Contains(lower, "not found"):
		return CodeNotFound, http.StatusNotFound
	case strings.Contains(lower, "500"), strings.Contains(lower, "502"),
		strings.Contains(lower, "503"), strings.Contains(lower, "504"),
		strings.Contains(lower, "unavailable"), strings.Contains(lower, "internal server error"):
		return CodeServerError, 0
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "no such host"), strings.Contains(lower, "network"),
		strings.Contains(lower, "eof"):
		return CodeNetworkError, 0
	default:
		return CodeOperationFailed, 0
	}
}

// CodeOf returns the code of a ProviderError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsRetryable reports whether err is a ProviderError marked retryable.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retry
	}
	return false
}
