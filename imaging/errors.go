package imaging

import (
	"errors"
	"time"
)

// ErrorCode aligns upstream failures with HTTP status, retryability and the
// message shown to the end user.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "IMG_INVALID_REQUEST"  // bad parameters or payload
	ErrUnauthorized    ErrorCode = "IMG_UNAUTHORIZED"     // missing or revoked credential
	ErrForbidden       ErrorCode = "IMG_FORBIDDEN"        // permission or policy rejection
	ErrRateLimited     ErrorCode = "IMG_RATE_LIMITED"     // upstream 429 or local limiter
	ErrQuotaExceeded   ErrorCode = "IMG_QUOTA_EXCEEDED"   // billing quota exhausted
	ErrContentFiltered ErrorCode = "IMG_CONTENT_FILTERED" // safety system blocked the request
	ErrNoImageData     ErrorCode = "IMG_NO_IMAGE_DATA"    // response carried no image payload
	ErrUnsupported     ErrorCode = "IMG_UNSUPPORTED"      // operation not available on this endpoint shape
	ErrUpstreamTimeout ErrorCode = "IMG_UPSTREAM_TIMEOUT" // upstream deadline exceeded
	ErrUpstreamError   ErrorCode = "IMG_UPSTREAM_ERROR"   // upstream 5xx or network failure
)

// Error is the structured failure produced by providers and the service.
type Error struct {
	Code       ErrorCode     `json:"code"`
	Message    string        `json:"message"`
	HTTPStatus int           `json:"http_status"`
	Retryable  bool          `json:"retryable"`
	RetryAfter time.Duration `json:"retry_after,omitempty"` // 429 hint parsed from the provider, 0 when absent
	Provider   string        `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// AsError unwraps err into an *Error, returning nil when err carries none.
func AsError(err error) *Error {
	var ie *Error
	if errors.As(err, &ie) {
		return ie
	}
	return nil
}

// IsCode reports whether err carries an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	ie := AsError(err)
	return ie != nil && ie.Code == code
}

// IsRetryable reports whether err carries a retryable *Error.
func IsRetryable(err error) bool {
	ie := AsError(err)
	return ie != nil && ie.Retryable
}
