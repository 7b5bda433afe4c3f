package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/paintbox-ai/paintbox/imaging"
)

// MapHTTPError maps an upstream HTTP status to an imaging.Error with the
// appropriate retry flag. All adapters share this mapping.
func MapHTTPError(status int, msg, provider string) *imaging.Error {
	switch status {
	case http.StatusUnauthorized:
		return &imaging.Error{Code: imaging.ErrUnauthorized, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusForbidden:
		return &imaging.Error{Code: imaging.ErrForbidden, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusTooManyRequests:
		return &imaging.Error{Code: imaging.ErrRateLimited, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusBadRequest:
		msgLower := strings.ToLower(msg)
		if strings.Contains(msgLower, "quota") || strings.Contains(msgLower, "billing") || strings.Contains(msgLower, "credit") {
			return &imaging.Error{Code: imaging.ErrQuotaExceeded, Message: msg, HTTPStatus: status, Provider: provider}
		}
		return &imaging.Error{Code: imaging.ErrInvalidRequest, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusUnprocessableEntity:
		return &imaging.Error{Code: imaging.ErrContentFiltered, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusGatewayTimeout:
		return &imaging.Error{Code: imaging.ErrUpstreamTimeout, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return &imaging.Error{Code: imaging.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	default:
		return &imaging.Error{Code: imaging.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: status >= 500, Provider: provider}
	}
}

// googleErrorResp matches the Google API error envelope, including the
// RetryInfo detail carried on RESOURCE_EXHAUSTED responses.
type googleErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

// openAIErrorResp matches the OpenAI-compatible error envelope.
type openAIErrorResp struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// ReadErrorMessage extracts a human-readable message from an error body.
// Both the Google and the OpenAI envelope are tried; unparseable bodies are
// returned verbatim.
func ReadErrorMessage(body []byte) string {
	var gerr googleErrorResp
	if err := json.Unmarshal(body, &gerr); err == nil && gerr.Error.Message != "" {
		if gerr.Error.Status != "" {
			return fmt.Sprintf("%s (status: %s)", gerr.Error.Message, gerr.Error.Status)
		}
		// Same top-level shape; only the qualifier field differs.
		var oerr openAIErrorResp
		if err := json.Unmarshal(body, &oerr); err == nil && oerr.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", gerr.Error.Message, oerr.Error.Type)
		}
		return gerr.Error.Message
	}
	return strings.TrimSpace(string(body))
}

var retryInMsgRe = regexp.MustCompile(`(?i)retry(?:\s+again)?\s+in\s+([0-9]+(?:\.[0-9]+)?)\s*s`)

// ParseRetryHint extracts the retry-delay hint from a 429 response. Sources,
// in order: the Retry-After header (delta-seconds form), the Google
// RetryInfo.retryDelay detail, and a "retry in Ns" phrase in the message.
// Returns 0 when no hint is present.
func ParseRetryHint(header http.Header, body []byte) time.Duration {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}

	var gerr googleErrorResp
	if err := json.Unmarshal(body, &gerr); err == nil {
		for _, d := range gerr.Error.Details {
			if !strings.HasSuffix(d.Type, "RetryInfo") || d.RetryDelay == "" {
				continue
			}
			if dur, err := time.ParseDuration(d.RetryDelay); err == nil && dur > 0 {
				return dur
			}
		}
	}

	if m := retryInMsgRe.FindSubmatch(body); m != nil {
		if secs, err := strconv.ParseFloat(string(m[1]), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}

	return 0
}

// DecodeAPIError reads an error response and converts it into an
// imaging.Error, attaching the retry hint on rate-limit failures.
func DecodeAPIError(resp *http.Response, provider string) *imaging.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	ierr := MapHTTPError(resp.StatusCode, ReadErrorMessage(body), provider)
	if resp.StatusCode == http.StatusTooManyRequests {
		ierr.RetryAfter = ParseRetryHint(resp.Header, body)
	}
	return ierr
}

// NetworkError wraps a transport-level failure (DNS, refused connection,
// client timeout) as a retryable upstream error.
func NetworkError(err error, provider string) *imaging.Error {
	return &imaging.Error{
		Code:       imaging.ErrUpstreamError,
		Message:    err.Error(),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Provider:   provider,
	}
}

// DecodeError wraps a response-body decode failure as a retryable upstream
// error.
func DecodeError(err error, provider string) *imaging.Error {
	return &imaging.Error{
		Code:       imaging.ErrUpstreamError,
		Message:    fmt.Sprintf("failed to decode response: %v", err),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Provider:   provider,
	}
}

// GoogleKeyHeaders authenticates with the x-goog-api-key header.
func GoogleKeyHeaders(r *http.Request, key string) {
	r.Header.Set("x-goog-api-key", key)
	r.Header.Set("Content-Type", "application/json")
}

// BearerTokenHeaders authenticates with a standard Bearer token.
func BearerTokenHeaders(r *http.Request, key string) {
	r.Header.Set("Authorization", "Bearer "+key)
	r.Header.Set("Content-Type", "application/json")
}

// AzureKeyHeaders authenticates with Azure's api-key header.
func AzureKeyHeaders(r *http.Request, key string) {
	r.Header.Set("api-key", key)
	r.Header.Set("Content-Type", "application/json")
}

// RawTokenHeaders passes the configured token through verbatim, for proxies
// that expect a pre-built Authorization value.
func RawTokenHeaders(r *http.Request, token string) {
	r.Header.Set("Authorization", token)
	r.Header.Set("Content-Type", "application/json")
}
