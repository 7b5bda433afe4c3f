package providers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/paintbox-ai/paintbox/imaging"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		msg       string
		wantCode  imaging.ErrorCode
		wantRetry bool
	}{
		{"unauthorized", 401, "bad key", imaging.ErrUnauthorized, false},
		{"forbidden", 403, "no access", imaging.ErrForbidden, false},
		{"rate limited", 429, "slow down", imaging.ErrRateLimited, true},
		{"bad request", 400, "invalid payload", imaging.ErrInvalidRequest, false},
		{"bad request quota", 400, "You exceeded your QUOTA for this month", imaging.ErrQuotaExceeded, false},
		{"bad request billing", 400, "billing hard limit reached", imaging.ErrQuotaExceeded, false},
		{"content filtered", 422, "blocked by safety system", imaging.ErrContentFiltered, false},
		{"gateway timeout", 504, "deadline exceeded", imaging.ErrUpstreamTimeout, true},
		{"bad gateway", 502, "upstream down", imaging.ErrUpstreamError, true},
		{"service unavailable", 503, "overloaded", imaging.ErrUpstreamError, true},
		{"internal error", 500, "oops", imaging.ErrUpstreamError, true},
		{"teapot", 418, "short and stout", imaging.ErrUpstreamError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapHTTPError(tt.status, tt.msg, "gemini")
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantRetry, got.Retryable)
			assert.Equal(t, tt.status, got.HTTPStatus)
			assert.Equal(t, tt.msg, got.Message)
			assert.Equal(t, "gemini", got.Provider)
		})
	}
}

func TestMapHTTPError_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		status := rapid.IntRange(400, 599).Draw(t, "status")
		msg := rapid.String().Draw(t, "msg")

		got := MapHTTPError(status, msg, "p")
		require.NotNil(t, got)
		assert.Equal(t, status, got.HTTPStatus)
		assert.Equal(t, msg, got.Message)

		// Server-side failures are always retryable except plain 5xx
		// mapped explicitly; 429 is the only retryable 4xx.
		if status >= 500 {
			assert.True(t, got.Retryable, "5xx must be retryable")
		}
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			assert.False(t, got.Retryable, "non-429 4xx must not be retryable")
		}
	})
}

func TestReadErrorMessage(t *testing.T) {
	google := []byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`)
	assert.Equal(t, "Resource has been exhausted (status: RESOURCE_EXHAUSTED)", ReadErrorMessage(google))

	openai := []byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`)
	assert.Equal(t, "Rate limit reached (type: requests)", ReadErrorMessage(openai))

	plain := []byte("  upstream exploded\n")
	assert.Equal(t, "upstream exploded", ReadErrorMessage(plain))
}

func TestParseRetryHint(t *testing.T) {
	t.Run("retry-after header wins", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", "30")
		body := []byte(`{"error":{"message":"retry in 7s"}}`)
		assert.Equal(t, 30*time.Second, ParseRetryHint(h, body))
	})

	t.Run("google RetryInfo detail", func(t *testing.T) {
		body := []byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED",` +
			`"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"21s"}]}}`)
		assert.Equal(t, 21*time.Second, ParseRetryHint(http.Header{}, body))
	})

	t.Run("message phrase fallback", func(t *testing.T) {
		body := []byte(`{"error":{"message":"Please retry in 12.5s."}}`)
		assert.Equal(t, 12500*time.Millisecond, ParseRetryHint(http.Header{}, body))
	})

	t.Run("retry again in phrase", func(t *testing.T) {
		body := []byte(`rate limit hit, retry again in 3s`)
		assert.Equal(t, 3*time.Second, ParseRetryHint(http.Header{}, body))
	})

	t.Run("no hint", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), ParseRetryHint(http.Header{}, []byte(`{"error":{"message":"nope"}}`)))
	})

	t.Run("malformed retry-after ignored", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", "Wed, 21 Oct 2026 07:28:00 GMT")
		assert.Equal(t, time.Duration(0), ParseRetryHint(h, nil))
	})
}

func TestDecodeAPIError_RateLimitAttachesHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exhausted","status":"RESOURCE_EXHAUSTED",` +
			`"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"17s"}]}}`))
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	ierr := DecodeAPIError(resp, "gemini")
	assert.Equal(t, imaging.ErrRateLimited, ierr.Code)
	assert.Equal(t, 17*time.Second, ierr.RetryAfter)
	assert.True(t, ierr.Retryable)
	assert.Contains(t, ierr.Message, "quota exhausted")
}

func TestHeaderBuilders(t *testing.T) {
	newReq := func() *http.Request {
		r, _ := http.NewRequest(http.MethodPost, "http://example.com", strings.NewReader("{}"))
		return r
	}

	r := newReq()
	GoogleKeyHeaders(r, "key1")
	assert.Equal(t, "key1", r.Header.Get("x-goog-api-key"))
	assert.Empty(t, r.Header.Get("Authorization"))

	r = newReq()
	BearerTokenHeaders(r, "key2")
	assert.Equal(t, "Bearer key2", r.Header.Get("Authorization"))

	r = newReq()
	AzureKeyHeaders(r, "key3")
	assert.Equal(t, "key3", r.Header.Get("api-key"))

	r = newReq()
	RawTokenHeaders(r, "Custom scheme-token")
	assert.Equal(t, "Custom scheme-token", r.Header.Get("Authorization"))

	for _, fn := range []func(*http.Request, string){GoogleKeyHeaders, BearerTokenHeaders, AzureKeyHeaders, RawTokenHeaders} {
		r = newReq()
		fn(r, "k")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}
}
