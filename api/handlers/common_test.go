package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/imaging"
)

func TestWriteError_RateLimitSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, &imaging.Error{
		Code:       imaging.ErrRateLimited,
		Message:    "failed to generate image",
		HTTPStatus: http.StatusTooManyRequests,
		Retryable:  true,
		RetryAfter: 37 * time.Second,
	}, zap.NewNop())

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "37", rec.Header().Get("Retry-After"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(imaging.ErrRateLimited), resp.Error.Code)
	assert.Equal(t, 37, resp.Error.RetryAfter)
	assert.True(t, resp.Error.Retryable)
}

func TestWriteError_SubSecondHintRoundsUp(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, &imaging.Error{
		Code:       imaging.ErrRateLimited,
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: 200 * time.Millisecond,
	}, nil)

	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestWriteError_UnknownError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, assert.AnError, zap.NewNop())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal error", resp.Error.Message, "raw error text must not leak")
}

func TestDecodeJSONBody_UnknownField(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"promt": "typo"}`))

	var dst struct {
		Prompt string `json:"prompt"`
	}
	err := DecodeJSONBody(rec, req, &dst)
	require.Error(t, err)
	assert.True(t, imaging.IsCode(err, imaging.ErrInvalidRequest))
}

func TestDecodeJSONBody_OK(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"prompt": "a fox"}`))

	var dst struct {
		Prompt string `json:"prompt"`
	}
	require.NoError(t, DecodeJSONBody(rec, req, &dst))
	assert.Equal(t, "a fox", dst.Prompt)
}
