package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/imaging"
)

// maxBodySize bounds request bodies. Base64 images are large, so this is
// generous compared to a JSON API.
const maxBodySize = 64 << 20

// Response is the uniform API envelope.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo is the error half of the envelope.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	// RetryAfter is the suggested wait in seconds, present on 429s.
	RetryAfter int `json:"retry_after,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError maps an error to the envelope. imaging.Error carries its own
// HTTP status; rate-limit errors additionally get a Retry-After header.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	ierr := imaging.AsError(err)
	if ierr == nil {
		ierr = &imaging.Error{
			Code:       imaging.ErrUpstreamError,
			Message:    "internal error",
			HTTPStatus: http.StatusInternalServerError,
		}
	}

	status := ierr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	info := &ErrorInfo{
		Code:      string(ierr.Code),
		Message:   ierr.Message,
		Retryable: ierr.Retryable,
	}
	if ierr.RetryAfter > 0 {
		secs := int(ierr.RetryAfter.Round(time.Second).Seconds())
		if secs < 1 {
			secs = 1
		}
		info.RetryAfter = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	if logger != nil {
		logger.Warn("request failed",
			zap.String("code", info.Code),
			zap.Int("status", status),
			zap.Bool("retryable", info.Retryable),
		)
	}

	WriteJSON(w, status, Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now(),
	})
}

// WriteErrorMessage writes a simple error envelope.
func WriteErrorMessage(w http.ResponseWriter, status int, code imaging.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, &imaging.Error{Code: code, Message: message, HTTPStatus: status}, logger)
}

// DecodeJSONBody decodes the request body into dst with a size cap and
// strict field checking.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &imaging.Error{
				Code:       imaging.ErrInvalidRequest,
				Message:    "request body too large",
				HTTPStatus: http.StatusRequestEntityTooLarge,
			}
		}
		return &imaging.Error{
			Code:       imaging.ErrInvalidRequest,
			Message:    "invalid request body: " + err.Error(),
			HTTPStatus: http.StatusBadRequest,
		}
	}
	return nil
}
