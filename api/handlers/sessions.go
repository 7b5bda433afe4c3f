package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/api"
	"github.com/paintbox-ai/paintbox/history"
	"github.com/paintbox-ai/paintbox/imaging"
	"github.com/paintbox-ai/paintbox/internal/metrics"
)

// SessionsHandler serves session and history-tree endpoints. Routes use
// path wildcards, so handlers read IDs with r.PathValue.
type SessionsHandler struct {
	store     history.Store
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewSessionsHandler creates a SessionsHandler. The collector is optional.
func NewSessionsHandler(store history.Store, collector *metrics.Collector, logger *zap.Logger) *SessionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionsHandler{store: store, collector: collector, logger: logger}
}

// HandleCreate handles POST /api/v1/sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	session := &history.Session{Title: req.Title}
	if err := h.store.CreateSession(r.Context(), session); err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteSuccess(w, session)
}

// HandleList handles GET /api/v1/sessions.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteSuccess(w, sessions)
}

// HandleGet handles GET /api/v1/sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteSuccess(w, session)
}

// HandleDelete handles DELETE /api/v1/sessions/{id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteSuccess(w, map[string]string{"deleted": r.PathValue("id")})
}

// HandleListNodes handles GET /api/v1/sessions/{id}/nodes.
func (h *SessionsHandler) HandleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.store.ListNodes(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteSuccess(w, nodes)
}

// HandleUpload handles POST /api/v1/sessions/{id}/upload: it adds a
// client-supplied image to the tree, typically as a new root.
func (h *SessionsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	var req api.UploadNodeRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if req.Image.Data == "" || req.Image.MIMEType == "" {
		WriteErrorMessage(w, http.StatusBadRequest, imaging.ErrInvalidRequest,
			"image with mime_type and data is required", h.logger)
		return
	}

	node := &history.Node{
		SessionID: r.PathValue("id"),
		ParentID:  req.ParentID,
		Kind:      history.KindUpload,
		MIMEType:  req.Image.MIMEType,
		ImageData: req.Image.Data,
	}
	if err := h.store.AddNode(r.Context(), node); err != nil {
		h.writeStoreError(w, err)
		return
	}
	if h.collector != nil {
		h.collector.RecordHistoryNode(string(history.KindUpload))
	}
	WriteSuccess(w, node)
}

// HandleLineage handles GET /api/v1/nodes/{id}/lineage.
func (h *SessionsHandler) HandleLineage(w http.ResponseWriter, r *http.Request) {
	chain, err := h.store.Lineage(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteSuccess(w, chain)
}

// HandleGetNode handles GET /api/v1/nodes/{id}.
func (h *SessionsHandler) HandleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.store.GetNode(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteSuccess(w, node)
}

func (h *SessionsHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrNotFound):
		WriteErrorMessage(w, http.StatusNotFound, imaging.ErrInvalidRequest, "not found", h.logger)
	case errors.Is(err, history.ErrInvalidInput):
		WriteErrorMessage(w, http.StatusBadRequest, imaging.ErrInvalidRequest, err.Error(), h.logger)
	default:
		h.logger.Error("history store error", zap.Error(err))
		WriteErrorMessage(w, http.StatusInternalServerError, imaging.ErrUpstreamError, "internal error", h.logger)
	}
}
