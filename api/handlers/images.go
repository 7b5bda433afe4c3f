package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/api"
	"github.com/paintbox-ai/paintbox/history"
	"github.com/paintbox-ai/paintbox/imaging"
	"github.com/paintbox-ai/paintbox/imaging/service"
	"github.com/paintbox-ai/paintbox/internal/metrics"
)

// ImagesHandler serves the imaging operations. The history store and the
// collector are optional; without a store session_id fields are ignored.
type ImagesHandler struct {
	svc       *service.Service
	store     history.Store
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewImagesHandler creates an ImagesHandler.
func NewImagesHandler(svc *service.Service, store history.Store, collector *metrics.Collector, logger *zap.Logger) *ImagesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImagesHandler{svc: svc, store: store, collector: collector, logger: logger}
}

// HandleGenerate handles POST /api/v1/images/generate.
func (h *ImagesHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateImageRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	gen := &imaging.GenerateRequest{
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		Seed:        req.Seed,
		Model:       req.Model,
		Count:       req.Count,
	}
	for _, ref := range req.References {
		gen.References = append(gen.References, ref.Blob())
	}

	resp, err := h.svc.Generate(r.Context(), gen)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	out := toImageResponse(resp)
	out.NodeID = h.recordNode(r.Context(), req.SessionID, req.ParentID, history.KindGenerate, req.Prompt, req.Seed, resp)
	WriteSuccess(w, out)
}

// HandleEdit handles POST /api/v1/images/edit.
func (h *ImagesHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	var req api.EditImageRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	edit := &imaging.EditRequest{
		Instruction: req.Instruction,
		Image:       req.Image.Blob(),
		Temperature: req.Temperature,
		Seed:        req.Seed,
		Model:       req.Model,
	}
	if req.Mask != nil {
		mask := req.Mask.Blob()
		edit.Mask = &mask
	}
	for _, ref := range req.References {
		edit.References = append(edit.References, ref.Blob())
	}

	resp, err := h.svc.Edit(r.Context(), edit)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	out := toImageResponse(resp)
	out.NodeID = h.recordNode(r.Context(), req.SessionID, req.ParentID, history.KindEdit, req.Instruction, req.Seed, resp)
	WriteSuccess(w, out)
}

// HandleSegment handles POST /api/v1/images/segment.
func (h *ImagesHandler) HandleSegment(w http.ResponseWriter, r *http.Request) {
	var req api.SegmentImageRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	result, err := h.svc.Segment(r.Context(), &imaging.SegmentRequest{
		Image:  req.Image.Blob(),
		Target: req.Target,
		Model:  req.Model,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, api.SegmentResponse{
		Label: result.Label,
		Box:   [4]int{result.Box.YMin, result.Box.XMin, result.Box.YMax, result.Box.XMax},
		Mask:  api.FromBlob(result.Mask),
	})
}

func toImageResponse(resp *imaging.GenerateResponse) api.ImageResponse {
	out := api.ImageResponse{
		Provider:  resp.Provider,
		Model:     resp.Model,
		ModelText: resp.ModelText,
		CreatedAt: resp.CreatedAt,
	}
	for _, img := range resp.Images {
		out.Images = append(out.Images, api.FromBlob(img))
	}
	return out
}

// recordNode appends the first result image to the session tree. History
// failures are logged, not surfaced: the client already has its image.
func (h *ImagesHandler) recordNode(ctx context.Context, sessionID, parentID string, kind history.NodeKind, prompt string, seed int64, resp *imaging.GenerateResponse) string {
	if h.store == nil || sessionID == "" || len(resp.Images) == 0 {
		return ""
	}

	node := &history.Node{
		SessionID: sessionID,
		ParentID:  parentID,
		Kind:      kind,
		Prompt:    prompt,
		Provider:  resp.Provider,
		Model:     resp.Model,
		Seed:      seed,
		MIMEType:  resp.Images[0].MIMEType,
		ImageData: resp.Images[0].Data,
	}
	if err := h.store.AddNode(ctx, node); err != nil {
		h.logger.Warn("failed to record history node",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return ""
	}
	if h.collector != nil {
		h.collector.RecordHistoryNode(string(kind))
	}
	return node.ID
}
