package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/paintbox-ai/paintbox/imaging"
)

// segmentEntry matches one element of the structured mask list the model
// returns: a normalized 0-1000 box, a data-URL PNG mask, and a label.
type segmentEntry struct {
	Box2D [4]int `json:"box_2d"`
	Mask  string `json:"mask"`
	Label string `json:"label"`
}

const segmentPromptTemplate = `Give the segmentation mask for %q. ` +
	`Output a JSON list of segmentation masks where each entry contains the 2D bounding box ` +
	`in the key "box_2d" as [y_min, x_min, y_max, x_max] normalized to 0-1000, ` +
	`the segmentation mask as a base64 PNG data URL in the key "mask", ` +
	`and the text label in the key "label".`

// Segment implements imaging.Provider. The mask is obtained through the
// regular generateContent endpoint by forcing a JSON response and parsing
// the structured mask list.
func (p *Provider) Segment(ctx context.Context, req *imaging.SegmentRequest) (*imaging.SegmentResult, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.SegmentModel
	}

	body := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				inlinePart(req.Image),
				{Text: fmt.Sprintf(segmentPromptTemplate, req.Target)},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMimeType: "application/json",
		},
	}

	gResp, err := p.generateContent(ctx, model, body)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, candidate := range gResp.Candidates {
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &imaging.Error{
			Code:       imaging.ErrNoImageData,
			Message:    "segmentation response carried no content",
			HTTPStatus: http.StatusBadGateway,
			Provider:   p.Name(),
		}
	}

	entries, err := parseSegmentEntries(text.String())
	if err != nil {
		return nil, &imaging.Error{
			Code:       imaging.ErrUpstreamError,
			Message:    fmt.Sprintf("failed to parse segmentation response: %v", err),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
		}
	}
	if len(entries) == 0 {
		return nil, &imaging.Error{
			Code:       imaging.ErrNoImageData,
			Message:    fmt.Sprintf("no segmentation mask found for %q", req.Target),
			HTTPStatus: http.StatusBadGateway,
			Provider:   p.Name(),
		}
	}

	first := entries[0]
	return &imaging.SegmentResult{
		Label: first.Label,
		Box: imaging.BoundingBox{
			YMin: first.Box2D[0],
			XMin: first.Box2D[1],
			YMax: first.Box2D[2],
			XMax: first.Box2D[3],
		},
		Mask: imaging.BlobFromDataURL(first.Mask),
	}, nil
}

// parseSegmentEntries tolerates the markdown fences some models wrap JSON in.
func parseSegmentEntries(raw string) ([]segmentEntry, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	var entries []segmentEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// Some model versions return a single object instead of a list.
		var single segmentEntry
		if err2 := json.Unmarshal([]byte(raw), &single); err2 != nil {
			return nil, err
		}
		entries = []segmentEntry{single}
	}
	return entries, nil
}
