package imaging

import (
	"fmt"
	"strings"
	"time"
)

// MaxReferenceImages caps the auxiliary images accepted per request.
const MaxReferenceImages = 2

// ImageBlob is the uniform image payload: base64 data plus its MIME type.
type ImageBlob struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64 encoded
}

// Empty reports whether the blob carries no data.
func (b ImageBlob) Empty() bool { return b.Data == "" }

// DataURL renders the blob as a data URL for chat-completions payloads.
func (b ImageBlob) DataURL() string {
	mime := b.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, b.Data)
}

// BlobFromDataURL parses a data URL back into an ImageBlob.
// Inputs without the data: scheme are treated as bare base64 PNG payloads.
func BlobFromDataURL(s string) ImageBlob {
	if !strings.HasPrefix(s, "data:") {
		return ImageBlob{MIMEType: "image/png", Data: s}
	}
	rest := strings.TrimPrefix(s, "data:")
	mime, data, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return ImageBlob{MIMEType: "image/png", Data: rest}
	}
	if mime == "" {
		mime = "image/png"
	}
	return ImageBlob{MIMEType: mime, Data: data}
}

// GenerateRequest asks for images from a text prompt, optionally steered by
// up to MaxReferenceImages reference images.
type GenerateRequest struct {
	Prompt      string      `json:"prompt"`
	References  []ImageBlob `json:"references,omitempty"`
	Temperature float32     `json:"temperature,omitempty"`
	Seed        int64       `json:"seed,omitempty"`
	Model       string      `json:"model,omitempty"`
	Count       int         `json:"count,omitempty"`
}

// Validate enforces the request invariants before any network call.
func (r *GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &Error{Code: ErrInvalidRequest, Message: "prompt is required", HTTPStatus: 400}
	}
	if r.Count < 0 {
		return &Error{Code: ErrInvalidRequest, Message: "count must not be negative", HTTPStatus: 400}
	}
	return validateReferences(r.References)
}

// EditRequest applies an instruction to an existing image. Mask, when
// present, constrains the edit to the masked region; references steer style.
type EditRequest struct {
	Instruction string      `json:"instruction"`
	Image       ImageBlob   `json:"image"`
	Mask        *ImageBlob  `json:"mask,omitempty"`
	References  []ImageBlob `json:"references,omitempty"`
	Temperature float32     `json:"temperature,omitempty"`
	Seed        int64       `json:"seed,omitempty"`
	Model       string      `json:"model,omitempty"`
}

// Validate enforces the request invariants before any network call.
func (r *EditRequest) Validate() error {
	if strings.TrimSpace(r.Instruction) == "" {
		return &Error{Code: ErrInvalidRequest, Message: "instruction is required", HTTPStatus: 400}
	}
	if r.Image.Empty() {
		return &Error{Code: ErrInvalidRequest, Message: "image is required", HTTPStatus: 400}
	}
	if r.Mask != nil && r.Mask.Empty() {
		return &Error{Code: ErrInvalidRequest, Message: "mask must carry image data when present", HTTPStatus: 400}
	}
	return validateReferences(r.References)
}

func validateReferences(refs []ImageBlob) error {
	if len(refs) > MaxReferenceImages {
		return &Error{
			Code:       ErrInvalidRequest,
			Message:    fmt.Sprintf("at most %d reference images are allowed, got %d", MaxReferenceImages, len(refs)),
			HTTPStatus: 400,
		}
	}
	for i, ref := range refs {
		if ref.Empty() {
			return &Error{
				Code:       ErrInvalidRequest,
				Message:    fmt.Sprintf("reference image %d carries no data", i),
				HTTPStatus: 400,
			}
		}
	}
	return nil
}

// SegmentRequest asks for a mask of the target object within the image.
type SegmentRequest struct {
	Image  ImageBlob `json:"image"`
	Target string    `json:"target"`
	Model  string    `json:"model,omitempty"`
}

// Validate enforces the request invariants before any network call.
func (r *SegmentRequest) Validate() error {
	if r.Image.Empty() {
		return &Error{Code: ErrInvalidRequest, Message: "image is required", HTTPStatus: 400}
	}
	if strings.TrimSpace(r.Target) == "" {
		return &Error{Code: ErrInvalidRequest, Message: "target is required", HTTPStatus: 400}
	}
	return nil
}

// BoundingBox uses Gemini's normalized coordinate space: each value is in
// [0, 1000] relative to the image dimensions, ordered ymin/xmin/ymax/xmax.
type BoundingBox struct {
	YMin int `json:"y_min"`
	XMin int `json:"x_min"`
	YMax int `json:"y_max"`
	XMax int `json:"x_max"`
}

// SegmentResult is one detected object: its label, location and binary mask.
type SegmentResult struct {
	Label string      `json:"label"`
	Box   BoundingBox `json:"box"`
	Mask  ImageBlob   `json:"mask"`
}

// Usage carries per-request accounting reported by the provider.
type Usage struct {
	PromptTokens    int `json:"prompt_tokens,omitempty"`
	OutputTokens    int `json:"output_tokens,omitempty"`
	ImagesGenerated int `json:"images_generated"`
}

// GenerateResponse is the uniform result of Generate and Edit calls.
// ModelText carries any text the model returned alongside (or instead of)
// image data, e.g. a refusal explanation.
type GenerateResponse struct {
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	Images    []ImageBlob `json:"images"`
	ModelText string      `json:"model_text,omitempty"`
	Usage     Usage       `json:"usage,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
