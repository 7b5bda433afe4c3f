package api

import (
	"time"

	"github.com/paintbox-ai/paintbox/imaging"
)

// ImageDTO is an image payload on the wire: raw base64 plus its MIME type.
type ImageDTO struct {
	MIMEType string `json:"mime_type" example:"image/png"`
	Data     string `json:"data"`
}

// Blob converts the DTO to an imaging blob.
func (d ImageDTO) Blob() imaging.ImageBlob {
	return imaging.ImageBlob{MIMEType: d.MIMEType, Data: d.Data}
}

// FromBlob converts an imaging blob to its DTO.
func FromBlob(b imaging.ImageBlob) ImageDTO {
	return ImageDTO{MIMEType: b.MIMEType, Data: b.Data}
}

// GenerateImageRequest is the body of POST /api/v1/images/generate.
type GenerateImageRequest struct {
	Prompt string `json:"prompt" example:"a red fox in the snow"`
	// References are optional style/content reference images, at most two.
	References  []ImageDTO `json:"references,omitempty"`
	Temperature float32    `json:"temperature,omitempty" example:"0.8"`
	// Seed makes the request deterministic and cacheable. Zero means
	// unseeded.
	Seed  int64  `json:"seed,omitempty" example:"42"`
	Model string `json:"model,omitempty" example:"gemini-2.5-flash-image"`
	Count int    `json:"count,omitempty" example:"1"`
	// SessionID, when set, appends the result to that session's history.
	SessionID string `json:"session_id,omitempty"`
	// ParentID is the history node the result descends from.
	ParentID string `json:"parent_id,omitempty"`
}

// EditImageRequest is the body of POST /api/v1/images/edit.
type EditImageRequest struct {
	Instruction string     `json:"instruction" example:"make the sky purple"`
	Image       ImageDTO   `json:"image"`
	Mask        *ImageDTO  `json:"mask,omitempty"`
	References  []ImageDTO `json:"references,omitempty"`
	Temperature float32    `json:"temperature,omitempty"`
	Seed        int64      `json:"seed,omitempty"`
	Model       string     `json:"model,omitempty"`
	SessionID   string     `json:"session_id,omitempty"`
	ParentID    string     `json:"parent_id,omitempty"`
}

// SegmentImageRequest is the body of POST /api/v1/images/segment.
type SegmentImageRequest struct {
	Image  ImageDTO `json:"image"`
	Target string   `json:"target" example:"the cat on the left"`
	Model  string   `json:"model,omitempty"`
}

// ImageResponse is the uniform response of generate and edit.
type ImageResponse struct {
	Provider  string     `json:"provider" example:"gemini"`
	Model     string     `json:"model"`
	Images    []ImageDTO `json:"images"`
	ModelText string     `json:"model_text,omitempty"`
	// NodeID is set when the result was recorded into a session.
	NodeID    string    `json:"node_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SegmentResponse is the response of segment.
type SegmentResponse struct {
	Label string `json:"label,omitempty"`
	// Box coordinates are normalized to 0-1000 in ymin,xmin,ymax,xmax order.
	Box  [4]int   `json:"box_2d"`
	Mask ImageDTO `json:"mask"`
}

// CreateSessionRequest is the body of POST /api/v1/sessions.
type CreateSessionRequest struct {
	Title string `json:"title" example:"poster draft"`
}

// UploadNodeRequest is the body of POST /api/v1/sessions/{id}/upload: it
// seeds a session with a user-provided image as a new root node.
type UploadNodeRequest struct {
	Image    ImageDTO `json:"image"`
	ParentID string   `json:"parent_id,omitempty"`
}
