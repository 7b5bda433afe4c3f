package imaging

import (
	"context"
	"time"
)

// HealthStatus is the result of a provider liveness probe.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Provider adapts one upstream API shape to the uniform imaging model.
// Implementations perform exactly one network call per operation and map
// failures to *Error.
type Provider interface {
	// Generate creates images from a text prompt and optional references.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Edit modifies an existing image per the instruction, optionally
	// constrained by a mask.
	Edit(ctx context.Context, req *EditRequest) (*GenerateResponse, error)

	// Segment locates the target object and returns its label, bounding box
	// and mask. Endpoint shapes without structured output support return
	// ErrUnsupported.
	Segment(ctx context.Context, req *SegmentRequest) (*SegmentResult, error)

	// HealthCheck performs a lightweight upstream probe.
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name returns the provider identifier used in logs, metrics and errors.
	Name() string
}
