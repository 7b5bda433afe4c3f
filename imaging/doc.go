/*
Package imaging defines the request/response model and the provider
abstraction for multimodal image generation, editing and segmentation.

The package normalizes several upstream API shapes (Google Gemini native,
OpenAI-compatible chat completions, Azure deployments and generic proxies)
behind a single Provider interface. Requests and responses are transient
DTOs scoped to one network round trip; the only structural invariant is
that a request carries at most MaxReferenceImages reference images.

Service wraps a Provider with validation, local rate limiting, an optional
result cache and metrics, and converts provider failures into generic
user-facing messages while preserving the structured *Error cause.
*/
package imaging
