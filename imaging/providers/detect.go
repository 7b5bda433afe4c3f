package providers

import (
	"net/http"
	"strings"
)

// Flavor identifies the upstream request/response shape.
type Flavor string

const (
	// FlavorGemini is the native Gemini shape:
	// POST {base}/v1beta/models/{model}:generateContent.
	FlavorGemini Flavor = "gemini"
	// FlavorOpenAI is the chat-completions shape:
	// POST {base}/v1/chat/completions.
	FlavorOpenAI Flavor = "openai"
)

// AuthScheme identifies how the credential is attached to requests.
type AuthScheme string

const (
	AuthGoogleKey AuthScheme = "google-key" // x-goog-api-key header
	AuthBearer    AuthScheme = "bearer"     // Authorization: Bearer <key>
	AuthAzureKey  AuthScheme = "azure-key"  // api-key header
	AuthRaw       AuthScheme = "raw"        // Authorization: <token> verbatim
)

// Endpoint is the detected combination of request shape and auth scheme.
type Endpoint struct {
	Flavor Flavor
	Auth   AuthScheme
}

// Detect picks the endpoint shape and auth scheme from the configured base
// URL. This is a substring heuristic, not protocol negotiation: official
// hosts are recognized by name, everything else defaults to the Gemini shape
// since that is what compatible proxies most commonly re-expose.
func Detect(baseURL string) Endpoint {
	host := strings.ToLower(baseURL)

	switch {
	case strings.Contains(host, "googleapis.com"):
		return Endpoint{Flavor: FlavorGemini, Auth: AuthGoogleKey}
	case strings.Contains(host, "openai.azure.com"), strings.Contains(host, "azure-api.net"):
		return Endpoint{Flavor: FlavorOpenAI, Auth: AuthAzureKey}
	case strings.Contains(host, "openai.com"):
		return Endpoint{Flavor: FlavorOpenAI, Auth: AuthBearer}
	default:
		return Endpoint{Flavor: FlavorGemini, Auth: AuthGoogleKey}
	}
}

// HeaderBuilder returns the header function for an auth scheme.
func HeaderBuilder(auth AuthScheme) func(*http.Request, string) {
	switch auth {
	case AuthBearer:
		return BearerTokenHeaders
	case AuthAzureKey:
		return AzureKeyHeaders
	case AuthRaw:
		return RawTokenHeaders
	default:
		return GoogleKeyHeaders
	}
}
