package factory

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/imaging"
	"github.com/paintbox-ai/paintbox/imaging/providers"
	"github.com/paintbox-ai/paintbox/imaging/providers/gemini"
	"github.com/paintbox-ai/paintbox/imaging/providers/openaicompat"
)

// Options is the flat upstream configuration accepted by the factory.
// Flavor and Auth are optional overrides; when empty the base URL decides.
type Options struct {
	APIKey       string               `json:"api_key" yaml:"api_key"`
	BearerToken  string               `json:"bearer_token,omitempty" yaml:"bearer_token,omitempty"`
	BaseURL      string               `json:"base_url" yaml:"base_url"`
	Model        string               `json:"model,omitempty" yaml:"model,omitempty"`
	SegmentModel string               `json:"segment_model,omitempty" yaml:"segment_model,omitempty"`
	Flavor       providers.Flavor     `json:"flavor,omitempty" yaml:"flavor,omitempty"`
	Auth         providers.AuthScheme `json:"auth,omitempty" yaml:"auth,omitempty"`
	Timeout      time.Duration        `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Resolve applies the detection heuristics plus any explicit overrides and
// returns the endpoint, the credential, and its header builder. A configured
// bearer token forces Bearer auth and is used as the credential.
func Resolve(opts Options) (providers.Endpoint, string, func(*http.Request, string)) {
	ep := providers.Detect(opts.BaseURL)
	if opts.Flavor != "" {
		ep.Flavor = opts.Flavor
	}
	if opts.Auth != "" {
		ep.Auth = opts.Auth
	}

	credential := opts.APIKey
	if opts.BearerToken != "" {
		ep.Auth = providers.AuthBearer
		credential = opts.BearerToken
	}

	return ep, credential, providers.HeaderBuilder(ep.Auth)
}

// New builds the provider matching the resolved endpoint shape.
func New(opts Options, logger *zap.Logger) (imaging.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ep, credential, buildHeaders := Resolve(opts)

	switch ep.Flavor {
	case providers.FlavorGemini:
		return gemini.New(gemini.Config{
			APIKey:       credential,
			BaseURL:      opts.BaseURL,
			Model:        opts.Model,
			SegmentModel: opts.SegmentModel,
			Timeout:      opts.Timeout,
			BuildHeaders: buildHeaders,
		}, logger), nil

	case providers.FlavorOpenAI:
		return openaicompat.New(openaicompat.Config{
			APIKey:       credential,
			BaseURL:      opts.BaseURL,
			Model:        opts.Model,
			Timeout:      opts.Timeout,
			BuildHeaders: buildHeaders,
		}, logger), nil

	default:
		return nil, fmt.Errorf("unsupported endpoint flavor: %s", ep.Flavor)
	}
}
