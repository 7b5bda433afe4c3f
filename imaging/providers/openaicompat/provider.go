package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/imaging"
	"github.com/paintbox-ai/paintbox/imaging/providers"
)

// Config configures the OpenAI-compatible adapter.
type Config struct {
	ProviderName string        `json:"provider_name" yaml:"provider_name"`
	APIKey       string        `json:"api_key" yaml:"api_key"`
	BaseURL      string        `json:"base_url" yaml:"base_url"`
	Model        string        `json:"model,omitempty" yaml:"model,omitempty"`
	EndpointPath string        `json:"endpoint_path,omitempty" yaml:"endpoint_path,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// BuildHeaders attaches the credential; defaults to Bearer auth.
	BuildHeaders func(*http.Request, string) `json:"-" yaml:"-"`
}

// Provider implements imaging.Provider against /v1/chat/completions.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates an OpenAI-compatible provider with defaults applied.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.ProviderName == "" {
		cfg.ProviderName = "openai-compat"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-image-1-mini"
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.BuildHeaders == nil {
		cfg.BuildHeaders = providers.BearerTokenHeaders
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (p *Provider) Name() string { return p.cfg.ProviderName }

// Wire types for the chat-completions shape.

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Modalities  []string      `json:"modalities,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	Seed        int64         `json:"seed,omitempty"`
	N           int           `json:"n,omitempty"`
}

// chatRespMessage keeps Content raw: gateways return either a plain string
// or a content-part array, and some attach an images list alongside.
type chatRespMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Images  []struct {
		Type     string       `json:"type"`
		ImageURL chatImageURL `json:"image_url"`
	} `json:"images,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int             `json:"index"`
		FinishReason string          `json:"finish_reason"`
		Message      chatRespMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Created int64 `json:"created,omitempty"`
}

// Generate implements imaging.Provider.
func (p *Provider) Generate(ctx context.Context, req *imaging.GenerateRequest) (*imaging.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	parts := []chatContentPart{{Type: "text", Text: req.Prompt}}
	for _, ref := range req.References {
		parts = append(parts, chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: ref.DataURL()}})
	}

	body := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Modalities:  []string{"text", "image"},
		Temperature: req.Temperature,
		Seed:        req.Seed,
	}
	if req.Count > 1 {
		body.N = req.Count
	}

	return p.complete(ctx, model, body)
}

// Edit implements imaging.Provider. The chat-completions shape has no
// dedicated mask slot, so the mask travels as an additional image part bound
// by an instruction sentence.
func (p *Provider) Edit(ctx context.Context, req *imaging.EditRequest) (*imaging.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	parts := []chatContentPart{
		{Type: "image_url", ImageURL: &chatImageURL{URL: req.Image.DataURL()}},
	}
	if req.Mask != nil {
		parts = append(parts,
			chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: req.Mask.DataURL()}},
			chatContentPart{Type: "text", Text: "The second image is an edit mask: apply the edit only inside its white region."},
		)
	}
	for _, ref := range req.References {
		parts = append(parts, chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: ref.DataURL()}})
	}
	parts = append(parts, chatContentPart{Type: "text", Text: req.Instruction})

	body := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Modalities:  []string{"text", "image"},
		Temperature: req.Temperature,
		Seed:        req.Seed,
	}

	return p.complete(ctx, model, body)
}

// Segment implements imaging.Provider. Structured segmentation output is not
// expressible over chat completions.
func (p *Provider) Segment(ctx context.Context, req *imaging.SegmentRequest) (*imaging.SegmentResult, error) {
	return nil, &imaging.Error{
		Code:       imaging.ErrUnsupported,
		Message:    "segmentation requires a Gemini-shaped endpoint",
		HTTPStatus: http.StatusNotImplemented,
		Provider:   p.Name(),
	}
}

// HealthCheck probes the models listing endpoint.
func (p *Provider) HealthCheck(ctx context.Context) (*imaging.HealthStatus, error) {
	start := time.Now()
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.cfg.BuildHeaders(httpReq, p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &imaging.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &imaging.HealthStatus{Healthy: false, Latency: latency}, providers.DecodeAPIError(resp, p.Name())
	}
	return &imaging.HealthStatus{Healthy: true, Latency: latency}, nil
}

func (p *Provider) complete(ctx context.Context, model string, body chatRequest) (*imaging.GenerateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + p.cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.cfg.BuildHeaders(httpReq, p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.NetworkError(err, p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		ierr := providers.DecodeAPIError(resp, p.Name())
		p.logger.Warn("chat completion failed",
			zap.String("model", model),
			zap.Int("status", resp.StatusCode),
			zap.String("code", string(ierr.Code)),
		)
		return nil, ierr
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return nil, providers.DecodeError(err, p.Name())
	}

	return p.toResponse(&cResp, model)
}

var dataURLRe = regexp.MustCompile(`data:image/[a-zA-Z+.-]+;base64,[A-Za-z0-9+/=_-]+`)

// toResponse detects which of the known response shapes the gateway used and
// extracts image payloads from it.
func (p *Provider) toResponse(cResp *chatResponse, model string) (*imaging.GenerateResponse, error) {
	var images []imaging.ImageBlob
	var text strings.Builder

	for _, choice := range cResp.Choices {
		msg := choice.Message

		// Gateway extension: an images list next to the content.
		for _, img := range msg.Images {
			if img.ImageURL.URL != "" {
				images = append(images, imaging.BlobFromDataURL(img.ImageURL.URL))
			}
		}

		if len(msg.Content) == 0 {
			continue
		}

		// Content is either a plain string or a content-part array.
		var contentStr string
		if err := json.Unmarshal(msg.Content, &contentStr); err == nil {
			urls := dataURLRe.FindAllString(contentStr, -1)
			for _, u := range urls {
				images = append(images, imaging.BlobFromDataURL(u))
			}
			if len(urls) == 0 {
				text.WriteString(contentStr)
			}
			continue
		}

		var parts []chatContentPart
		if err := json.Unmarshal(msg.Content, &parts); err == nil {
			for _, part := range parts {
				if part.ImageURL != nil && part.ImageURL.URL != "" {
					images = append(images, imaging.BlobFromDataURL(part.ImageURL.URL))
				}
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
		}
	}

	if len(images) == 0 {
		msg := "response carried no image data"
		if text.Len() > 0 {
			msg = fmt.Sprintf("response carried no image data, model said: %s", text.String())
		}
		return nil, &imaging.Error{
			Code:       imaging.ErrNoImageData,
			Message:    msg,
			HTTPStatus: http.StatusBadGateway,
			Provider:   p.Name(),
		}
	}

	resp := &imaging.GenerateResponse{
		Provider:  p.Name(),
		Model:     model,
		Images:    images,
		ModelText: text.String(),
		Usage:     imaging.Usage{ImagesGenerated: len(images)},
		CreatedAt: time.Now(),
	}
	if cResp.Created > 0 {
		resp.CreatedAt = time.Unix(cResp.Created, 0)
	}
	if cResp.Usage != nil {
		resp.Usage.PromptTokens = cResp.Usage.PromptTokens
		resp.Usage.OutputTokens = cResp.Usage.CompletionTokens
	}
	return resp, nil
}
