package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/imaging"
	"github.com/paintbox-ai/paintbox/imaging/providers"
)

const (
	defaultBaseURL      = "https://generativelanguage.googleapis.com"
	defaultModel        = "gemini-2.5-flash-image"
	defaultSegmentModel = "gemini-2.5-flash"
)

// Config configures the Gemini adapter.
type Config struct {
	APIKey       string        `json:"api_key" yaml:"api_key"`
	BaseURL      string        `json:"base_url" yaml:"base_url"`
	Model        string        `json:"model,omitempty" yaml:"model,omitempty"`
	SegmentModel string        `json:"segment_model,omitempty" yaml:"segment_model,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// BuildHeaders attaches the credential; defaults to the x-goog-api-key
	// scheme. Proxies that expect Bearer or raw tokens override this.
	BuildHeaders func(*http.Request, string) `json:"-" yaml:"-"`
}

// Provider implements imaging.Provider against the generateContent endpoint.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini provider with defaults applied.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.SegmentModel == "" {
		cfg.SegmentModel = defaultSegmentModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.BuildHeaders == nil {
		cfg.BuildHeaders = providers.GoogleKeyHeaders
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

func (p *Provider) Name() string { return "gemini" }

// Wire types for the generateContent shape.

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature        float32  `json:"temperature,omitempty"`
	Seed               int64    `json:"seed,omitempty"`
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

func inlinePart(b imaging.ImageBlob) geminiPart {
	mime := b.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: b.Data}}
}

// Generate implements imaging.Provider.
func (p *Provider) Generate(ctx context.Context, req *imaging.GenerateRequest) (*imaging.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	parts := []geminiPart{{Text: req.Prompt}}
	for _, ref := range req.References {
		parts = append(parts, inlinePart(ref))
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:        req.Temperature,
			Seed:               req.Seed,
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	if req.Count > 1 {
		body.GenerationConfig.CandidateCount = req.Count
	}

	gResp, err := p.generateContent(ctx, model, body)
	if err != nil {
		return nil, err
	}
	return p.toResponse(gResp, model)
}

// Edit implements imaging.Provider. The original image leads the parts list,
// followed by the mask (when present), references, and the instruction.
func (p *Provider) Edit(ctx context.Context, req *imaging.EditRequest) (*imaging.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	parts := []geminiPart{inlinePart(req.Image)}
	if req.Mask != nil {
		parts = append(parts,
			inlinePart(*req.Mask),
			geminiPart{Text: "Apply the edit only inside the white region of the mask image above; keep everything else unchanged."},
		)
	}
	for _, ref := range req.References {
		parts = append(parts, inlinePart(ref))
	}
	parts = append(parts, geminiPart{Text: req.Instruction})

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:        req.Temperature,
			Seed:               req.Seed,
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	gResp, err := p.generateContent(ctx, model, body)
	if err != nil {
		return nil, err
	}
	return p.toResponse(gResp, model)
}

// HealthCheck probes the models listing endpoint.
func (p *Provider) HealthCheck(ctx context.Context) (*imaging.HealthStatus, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1beta/models", strings.TrimRight(p.cfg.BaseURL, "/"))
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

// generateContent performs the single POST to the generateContent endpoint.
func (p *Provider) generateContent(ctx context.Context, model string, body geminiRequest) (*geminiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(p.cfg.BaseURL, "/"), model)
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
		p.logger.Warn("gemini request failed",
			zap.String("model", model),
			zap.Int("status", resp.StatusCode),
			zap.String("code", string(ierr.Code)),
			zap.Duration("retry_after", ierr.RetryAfter),
		)
		return nil, ierr
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return nil, providers.DecodeError(err, p.Name())
	}
	return &gResp, nil
}

// toResponse extracts inline image data and text from the candidate parts.
func (p *Provider) toResponse(gResp *geminiResponse, model string) (*imaging.GenerateResponse, error) {
	if fb := gResp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, &imaging.Error{
			Code:       imaging.ErrContentFiltered,
			Message:    fmt.Sprintf("prompt blocked by safety system: %s", fb.BlockReason),
			HTTPStatus: http.StatusUnprocessableEntity,
			Provider:   p.Name(),
		}
	}

	var images []imaging.ImageBlob
	var text strings.Builder
	for _, candidate := range gResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil {
				images = append(images, imaging.ImageBlob{
					MIMEType: part.InlineData.MimeType,
					Data:     part.InlineData.Data,
				})
			}
			if part.Text != "" {
				text.WriteString(part.Text)
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
	if um := gResp.UsageMetadata; um != nil {
		resp.Usage.PromptTokens = um.PromptTokenCount
		resp.Usage.OutputTokens = um.CandidatesTokenCount
	}
	return resp, nil
}
