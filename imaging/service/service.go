// Package service orchestrates imaging calls: validation, provider-side rate
// limiting, result caching for seeded requests, and metrics. Detailed
// upstream errors are logged here and replaced with generic messages before
// they reach clients; rate-limit errors keep their retry hint.
package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/imaging"
	"github.com/paintbox-ai/paintbox/imaging/cache"
	"github.com/paintbox-ai/paintbox/imaging/ratelimit"
	"github.com/paintbox-ai/paintbox/internal/metrics"
)

const (
	opGenerate = "generate"
	opEdit     = "edit"
	opSegment  = "segment"
)

// Service wraps an imaging.Provider with the cross-cutting concerns the
// adapters themselves stay free of. Cache, limiter, and collector are all
// optional.
type Service struct {
	provider  imaging.Provider
	cache     *cache.ResultCache
	limiter   *ratelimit.Registry
	collector *metrics.Collector
	logger    *zap.Logger
}

// New creates a Service around provider.
func New(provider imaging.Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithCache attaches a result cache.
func WithCache(c *cache.ResultCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithRateLimiter attaches a provider-side rate limiter.
func WithRateLimiter(r *ratelimit.Registry) Option {
	return func(s *Service) { s.limiter = r }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.collector = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Provider returns the wrapped provider.
func (s *Service) Provider() imaging.Provider { return s.provider }

// Generate validates and runs a text-to-image request.
func (s *Service) Generate(ctx context.Context, req *imaging.GenerateRequest) (*imaging.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key(opGenerate, req)
	if resp, ok := s.cacheLookup(ctx, req.Seed, key); ok {
		return resp, nil
	}

	if err := s.acquire(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, req)
	s.record(opGenerate, start, resp, err)
	if err != nil {
		return nil, s.publicError(opGenerate, "failed to generate image", err)
	}

	s.cacheStore(ctx, req.Seed, key, resp)
	return resp, nil
}

// Edit validates and runs an image edit request.
func (s *Service) Edit(ctx context.Context, req *imaging.EditRequest) (*imaging.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key(opEdit, req)
	if resp, ok := s.cacheLookup(ctx, req.Seed, key); ok {
		return resp, nil
	}

	if err := s.acquire(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.provider.Edit(ctx, req)
	s.record(opEdit, start, resp, err)
	if err != nil {
		return nil, s.publicError(opEdit, "failed to edit image", err)
	}

	s.cacheStore(ctx, req.Seed, key, resp)
	return resp, nil
}

// Segment validates and runs a segmentation request. Segmentation results
// are never cached: the mask is cheap to recompute and rarely repeated.
func (s *Service) Segment(ctx context.Context, req *imaging.SegmentRequest) (*imaging.SegmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.acquire(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.provider.Segment(ctx, req)
	s.record(opSegment, start, nil, err)
	if err != nil {
		return nil, s.publicError(opSegment, "failed to segment image", err)
	}
	return result, nil
}

// HealthCheck probes the wrapped provider.
func (s *Service) HealthCheck(ctx context.Context) (*imaging.HealthStatus, error) {
	return s.provider.HealthCheck(ctx)
}

// acquire checks the provider's token bucket. Over-limit requests are
// rejected immediately; nothing queues behind a free token.
func (s *Service) acquire() error {
	if s.limiter == nil {
		return nil
	}
	if !s.limiter.Allow(s.provider.Name()) {
		return &imaging.Error{
			Code:       imaging.ErrRateLimited,
			Message:    "local rate limit exceeded",
			HTTPStatus: http.StatusTooManyRequests,
			Retryable:  true,
			Provider:   s.provider.Name(),
		}
	}
	return nil
}

func (s *Service) cacheLookup(ctx context.Context, seed int64, key string) (*imaging.GenerateResponse, bool) {
	if s.cache == nil || !cache.Cacheable(seed) {
		return nil, false
	}
	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache lookup failed", zap.Error(err))
		}
		if s.collector != nil {
			s.collector.RecordCacheMiss("result")
		}
		return nil, false
	}
	if s.collector != nil {
		s.collector.RecordCacheHit("result")
	}
	return entry.Response, true
}

func (s *Service) cacheStore(ctx context.Context, seed int64, key string, resp *imaging.GenerateResponse) {
	if s.cache == nil || !cache.Cacheable(seed) {
		return
	}
	if err := s.cache.Set(ctx, key, &cache.Entry{Response: resp}); err != nil {
		s.logger.Warn("cache store failed", zap.Error(err))
	}
}

func (s *Service) record(operation string, start time.Time, resp *imaging.GenerateResponse, err error) {
	if s.collector == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	var images, promptTokens, outputTokens int
	if resp != nil {
		images = resp.Usage.ImagesGenerated
		promptTokens = resp.Usage.PromptTokens
		outputTokens = resp.Usage.OutputTokens
	}
	s.collector.RecordImagingRequest(s.provider.Name(), operation, status, time.Since(start), images, promptTokens, outputTokens)
}

// publicError logs the detailed upstream error and returns a copy carrying a
// generic message. Code, status, and the 429 retry hint survive so the API
// layer can still map them.
func (s *Service) publicError(operation, message string, err error) error {
	ierr := imaging.AsError(err)
	if ierr == nil {
		s.logger.Error("imaging call failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return &imaging.Error{
			Code:       imaging.ErrUpstreamError,
			Message:    message,
			HTTPStatus: http.StatusBadGateway,
			Provider:   s.provider.Name(),
		}
	}

	s.logger.Error("imaging call failed",
		zap.String("operation", operation),
		zap.String("provider", ierr.Provider),
		zap.String("code", string(ierr.Code)),
		zap.Int("status", ierr.HTTPStatus),
		zap.Duration("retry_after", ierr.RetryAfter),
		zap.String("detail", ierr.Message),
	)

	pub := *ierr
	pub.Message = message
	if pub.Code == imaging.ErrRateLimited && pub.RetryAfter > 0 {
		pub.Message = message + ": rate limited upstream, retry after " + pub.RetryAfter.String()
	}
	return &pub
}
