package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/api/handlers"
	"github.com/paintbox-ai/paintbox/config"
	"github.com/paintbox-ai/paintbox/history"
	"github.com/paintbox-ai/paintbox/imaging/cache"
	"github.com/paintbox-ai/paintbox/imaging/factory"
	"github.com/paintbox-ai/paintbox/imaging/providers"
	"github.com/paintbox-ai/paintbox/imaging/ratelimit"
	"github.com/paintbox-ai/paintbox/imaging/service"
	"github.com/paintbox-ai/paintbox/internal/metrics"
	"github.com/paintbox-ai/paintbox/internal/server"
)

// Server wires the service together and runs it.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager *server.Manager
	collector   *metrics.Collector
	redisClient *redis.Client
	store       history.Store
	svc         *service.Service

	// cancels bucket-cleanup goroutines of the rate limiters
	limiterCancel context.CancelFunc

	healthHandler   *handlers.HealthHandler
	imagesHandler   *handlers.ImagesHandler
	sessionsHandler *handlers.SessionsHandler
}

// NewServer creates a Server from loaded configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start builds all components and begins serving.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("paintbox", prometheus.DefaultRegisterer, s.logger)

	if err := s.initComponents(); err != nil {
		return fmt.Errorf("failed to init components: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.logger.Info("server started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.String("upstream", s.cfg.Upstream.BaseURL),
	)
	return nil
}

func (s *Server) initComponents() error {
	limiterCtx, cancel := context.WithCancel(context.Background())
	s.limiterCancel = cancel

	// Upstream provider.
	provider, err := factory.New(factory.Options{
		APIKey:       s.cfg.Upstream.APIKey,
		BearerToken:  s.cfg.Upstream.BearerToken,
		BaseURL:      s.cfg.Upstream.BaseURL,
		Model:        s.cfg.Upstream.Model,
		SegmentModel: s.cfg.Upstream.SegmentModel,
		Flavor:       providers.Flavor(s.cfg.Upstream.Flavor),
		Auth:         providers.AuthScheme(s.cfg.Upstream.Auth),
		Timeout:      s.cfg.Upstream.Timeout,
	}, s.logger)
	if err != nil {
		return err
	}

	// Result cache, optionally Redis-backed.
	var resultCache *cache.ResultCache
	if s.cfg.Cache.Enabled {
		if s.cfg.Redis.Enabled {
			s.redisClient = redis.NewClient(&redis.Options{
				Addr:     s.cfg.Redis.Addr,
				Password: s.cfg.Redis.Password,
				DB:       s.cfg.Redis.DB,
				PoolSize: s.cfg.Redis.PoolSize,
			})
		}
		resultCache = cache.New(s.redisClient, &cache.Config{
			LocalMaxSize: s.cfg.Cache.LocalMaxSize,
			LocalTTL:     s.cfg.Cache.LocalTTL,
			RedisTTL:     s.cfg.Cache.RedisTTL,
			EnableLocal:  true,
			EnableRedis:  s.cfg.Redis.Enabled,
		}, s.logger)
	}

	upstreamLimiter := ratelimit.NewRegistry(limiterCtx, &ratelimit.Config{
		RPS:   s.cfg.RateLimit.RPS,
		Burst: s.cfg.RateLimit.Burst,
	})

	opts := []service.Option{
		service.WithRateLimiter(upstreamLimiter),
		service.WithMetrics(s.collector),
		service.WithLogger(s.logger),
	}
	if resultCache != nil {
		opts = append(opts, service.WithCache(resultCache))
	}
	s.svc = service.New(provider, opts...)

	// History store.
	switch s.cfg.History.Backend {
	case "sqlite":
		store, err := history.OpenSQLite(s.cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		s.store = store
	default:
		s.store = history.NewMemoryStore()
	}

	// Handlers.
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.HealthCheckFunc{
		CheckName: "upstream",
		Fn: func(ctx context.Context) error {
			status, err := s.svc.HealthCheck(ctx)
			if err != nil {
				return err
			}
			if !status.Healthy {
				return fmt.Errorf("upstream unhealthy after %s", status.Latency)
			}
			return nil
		},
	})
	if s.redisClient != nil {
		s.healthHandler.RegisterCheck(handlers.HealthCheckFunc{
			CheckName: "redis",
			Fn: func(ctx context.Context) error {
				return s.redisClient.Ping(ctx).Err()
			},
		})
	}
	s.imagesHandler = handlers.NewImagesHandler(s.svc, s.store, s.collector, s.logger)
	s.sessionsHandler = handlers.NewSessionsHandler(s.store, s.collector, s.logger)

	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/images/generate", s.imagesHandler.HandleGenerate)
	mux.HandleFunc("POST /api/v1/images/edit", s.imagesHandler.HandleEdit)
	mux.HandleFunc("POST /api/v1/images/segment", s.imagesHandler.HandleSegment)

	mux.HandleFunc("POST /api/v1/sessions", s.sessionsHandler.HandleCreate)
	mux.HandleFunc("GET /api/v1/sessions", s.sessionsHandler.HandleList)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.sessionsHandler.HandleGet)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.sessionsHandler.HandleDelete)
	mux.HandleFunc("GET /api/v1/sessions/{id}/nodes", s.sessionsHandler.HandleListNodes)
	mux.HandleFunc("POST /api/v1/sessions/{id}/upload", s.sessionsHandler.HandleUpload)
	mux.HandleFunc("GET /api/v1/nodes/{id}", s.sessionsHandler.HandleGetNode)
	mux.HandleFunc("GET /api/v1/nodes/{id}/lineage", s.sessionsHandler.HandleLineage)

	limiterCtx := context.Background() // reuses process lifetime; buckets die with the process
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(),
		ClientRateLimiter(limiterCtx, s.cfg.Server.ClientRPS, s.cfg.Server.ClientBurst, s.logger),
		Metrics(s.collector),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.httpManager.Start()
}

// WaitForShutdown blocks until the server stops, then cleans up.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown releases all resources.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	if s.limiterCancel != nil {
		s.limiterCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("redis close error", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("history store close error", zap.Error(err))
		}
	}
}
