package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/indranet/internal/api/http"
	"github.com/GriffinCanCode/indranet/internal/api/middleware"
	"github.com/GriffinCanCode/indranet/internal/api/ws"
	"github.com/GriffinCanCode/indranet/internal/domain/generation"
	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/config"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/logging"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/storage"
	"github.com/GriffinCanCode/indranet/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/indranet/internal/providers/llm"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	http      *http.Server
	store     *session.Store
	blobs     storage.Store
	persister *session.Persister
	pipeline  *generation.Pipeline
	hub       *ws.Hub
	catalog   *llm.Catalog
	watcher   *config.Watcher
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Option customizes server construction
type Option func(*options)

type options struct {
	logger  *logging.Logger
	blobs   storage.Store
	factory generation.ClientFactory
}

// WithLogger replaces the logger built from config
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStorage replaces the configured storage backend
func WithStorage(s storage.Store) Option {
	return func(o *options) { o.blobs = s }
}

// WithClientFactory replaces the configured model backend
func WithClientFactory(f generation.ClientFactory) Option {
	return func(o *options) { o.factory = f }
}

// New wires every component and restores the persisted session
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.FromConfig(cfg.Logging.Level, cfg.Logging.Development)
	}

	logger.Info("Initializing indranet explorer",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("storage", cfg.Storage.Backend))

	provider, err := llm.ParseProvider(cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}

	overrides, err := config.LoadOverrides(cfg.File)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()

	blobs := o.blobs
	if blobs == nil {
		blobs, err = storage.Open(storage.Options{
			Backend:        storage.Backend(cfg.Storage.Backend),
			Dir:            cfg.Storage.Dir,
			Backups:        cfg.Storage.Backups,
			BackupInterval: cfg.Storage.BackupInterval,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		blobs:   blobs,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}

	// Session
	s.store = session.NewStore()
	s.store.Subscribe(nodeMetrics(s.store, metrics))
	s.persister = session.NewPersister(s.store, blobs, logger, cfg.Storage.Debounce)
	s.persister.SetRecorder(metrics)
	if _, err := s.persister.Restore(ctx); err != nil {
		// A corrupt blob must not brick startup; the next save replaces it
		logger.Error("Failed to restore session, starting fresh", zap.Error(err))
	}
	seedSession(s.store, overrides, cfg.LLM.APIKey, logger)

	// Model catalog
	s.catalog = llm.NewCatalog()
	registerModels(s.catalog, overrides, logger)
	if cfg.File != "" {
		s.watcher, err = config.NewWatcher(cfg.File, overrides, logger)
		if err != nil {
			logger.Warn("Overrides will not be reloaded", zap.Error(err))
		} else {
			s.watcher.OnChange(func(o *config.Overrides) {
				registerModels(s.catalog, o, logger)
			})
		}
	}

	// Generation
	var llmFactory *llm.Factory
	factory := o.factory
	if factory == nil {
		fcfg := llm.FactoryConfig{
			Provider:   provider,
			BaseURL:    cfg.LLM.BaseURL,
			MaxRetries: cfg.LLM.MaxRetries,
			Timeout:    cfg.LLM.Timeout,
		}
		if cfg.LLM.BreakerEnabled {
			b := llm.DefaultBreakerConfig()
			b.MinRequests = cfg.LLM.BreakerMinReqs
			b.FailureThreshold = cfg.LLM.BreakerRatio
			b.Timeout = cfg.LLM.BreakerTimeout
			fcfg.Breaker = &b
		}
		llmFactory = llm.NewFactory(fcfg, logger)
		factory = llmFactory
	}
	s.pipeline = generation.New(s.store, factory, logger, metrics, generation.Config{
		MaxTokens: cfg.Generation.MaxTokens,
		Timeout:   cfg.Generation.Timeout,
		History:   cfg.Generation.History,
	})

	s.hub = ws.NewHub(s.store, s.pipeline, logger, metrics)

	// Router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(monitoring.Middleware(metrics))

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORS.AllowOrigins
	}
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst))
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(ctx, rl))
	}

	handlers := api.NewHandlers(api.Deps{
		Store:     s.store,
		Pipeline:  s.pipeline,
		Catalog:   s.catalog,
		Factory:   llmFactory,
		Persister: s.persister,
		Hub:       s.hub,
		Metrics:   metrics,
		Logger:    logger,
	})
	handlers.Register(router)
	s.router = router

	s.http = &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	// Background workers
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.persister.Run(ctx)
	}()
	if s.watcher != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.watcher.Run(ctx)
		}()
	}

	logger.Info("Server initialized successfully", zap.Int("nodes", s.store.Len()))
	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the session store
func (s *Server) Store() *session.Store {
	return s.store
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	return s.Close(shutdownCtx)
}

// Close stops accepting requests, ends open streams and flushes the session
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	s.once.Do(func() {
		s.logger.Info("Shutting down server...")

		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		s.hub.Close()
		if err := s.pipeline.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pipeline close: %w", err))
		}

		// Streams are done, so the final flush sees their last chunk
		s.persister.Close()
		s.cancel()
		s.wg.Wait()

		if err := s.blobs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
		s.logger.Info("Server stopped")
		_ = s.logger.Sync()
	})
	return errors.Join(errs...)
}

// nodeMetrics keeps the tree gauges in step with the store
func nodeMetrics(store *session.Store, metrics *monitoring.Metrics) session.Observer {
	return session.ObserverFunc(func(c session.Change) {
		switch c.Kind {
		case session.ChangeNodeCreated:
			metrics.IncNodesCreated()
		case session.ChangeNodeDeleted:
			metrics.IncNodesDeleted()
		case session.ChangeLoaded:
		default:
			return
		}
		metrics.SetNodesActive(store.Len())
	})
}

// seedSession applies the overrides file to a session that has never been
// customized, and fills in the credential from the environment when none is
// stored.
func seedSession(store *session.Store, o *config.Overrides, apiKey string, logger *logging.Logger) {
	settings := store.Settings()
	var patch session.SettingsPatch

	pristine := store.Len() == 0 && settings == session.DefaultSettings()
	if pristine && o != nil {
		if o.Model != "" {
			patch.Model = &o.Model
		}
		if o.SystemMessage != "" {
			patch.SystemMessage = &o.SystemMessage
		}
		if o.UserMessage != "" {
			patch.UserMessage = &o.UserMessage
		}
	}
	if settings.APIKey == "" && apiKey != "" {
		patch.APIKey = &apiKey
	}

	if patch == (session.SettingsPatch{}) {
		return
	}
	store.UpdateSettings(patch)
	logger.Info("Seeded session settings",
		zap.Bool("from_overrides", pristine && o != nil && !o.Empty()),
		zap.Bool("credential", patch.APIKey != nil))
}

func registerModels(catalog *llm.Catalog, o *config.Overrides, logger *logging.Logger) {
	if o == nil {
		return
	}
	for _, m := range o.Models {
		provider, err := llm.ParseProvider(m.Provider)
		if err != nil {
			logger.Warn("Skipping model override", zap.String("id", m.ID), zap.Error(err))
			continue
		}
		name := m.DisplayName
		if name == "" {
			name = m.ID
		}
		catalog.Register(llm.Model{ID: m.ID, Provider: provider, DisplayName: name})
	}
}
