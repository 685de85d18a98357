// Package runtime builds the process-wide service graph from configuration.
// Everything is constructed once at startup and shared by all requests.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/policyqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/fetch"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/memory"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/pdf"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/postgres"
	"github.com/custodia-labs/policyqa/internal/adapters/driven/redis"
	"github.com/custodia-labs/policyqa/internal/config"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/core/ports/driving"
	"github.com/custodia-labs/policyqa/internal/core/services"
)

// Services holds the constructed adapters and core services
type Services struct {
	cfg    *config.Config
	logger *slog.Logger

	Embedder  driven.EmbeddingService
	Store     driven.VectorStore
	Lock      driven.DistributedLock
	Fetcher   driven.DocumentFetcher
	Extractor driven.PDFExtractor

	Ingestion *services.IngestionService
	Query     *services.QueryService
	Run       driving.RunService

	db          *postgres.DB
	redisClient *goredis.Client
}

// Option replaces an adapter chosen from configuration
type Option func(*Services)

// WithEmbedder uses svc instead of the configured provider
func WithEmbedder(svc driven.EmbeddingService) Option {
	return func(s *Services) { s.Embedder = svc }
}

// WithFetcher uses f instead of the HTTP fetcher
func WithFetcher(f driven.DocumentFetcher) Option {
	return func(s *Services) { s.Fetcher = f }
}

// WithExtractor uses e instead of the configured PDF extractor
func WithExtractor(e driven.PDFExtractor) Option {
	return func(s *Services) { s.Extractor = e }
}

// New connects every backend named in cfg and wires the core services.
// On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *Services, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Services{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if s.Embedder == nil {
		s.Embedder, err = ai.NewFactory().CreateEmbeddingService(cfg.EmbeddingSettings())
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding service: %w", err)
		}
	}

	if s.Fetcher == nil {
		s.Fetcher = fetch.NewHTTPFetcher(cfg.Timeouts.Fetch, 0)
	}

	if s.Extractor == nil {
		switch cfg.PDF.Extractor {
		case config.PDFService:
			s.Extractor = pdf.NewServiceExtractor(cfg.PDF.ServiceURL, 0)
		default:
			s.Extractor = pdf.NewNativeExtractor()
		}
	}

	if err = s.openStore(ctx); err != nil {
		return nil, err
	}
	if err = s.openLock(ctx); err != nil {
		return nil, err
	}

	timeouts := services.Timeouts{
		Fetch:    cfg.Timeouts.Fetch,
		Embed:    cfg.Timeouts.Embed,
		Store:    cfg.Timeouts.Store,
		LockWait: cfg.Timeouts.LockWait,
		LockTTL:  cfg.Timeouts.LockTTL,
	}

	s.Ingestion = services.NewIngestionService(services.IngestionConfig{
		Fetcher:   s.Fetcher,
		Extractor: s.Extractor,
		Embedder:  s.Embedder,
		Store:     s.Store,
		Lock:      s.Lock,
		Settings:  cfg.Pipeline,
		Timeouts:  timeouts,
		Logger:    logger,
	})
	s.Query = services.NewQueryService(services.QueryConfig{
		Embedder: s.Embedder,
		Store:    s.Store,
		Settings: cfg.Pipeline,
		Timeouts: timeouts,
		Logger:   logger,
	})
	s.Run = services.NewRunService(s.Ingestion, s.Query, logger)

	logger.Info("services configured",
		"embedding_provider", cfg.Embedding.Provider,
		"embedding_model", s.Embedder.Model(),
		"dimension", s.Embedder.Dimensions(),
		"vector_store", cfg.Store.Type,
		"lock", cfg.LockBackend(),
		"pdf_extractor", s.Extractor.Name(),
	)
	return s, nil
}

// postgresDB opens the shared pool on first use
func (s *Services) postgresDB(ctx context.Context) (*postgres.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := postgres.Connect(ctx, postgres.DefaultConfig(s.cfg.Store.DatabaseURL))
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

func (s *Services) openStore(ctx context.Context) error {
	switch s.cfg.Store.Type {
	case config.StorePostgres:
		db, err := s.postgresDB(ctx)
		if err != nil {
			return err
		}
		s.Store = postgres.NewVectorStore(db, s.cfg.Store.Table)
	default:
		s.Store = memory.NewVectorStore()
	}
	return nil
}

func (s *Services) openLock(ctx context.Context) error {
	switch s.cfg.LockBackend() {
	case config.LockRedis:
		client, err := redis.Connect(ctx, s.cfg.Lock.RedisURL)
		if err != nil {
			return err
		}
		s.redisClient = client
		s.Lock = redis.NewLock(client, redis.DefaultKeyPrefix)
	case config.LockPostgres:
		db, err := s.postgresDB(ctx)
		if err != nil {
			return err
		}
		s.Lock = postgres.NewAdvisoryLock(db)
	default:
		s.Lock = memory.NewLock()
	}
	return nil
}

// Start creates the vector index for the embedder's dimension and waits
// until the store reports it ready. Run before serving any request.
func (s *Services) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeouts.Store*4)
	defer cancel()

	if err := s.Store.EnsureIndex(ctx, s.Embedder.Dimensions()); err != nil {
		return fmt.Errorf("failed to prepare vector index: %w", err)
	}
	return nil
}

// Checks returns the readiness checks by dependency name
func (s *Services) Checks() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"vector_store": s.Store.HealthCheck,
		"lock":         s.Lock.Ping,
	}
}

// Close releases every backend. Safe to call on a partially built value.
func (s *Services) Close() error {
	var errs []error
	if s.Embedder != nil {
		errs = append(errs, s.Embedder.Close())
	}
	if s.redisClient != nil {
		errs = append(errs, s.redisClient.Close())
	}
	// the postgres store and lock share the pool closed here
	if s.db != nil {
		errs = append(errs, s.db.Close())
	} else if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return errors.Join(errs...)
}
