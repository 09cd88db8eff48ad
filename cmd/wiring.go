package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/ai/gemini"
	"github.com/overdrive-recruitment/recruit-pilot/internal/contacts"
	"github.com/overdrive-recruitment/recruit-pilot/internal/logger"
	"github.com/overdrive-recruitment/recruit-pilot/internal/lookup"
	"github.com/overdrive-recruitment/recruit-pilot/internal/matching"
	"github.com/overdrive-recruitment/recruit-pilot/internal/outreach"
	"github.com/overdrive-recruitment/recruit-pilot/internal/ratelimit"
	"github.com/overdrive-recruitment/recruit-pilot/internal/secrets"
	"github.com/overdrive-recruitment/recruit-pilot/internal/store"
)

const (
	defaultRateLimitRequests = 50
	defaultRateLimitWindow   = time.Minute
	defaultOutputDir         = "reports"
)

// buildFunnel wires the full outreach funnel from the configuration. The
// returned cleanup releases storage connections and must be called when the
// funnel is no longer needed.
func buildFunnel(ctx context.Context, config *Config, publisher outreach.Publisher, log *zap.Logger) (*outreach.Funnel, func(), error) {
	if config == nil {
		return nil, nil, errors.New("config is required")
	}
	if config.PostingsFile == "" {
		return nil, nil, errors.New("postings-file is required")
	}

	cleanups := make([]func(), 0, 2)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	resolver, err := buildResolver(ctx, config, &cleanups, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	pipeline, err := buildPipeline(ctx, config, &cleanups, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	maxCandidates := 0
	if config.Matching != nil {
		maxCandidates = config.Matching.MaxCandidates
	}

	funnel, err := outreach.NewFunnel(
		&outreach.FunnelConfig{MaxCandidates: maxCandidates},
		&outreach.FunnelDeps{
			Source:    outreach.NewFileSource(config.PostingsFile),
			Resolver:  resolver,
			Pipeline:  pipeline,
			Publisher: publisher,
			Logger:    log,
		},
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return funnel, cleanup, nil
}

func buildResolver(ctx context.Context, config *Config, cleanups *[]func(), log *zap.Logger) (*contacts.Resolver, error) {
	if config.Contacts == nil {
		return nil, errors.New("contacts section is required")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "rapidapi key",
		File: config.Contacts.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set contacts.api-key-file or RAPIDAPI_KEY_FILE)", err)
	}

	maxRequests := defaultRateLimitRequests
	window := defaultRateLimitWindow
	if rl := config.Contacts.RateLimit; rl != nil {
		if rl.MaxRequests > 0 {
			maxRequests = rl.MaxRequests
		}
		if rl.Window > 0 {
			window = rl.Window
		}
	}

	cache, err := buildContactCache(ctx, config.Storage, cleanups, log)
	if err != nil {
		return nil, err
	}

	return contacts.NewResolver(
		&contacts.ResolverConfig{
			RetryNotFoundAfter: config.Contacts.RetryNotFoundAfter,
			BatchWorkers:       config.Contacts.BatchWorkers,
		},
		&contacts.ResolverDeps{
			Cache:    cache,
			Limiter:  ratelimit.New(maxRequests, window, log),
			Provider: lookup.NewClient(apiKey, log),
			Logger:   log,
		},
	)
}

func buildContactCache(ctx context.Context, storage *StorageConfig, cleanups *[]func(), log *zap.Logger) (contacts.Cache, error) {
	if storage != nil && storage.RedisURL != "" {
		cache, err := store.NewRedisCache(ctx, storage.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		*cleanups = append(*cleanups, func() { cache.Close() })
		log.Info("using redis contact cache")
		return cache, nil
	}

	if storage != nil && storage.PostgresURL != "" {
		pg, err := openPostgres(ctx, storage.PostgresURL, cleanups, log)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres contact cache")
		return pg, nil
	}

	log.Warn("no storage configured, contact cache is process-local")
	return contacts.NewMemoryCache(), nil
}

func buildPipeline(ctx context.Context, config *Config, cleanups *[]func(), log *zap.Logger) (*matching.Pipeline, error) {
	if config.AI == nil || config.AI.Gemini == nil {
		return nil, errors.New("ai.gemini section is required")
	}
	if provider := strings.TrimSpace(strings.ToLower(config.AI.Provider)); provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.AI.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	embedder, err := gemini.NewEmbedder(ctx, apiKey, config.AI.Gemini.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("building gemini embedder: %w", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("building gemini generator: %w", err)
	}

	aiLogger := logger.WithAIFields(log, "gemini", generator.Model())
	reranker := gemini.NewReranker(generator, aiLogger, config.AI.Gemini.MaxLogLength)

	index, resumes, err := buildResumeBackend(ctx, config.Storage, cleanups, log)
	if err != nil {
		return nil, err
	}

	threshold, topK := 0, 0
	if config.Matching != nil {
		threshold = config.Matching.Threshold
		topK = config.Matching.TopK
	}

	return matching.NewPipeline(
		&matching.PipelineConfig{MatchThreshold: threshold, TopK: topK},
		&matching.PipelineDeps{
			Embedder: embedder,
			Index:    index,
			Resumes:  resumes,
			Reranker: reranker,
			Logger:   log,
		},
	)
}

func buildResumeBackend(ctx context.Context, storage *StorageConfig, cleanups *[]func(), log *zap.Logger) (matching.Index, matching.ResumeStore, error) {
	if storage != nil && storage.PostgresURL != "" {
		pg, err := openPostgres(ctx, storage.PostgresURL, cleanups, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using postgres resume index")
		return pg, pg, nil
	}

	if storage != nil && storage.ResumesFile != "" {
		fs, err := store.NewFileStore(storage.ResumesFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using file resume index", zap.Int("resumes", fs.Len()))
		return fs, fs, nil
	}

	return nil, nil, errors.New("either storage.postgres-url or storage.resumes-file is required for matching")
}

// openPostgres reuses one pool per invocation when both the contact cache and
// the resume index live in postgres.
var pgStore *store.PostgresStore

func openPostgres(ctx context.Context, databaseURL string, cleanups *[]func(), log *zap.Logger) (*store.PostgresStore, error) {
	if pgStore != nil {
		return pgStore, nil
	}

	pg, err := store.NewPostgresStore(ctx, databaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	pgStore = pg
	*cleanups = append(*cleanups, func() {
		pg.Close()
		pgStore = nil
	})
	return pg, nil
}
