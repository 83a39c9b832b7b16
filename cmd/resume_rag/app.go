package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/ask"
	"github.com/jonathan/resume-rag/internal/blob"
	"github.com/jonathan/resume-rag/internal/config"
	"github.com/jonathan/resume-rag/internal/db"
	"github.com/jonathan/resume-rag/internal/history"
	"github.com/jonathan/resume-rag/internal/idempotency"
	"github.com/jonathan/resume-rag/internal/index"
	"github.com/jonathan/resume-rag/internal/llm"
	"github.com/jonathan/resume-rag/internal/logger"
	"github.com/jonathan/resume-rag/internal/matching"
	"github.com/jonathan/resume-rag/internal/resumes"
	"github.com/jonathan/resume-rag/internal/server"
	"github.com/jonathan/resume-rag/internal/skills"
	"github.com/jonathan/resume-rag/internal/store"
)

// setup loads the configuration and builds the logger shared by every
// command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// application holds the wired services for one process.
type application struct {
	cfg      *config.Config
	logger   *zap.Logger
	taxonomy *skills.Taxonomy

	docs    store.DocumentStore
	jobs    store.JobStore
	users   store.UserStore
	history history.Log

	index   *index.Index
	resumes *resumes.Service
	matcher *matching.Matcher
	ask     *ask.Engine

	closers []func()
}

// newApplication wires storage and services from cfg. PostgreSQL is used
// when a database URL is set, otherwise everything lives in memory.
func newApplication(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *application, err error) {
	a := &application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.taxonomy, err = loadTaxonomy(cfg.SkillsFile); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)
		if err := database.Migrate(ctx); err != nil {
			return nil, err
		}
		a.docs, a.jobs, a.users, a.history = database, database, database, database
		log.Info("using postgres storage")
	} else {
		mem := store.NewMemory()
		a.docs, a.jobs, a.users, a.history = mem, mem, mem, history.NewMemory()
		log.Warn("DATABASE_URL not set, data is kept in memory only")
	}

	blobs, err := newBlobStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	guard, err := a.newGuard(ctx)
	if err != nil {
		return nil, err
	}

	extractor, err := a.newExtractor(ctx)
	if err != nil {
		return nil, err
	}

	a.index = index.New(a.taxonomy, index.DefaultWeights())
	a.resumes = resumes.New(a.docs, blobs, a.index, extractor, a.taxonomy, log,
		resumes.WithIdempotency(guard),
		resumes.WithSnippetWindow(cfg.SnippetWindow),
	)
	a.matcher, err = matching.New(a.jobs, a.index, a.taxonomy, log,
		matching.WithWeights(cfg.MatchWeights),
		matching.WithSnippetWindow(cfg.SnippetWindow),
	)
	if err != nil {
		return nil, err
	}
	a.ask = ask.New(a.index, a.history, a.taxonomy, cfg.SnippetWindow, log)

	if _, err := a.resumes.Rebuild(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func loadTaxonomy(path string) (*skills.Taxonomy, error) {
	if path == "" {
		return skills.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skills file: %w", err)
	}
	t, err := skills.ParseTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse skills file %s: %w", path, err)
	}
	return t, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (blob.Store, error) {
	if cfg.MinIO != nil {
		return blob.NewMinIO(ctx, *cfg.MinIO, log)
	}
	return blob.NewLocal(cfg.BlobDir)
}

func (a *application) newGuard(ctx context.Context) (*idempotency.Guard, error) {
	if a.cfg.RedisAddr == "" {
		return idempotency.NewGuard(idempotency.NewMemory(), idempotency.DefaultTTL, a.logger), nil
	}
	rdb, err := idempotency.NewRedis(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return idempotency.NewGuard(rdb, idempotency.DefaultTTL, a.logger), nil
}

// newExtractor returns the dictionary extractor, enriched by Gemini when an
// API key is configured.
func (a *application) newExtractor(ctx context.Context) (skills.Extractor, error) {
	dict := skills.NewDictionaryExtractor(a.taxonomy)
	if a.cfg.GeminiAPIKey == "" {
		return dict, nil
	}

	llmConfig := llm.DefaultConfig()
	if a.cfg.GeminiModel != "" {
		llmConfig = llmConfig.WithModel(llm.TierLite, a.cfg.GeminiModel)
	}
	client, err := llm.NewGeminiClient(ctx, llmConfig, a.cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.logger.Info("LLM skill extraction enabled", zap.String("model", llmConfig.GetModel(llm.TierLite)))
	return skills.NewCombinedExtractor(a.logger, a.taxonomy, dict, skills.NewLLMExtractor(client, a.taxonomy)), nil
}

// userService returns the account service backed by the configured store.
func (a *application) userService() *server.UserService {
	return server.NewUserService(a.users, a.cfg.Password)
}

// Close releases connections in reverse order of creation.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
