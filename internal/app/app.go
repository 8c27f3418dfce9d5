// Package app wires configuration into the repositories, gateway and
// pipeline shared by every binary.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/policy-structurer/internal/async"
	"github.com/joseph-ayodele/policy-structurer/internal/chunker"
	"github.com/joseph-ayodele/policy-structurer/internal/common"
	"github.com/joseph-ayodele/policy-structurer/internal/events"
	"github.com/joseph-ayodele/policy-structurer/internal/export"
	"github.com/joseph-ayodele/policy-structurer/internal/extract"
	"github.com/joseph-ayodele/policy-structurer/internal/ingest"
	"github.com/joseph-ayodele/policy-structurer/internal/llm"
	"github.com/joseph-ayodele/policy-structurer/internal/llm/openai"
	"github.com/joseph-ayodele/policy-structurer/internal/pdftext"
	"github.com/joseph-ayodele/policy-structurer/internal/pipeline"
	"github.com/joseph-ayodele/policy-structurer/internal/repository"
	"github.com/joseph-ayodele/policy-structurer/internal/server"
	"github.com/joseph-ayodele/policy-structurer/internal/storage"
	"github.com/joseph-ayodele/policy-structurer/internal/validate"
)

type App struct {
	Config *common.Config
	DB     *repository.DB

	Documents repository.DocumentRepository
	Chunks    repository.ChunkRepository
	Policies  repository.PolicyRepository
	Jobs      repository.ExtractJobRepository

	Storage   storage.Storage
	Ingestor  *ingest.FSIngestor
	Pipeline  *pipeline.Pipeline
	Processor *pipeline.Processor
	Export    *export.Service
	Publisher events.Publisher

	logger *slog.Logger
}

// ConnectDB opens the configured database, checks it answers and applies
// the embedded schema.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repository.DB, error) {
	db, err := repository.Connect(ctx, repository.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := repository.HealthCheck(ctx, db, cfg.DialTimeout, logger); err != nil {
		repository.Close(db, logger)
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		repository.Close(db, logger)
		return nil, err
	}
	return db, nil
}

// NewGateway builds the OpenAI gateway behind the retrying, rate-limited
// wrapper.
func NewGateway(cfg common.LLMConfig, logger *slog.Logger) llm.Completer {
	client := openai.NewClient(openai.Config{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: int64(cfg.MaxOutputTokens),
		Timeout:         cfg.Timeout,
	}, logger)
	return llm.NewRetryingCompleter(client, llm.RetryConfig{
		MaxRetries:      cfg.MaxRetries,
		TokensPerSecond: cfg.TokensPerSecond,
		BurstTokens:     cfg.BurstTokens,
	}, logger)
}

// New builds the application over an open database. A nil gateway is
// replaced by NewGateway(cfg.LLM).
func New(cfg *common.Config, db *repository.DB, gw llm.Completer, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := storage.NewFS(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if gw == nil {
		gw = NewGateway(cfg.LLM, logger)
	}

	a := &App{
		Config:    cfg,
		DB:        db,
		Documents: repository.NewDocumentRepository(db, logger),
		Chunks:    repository.NewChunkRepository(db, logger),
		Policies:  repository.NewPolicyRepository(db, logger),
		Jobs:      repository.NewExtractJobRepository(db, logger),
		Storage:   st,
		Publisher: events.NewLogPublisher(logger),
		logger:    logger,
	}

	p := cfg.Pipeline
	a.Pipeline = pipeline.New(pipeline.Deps{
		Documents:  a.Documents,
		Chunks:     a.Chunks,
		Policies:   a.Policies,
		Jobs:       a.Jobs,
		Classifier: extract.NewDocumentClassifier(gw, p.ClassifierCharBudget, logger),
		Policy:     extract.NewPolicyExtractor(gw, p.DeclarationsCharBudget, logger),
		Coverage:   extract.NewCoverageExtractorFactory(gw, p.CoverageCharBudget, logger),
		Validator: validate.New(validate.Config{
			ClassificationWeight: p.ClassificationWeight,
			PolicyWeight:         p.PolicyWeight,
			CoverageWeight:       p.CoverageWeight,
			ReviewThreshold:      p.ReviewThreshold,
			ScannedPenalty:       p.ScannedPenalty,
		}),
		Publisher: a.Publisher,
	}, p.CoverageConcurrency, logger)

	text := pipeline.NewTextStage(a.Documents, a.Chunks, st,
		pdftext.NewExtractor(pdftext.Config{ScannedThreshold: p.ScannedThreshold}, logger),
		chunker.New(chunker.Config{TargetTokens: p.TargetTokens, MaxTokens: p.MaxTokens, OverlapTokens: p.OverlapTokens}),
		p.BlockScanned, logger)
	a.Processor = pipeline.NewProcessor(logger, text, a.Pipeline)
	a.Ingestor = ingest.NewFSIngestor(a.Documents, st, logger)
	a.Export = export.NewService(a.Policies, logger)
	return a, nil
}

// NewQueue starts the background worker pool sized by cfg.Queue.
func (a *App) NewQueue() *async.ProcessorQueue {
	q := a.Config.Queue
	return async.NewProcessorQueue(a.Processor, a.logger,
		async.WithWorkers(q.Workers),
		async.WithQueueSize(q.Size),
		async.WithProcessTimeout(q.ProcessTimeout),
	)
}

// Services exposes the app to the transports. queue may be nil.
func (a *App) Services(queue async.Queue) server.Services {
	return server.Services{
		Extractor: a.Pipeline,
		Queue:     queue,
		Policies:  a.Policies,
		Ingestor:  a.Ingestor,
		Export:    a.Export,
		Health: func(ctx context.Context) error {
			return repository.HealthCheck(ctx, a.DB, 0, a.logger)
		},
	}
}

func (a *App) Close() {
	repository.Close(a.DB, a.logger)
}
