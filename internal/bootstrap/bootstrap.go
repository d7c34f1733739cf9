package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studymate/docqa/internal/config"
	"github.com/studymate/docqa/internal/core/ports"
	"github.com/studymate/docqa/internal/core/usecase"
	"github.com/studymate/docqa/internal/infrastructure/chunking"
	"github.com/studymate/docqa/internal/infrastructure/embedding"
	"github.com/studymate/docqa/internal/infrastructure/extractor"
	"github.com/studymate/docqa/internal/infrastructure/llm/openaichat"
	natsqueue "github.com/studymate/docqa/internal/infrastructure/queue/nats"
	"github.com/studymate/docqa/internal/infrastructure/rerank/cohere"
	"github.com/studymate/docqa/internal/infrastructure/repository/postgres"
	"github.com/studymate/docqa/internal/infrastructure/resilience"
	"github.com/studymate/docqa/internal/infrastructure/storage/localfs"
	"github.com/studymate/docqa/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Queue   ports.MessageQueue
	Docs    ports.DocumentReader
	History ports.ChatHistoryReader

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.QueryService

	Embedder ports.EmbeddingService

	APIMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	searchStore := postgres.NewSearchStore(db)
	pageStore := postgres.NewPageStore(db)
	chats := postgres.NewChatRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, log, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	generator := openaichat.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, executor)
	embedder := embedding.New(cfg.EmbeddingURL)

	apiMetrics := metrics.NewHTTPServerMetrics("api")

	preprocessor := usecase.NewQueryPreprocessor(generator, log)
	classifier := usecase.NewQueryClassifier(generator, log)
	multiQuery := usecase.NewMultiQueryGenerator(generator, log)
	retriever := usecase.NewHybridRetriever(embedder, searchStore, log)
	guard := usecase.NewHallucinationGuard(generator, log)

	// cohere.New returns a nil *Client without an API key; keep the interface
	// itself nil in that case so the rerank stage skips cleanly.
	rerankStage := usecase.NewRerankStage(nil, log)
	if reranker := cohere.New(cfg.CohereBaseURL, cfg.CohereAPIKey); reranker != nil {
		rerankStage = usecase.NewRerankStage(reranker, log)
	}

	queryUC := usecase.NewQueryOrchestrator(
		preprocessor,
		classifier,
		multiQuery,
		retriever,
		rerankStage,
		guard,
		generator,
		repo,
		chats,
		chats,
		apiMetrics.Pipeline(),
		log,
	)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(
		repo,
		extractor.New(storage),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		pageStore,
	)

	return &App{
		Config: cfg,
		Log:    log,

		Queue:   queue,
		Docs:    repo,
		History: chats,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		Embedder: embedder,

		APIMetrics: apiMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
