package ports

import (
	"context"
	"io"

	"github.com/studymate/docqa/internal/core/domain"
)

// TextGenerator is the LLM collaborator. Generate returns free-form text;
// GenerateJSON asks the provider for a JSON-constrained completion. Both fail
// transiently (retryable, wrapped as domain.ErrTemporary) or fatally.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, history []domain.ConversationTurn, language string, opts domain.GenOptions) (string, error)
	GenerateJSON(ctx context.Context, prompt string, opts domain.GenOptions) (string, error)
}

// EmbeddingService produces query/page vectors. Health reports whether the
// service is reachable; a false report downgrades retrieval to keyword-only.
type EmbeddingService interface {
	Health(ctx context.Context) bool
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SearchStore is the storage collaborator's hybrid-search RPC. An empty
// documentIDs slice routes to the all-user-documents variant.
type SearchStore interface {
	HybridSearch(ctx context.Context, userID string, documentIDs []string, query string, embedding []float32, limit int, keywordWeight, semanticWeight float64) ([]domain.SearchResult, error)
	KeywordSearch(ctx context.Context, userID string, documentIDs []string, query string, limit int) ([]domain.SearchResult, error)
}

// Reranker is the optional second-pass relevance scorer. Absence of
// configuration is expected; callers degrade to the pre-rerank order.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []domain.FusedResult, topK int) ([]domain.RankedResult, error)
}

// MetadataStore batch-resolves document names and page counts.
type MetadataStore interface {
	GetMetadata(ctx context.Context, documentIDs []string) (map[string]domain.DocumentMeta, error)
}

// ConversationMemory supplies recent turns, read-only from the pipeline.
type ConversationMemory interface {
	RecentTurns(ctx context.Context, userID, sessionID string, limit int) ([]domain.ConversationTurn, error)
}

// ChatStore persists answered queries. SaveChat may be called fire-and-forget.
type ChatStore interface {
	SaveChat(ctx context.Context, record domain.ChatRecord) error
	ListChats(ctx context.Context, userID string, limit int) ([]domain.ChatRecord, error)
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetPageCount(ctx context.Context, id string, pages int) error
}

// PageStore indexes extracted page chunks with their embeddings.
type PageStore interface {
	IndexPages(ctx context.Context, doc *domain.Document, pages []domain.Page, vectors [][]float32) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts per-page text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]domain.Page, error)
}

// Chunker splits page text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}
