package ports

import (
	"context"
	"io"

	"github.com/studymate/docqa/internal/core/domain"
)

// QueryService is the inbound contract for the question-answering pipeline.
type QueryService interface {
	AnswerQuery(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, userID, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// ChatHistoryReader lists previously answered queries for a user.
type ChatHistoryReader interface {
	ListChats(ctx context.Context, userID string, limit int) ([]domain.ChatRecord, error)
}
