package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

// ProcessDocumentUseCase turns an uploaded document into searchable page
// chunks: extract per-page text, split into chunks, embed, index.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.EmbeddingService
	pages     ports.PageStore
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.EmbeddingService,
	pages ports.PageStore,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		pages:     pages,
	}
}

var _ ports.DocumentProcessor = (*ProcessDocumentUseCase)(nil)

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	doc, pageCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetPageCount(ctx, doc.ID, pageCount); err != nil {
		return fmt.Errorf("set page count: %w", err)
	}
	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (*domain.Document, int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch document by id: %w", err)
	}

	pages, err := uc.extractPages(ctx, doc)
	if err != nil {
		return nil, 0, err
	}
	pageCount := lastPageNumber(pages)

	chunks := uc.chunkPages(pages)
	if len(chunks) == 0 {
		return nil, 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedChunks(ctx, chunks)
	if err != nil {
		return nil, 0, err
	}

	if err := uc.pages.IndexPages(ctx, doc, chunks, vectors); err != nil {
		return nil, 0, fmt.Errorf("index pages: %w", err)
	}
	return doc, pageCount, nil
}

func (uc *ProcessDocumentUseCase) extractPages(ctx context.Context, doc *domain.Document) ([]domain.Page, error) {
	pages, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	nonEmpty := pages[:0]
	for _, p := range pages {
		if strings.TrimSpace(p.Content) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("no extractable text"))
	}
	return nonEmpty, nil
}

// chunkPages splits each page's text, keeping the page number on every chunk
// so search hits cite real pages.
func (uc *ProcessDocumentUseCase) chunkPages(pages []domain.Page) []domain.Page {
	var chunks []domain.Page
	for _, page := range pages {
		for _, piece := range uc.chunker.Split(page.Content) {
			chunks = append(chunks, domain.Page{PageNumber: page.PageNumber, Content: piece})
		}
	}
	return chunks
}

func (uc *ProcessDocumentUseCase) embedChunks(ctx context.Context, chunks []domain.Page) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func lastPageNumber(pages []domain.Page) int {
	max := 0
	for _, p := range pages {
		if p.PageNumber > max {
			max = p.PageNumber
		}
	}
	return max
}
