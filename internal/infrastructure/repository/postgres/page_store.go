package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

type PageStore struct {
	db *sql.DB
}

func NewPageStore(db *sql.DB) *PageStore {
	return &PageStore{db: db}
}

var _ ports.PageStore = (*PageStore)(nil)

// IndexPages replaces the indexed chunks for a document. Reprocessing the same
// document is idempotent because prior chunks are dropped in the same tx.
func (s *PageStore) IndexPages(ctx context.Context, doc *domain.Document, pages []domain.Page, vectors [][]float32) error {
	if len(pages) != len(vectors) {
		return fmt.Errorf("index pages: %d pages but %d vectors", len(pages), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_pages WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear document pages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO document_pages (document_id, user_id, page_number, content, embedding)
VALUES ($1, $2, $3, $4, $5)
`)
	if err != nil {
		return fmt.Errorf("prepare page insert: %w", err)
	}
	defer stmt.Close()

	for i, page := range pages {
		vec := pgvector.NewVector(vectors[i])
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.UserID, page.PageNumber, page.Content, vec); err != nil {
			return fmt.Errorf("insert page %d: %w", page.PageNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}
