package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

// embeddingDims matches the vector size produced by the embedding service.
const embeddingDims = 384

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var (
	_ ports.DocumentRepository = (*DocumentRepository)(nil)
	_ ports.MetadataStore      = (*DocumentRepository)(nil)
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS document_pages (
	id BIGSERIAL PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	page_number INTEGER NOT NULL,
	content TEXT NOT NULL,
	content_tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
	embedding VECTOR(%d)
);

CREATE INDEX IF NOT EXISTS idx_document_pages_doc ON document_pages(document_id);
CREATE INDEX IF NOT EXISTS idx_document_pages_user ON document_pages(user_id);
CREATE INDEX IF NOT EXISTS idx_document_pages_tsv ON document_pages USING GIN(content_tsv);

CREATE TABLE IF NOT EXISTS chats (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	query TEXT NOT NULL,
	answer TEXT NOT NULL,
	sources JSONB NOT NULL DEFAULT '[]'::jsonb,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_user_created ON chats(user_id, created_at DESC);
`, embeddingDims)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, user_id, filename, mime_type, storage_path, page_count, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		doc.ID, doc.UserID, doc.Filename, doc.MimeType, doc.StoragePath,
		doc.PageCount, string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, filename, mime_type, storage_path, page_count, status, error_message, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var status string
	err := row.Scan(
		&doc.ID, &doc.UserID, &doc.Filename, &doc.MimeType, &doc.StoragePath,
		&doc.PageCount, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "fetch document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRowAffected(res, "update document status", id)
}

func (r *DocumentRepository) SetPageCount(ctx context.Context, id string, pages int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET page_count = $2, updated_at = $3
WHERE id = $1
`, id, pages, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update page count: %w", err)
	}
	return requireRowAffected(res, "update page count", id)
}

func requireRowAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}

// GetMetadata batch-resolves document names and page counts for citation
// validation and prompt construction.
func (r *DocumentRepository) GetMetadata(ctx context.Context, documentIDs []string) (map[string]domain.DocumentMeta, error) {
	if len(documentIDs) == 0 {
		return map[string]domain.DocumentMeta{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, page_count
FROM documents
WHERE id = ANY($1)
`, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("query document metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]domain.DocumentMeta, len(documentIDs))
	for rows.Next() {
		var m domain.DocumentMeta
		if err := rows.Scan(&m.ID, &m.Name, &m.TotalPages); err != nil {
			return nil, fmt.Errorf("scan document metadata: %w", err)
		}
		meta[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document metadata: %w", err)
	}
	return meta, nil
}
