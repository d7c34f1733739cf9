package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

// SearchStore runs hybrid and keyword-only page retrieval over document_pages.
// Keyword relevance is ts_rank over the stored tsvector; semantic relevance is
// cosine similarity against the pgvector embedding column.
type SearchStore struct {
	db *sql.DB
}

func NewSearchStore(db *sql.DB) *SearchStore {
	return &SearchStore{db: db}
}

var _ ports.SearchStore = (*SearchStore)(nil)

func (s *SearchStore) HybridSearch(ctx context.Context, userID string, documentIDs []string, query string, embedding []float32, limit int, keywordWeight, semanticWeight float64) ([]domain.SearchResult, error) {
	vec := pgvector.NewVector(embedding)

	var (
		rows *sql.Rows
		err  error
	)
	if len(documentIDs) > 0 {
		rows, err = s.db.QueryContext(ctx, `
SELECT p.document_id, d.filename, p.page_number, p.content,
	ts_rank(p.content_tsv, websearch_to_tsquery('english', $3)) AS keyword_score,
	1 - (p.embedding <=> $4::vector) AS semantic_score,
	($5 * ts_rank(p.content_tsv, websearch_to_tsquery('english', $3))) +
	($6 * (1 - (p.embedding <=> $4::vector))) AS combined_score
FROM document_pages p
JOIN documents d ON d.id = p.document_id
WHERE p.user_id = $1 AND p.document_id = ANY($2) AND p.embedding IS NOT NULL
ORDER BY combined_score DESC
LIMIT $7
`, userID, documentIDs, query, vec, keywordWeight, semanticWeight, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
SELECT p.document_id, d.filename, p.page_number, p.content,
	ts_rank(p.content_tsv, websearch_to_tsquery('english', $2)) AS keyword_score,
	1 - (p.embedding <=> $3::vector) AS semantic_score,
	($4 * ts_rank(p.content_tsv, websearch_to_tsquery('english', $2))) +
	($5 * (1 - (p.embedding <=> $3::vector))) AS combined_score
FROM document_pages p
JOIN documents d ON d.id = p.document_id
WHERE p.user_id = $1 AND p.embedding IS NOT NULL
ORDER BY combined_score DESC
LIMIT $6
`, userID, query, vec, keywordWeight, semanticWeight, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("hybrid search query: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

func (s *SearchStore) KeywordSearch(ctx context.Context, userID string, documentIDs []string, query string, limit int) ([]domain.SearchResult, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(documentIDs) > 0 {
		rows, err = s.db.QueryContext(ctx, `
SELECT p.document_id, d.filename, p.page_number, p.content,
	ts_rank(p.content_tsv, websearch_to_tsquery('english', $3)) AS keyword_score,
	0::float8 AS semantic_score,
	0::float8 AS combined_score
FROM document_pages p
JOIN documents d ON d.id = p.document_id
WHERE p.user_id = $1 AND p.document_id = ANY($2)
	AND p.content_tsv @@ websearch_to_tsquery('english', $3)
ORDER BY keyword_score DESC
LIMIT $4
`, userID, documentIDs, query, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
SELECT p.document_id, d.filename, p.page_number, p.content,
	ts_rank(p.content_tsv, websearch_to_tsquery('english', $2)) AS keyword_score,
	0::float8 AS semantic_score,
	0::float8 AS combined_score
FROM document_pages p
JOIN documents d ON d.id = p.document_id
WHERE p.user_id = $1
	AND p.content_tsv @@ websearch_to_tsquery('english', $2)
ORDER BY keyword_score DESC
LIMIT $3
`, userID, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("keyword search query: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

func scanSearchResults(rows *sql.Rows) ([]domain.SearchResult, error) {
	results := []domain.SearchResult{}
	for rows.Next() {
		var r domain.SearchResult
		err := rows.Scan(
			&r.DocumentID, &r.DocumentName, &r.PageNumber, &r.Content,
			&r.KeywordScore, &r.SemanticScore, &r.CombinedScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}
