package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

// HybridRetriever fans a query's variants out to the storage collaborator's
// hybrid-search RPC, one call per embedded variant, and falls back to a
// single keyword-only search when no variant could be embedded.
type HybridRetriever struct {
	embedder ports.EmbeddingService
	store    ports.SearchStore
	log      *slog.Logger
}

func NewHybridRetriever(embedder ports.EmbeddingService, store ports.SearchStore, log *slog.Logger) *HybridRetriever {
	return &HybridRetriever{embedder: embedder, store: store, log: log}
}

// Retrieve runs one search per variant and returns the per-variant result
// lists in variant order (original first, generated alternatives after), so
// downstream fusion tie-breaking is reproducible. The bool reports whether
// hybrid (semantic) search was used.
func (r *HybridRetriever) Retrieve(
	ctx context.Context,
	userID string,
	documentIDs []string,
	originalQuery string,
	queries []string,
	params domain.SearchParams,
) ([][]domain.SearchResult, bool) {
	variants := r.embedVariants(ctx, queries)

	embedded := make([]domain.QueryVariant, 0, len(variants))
	for _, v := range variants {
		if len(v.Embedding) > 0 {
			embedded = append(embedded, v)
		}
	}

	if len(embedded) == 0 {
		r.log.Info("no query embeddings available, keyword-only search", "queries", len(queries))
		results, err := r.store.KeywordSearch(ctx, userID, documentIDs, originalQuery, params.ResultLimit)
		if err != nil {
			r.log.Warn("keyword search failed", "error", err)
			return nil, false
		}
		return [][]domain.SearchResult{results}, false
	}

	perVariantLimit := params.ResultLimit / len(embedded)
	if perVariantLimit < 1 {
		perVariantLimit = 1
	}

	lists := make([][]domain.SearchResult, len(embedded))
	var wg sync.WaitGroup
	for i, variant := range embedded {
		wg.Add(1)
		go func(idx int, v domain.QueryVariant) {
			defer wg.Done()
			results, err := r.store.HybridSearch(
				ctx, userID, documentIDs,
				v.NormalizedText, v.Embedding,
				perVariantLimit, params.KeywordWeight, params.SemanticWeight,
			)
			if err != nil {
				r.log.Warn("variant search failed", "query", v.Text, "error", err)
				return
			}
			lists[idx] = results
		}(i, variant)
	}
	wg.Wait()

	out := make([][]domain.SearchResult, 0, len(lists))
	for _, list := range lists {
		if list != nil {
			out = append(out, list)
		}
	}
	return out, true
}

// embedVariants generates embeddings for all variants concurrently. A failed
// or slow variant simply carries no embedding; it never blocks the others.
func (r *HybridRetriever) embedVariants(ctx context.Context, queries []string) []domain.QueryVariant {
	variants := make([]domain.QueryVariant, len(queries))
	for i, q := range queries {
		variants[i] = domain.QueryVariant{
			Text:           q,
			NormalizedText: NormalizeQuery(q),
		}
	}

	if !r.embedder.Health(ctx) {
		r.log.Warn("embedding service unhealthy, skipping semantic search")
		return variants
	}

	var wg sync.WaitGroup
	for i := range variants {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			vector, err := r.embedder.EmbedQuery(ctx, variants[idx].NormalizedText)
			if err != nil {
				r.log.Warn("variant embedding failed", "query", variants[idx].Text, "error", err)
				return
			}
			variants[idx].Embedding = vector
		}(i)
	}
	wg.Wait()

	return variants
}
