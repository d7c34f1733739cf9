package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/studymate/docqa/internal/core/domain"
)

type retrieveEmbedderFake struct {
	healthy bool
	err     error
}

func (f *retrieveEmbedderFake) Health(context.Context) bool { return f.healthy }
func (f *retrieveEmbedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}
func (f *retrieveEmbedderFake) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

type retrieveStoreFake struct {
	mu sync.Mutex

	empty   bool
	content string

	hybridLimits  []int
	hybridQueries []string

	keywordQuery string
	keywordLimit int
	keywordCalls int
}

func (f *retrieveStoreFake) HybridSearch(_ context.Context, _ string, _ []string, query string, _ []float32, limit int, _, _ float64) ([]domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hybridLimits = append(f.hybridLimits, limit)
	f.hybridQueries = append(f.hybridQueries, query)
	if f.empty {
		return nil, nil
	}
	hit := searchHit("doc", 1, 0.5)
	if f.content != "" {
		hit.Content = f.content
	}
	return []domain.SearchResult{hit}, nil
}

func (f *retrieveStoreFake) KeywordSearch(_ context.Context, _ string, _ []string, query string, limit int) ([]domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywordCalls++
	f.keywordQuery = query
	f.keywordLimit = limit
	return []domain.SearchResult{searchHit("doc", 2, 0.4)}, nil
}

func TestRetrieveSplitsLimitAcrossVariants(t *testing.T) {
	store := &retrieveStoreFake{}
	r := NewHybridRetriever(&retrieveEmbedderFake{healthy: true}, store, testLogger())

	lists, hybrid := r.Retrieve(context.Background(), "u1", nil,
		"what is dns", []string{"what is dns", "dns basics", "domain name system"},
		domain.SearchParams{ResultLimit: 150, KeywordWeight: 0.3, SemanticWeight: 0.7})

	if !hybrid {
		t.Fatalf("expected hybrid search")
	}
	if len(lists) != 3 {
		t.Fatalf("expected 3 variant lists, got %d", len(lists))
	}
	for _, limit := range store.hybridLimits {
		if limit != 50 {
			t.Fatalf("expected per-variant limit 50, got %d", limit)
		}
	}
	if store.keywordCalls != 0 {
		t.Fatalf("keyword fallback must not run")
	}
}

func TestRetrieveKeywordFallbackUsesOriginalQueryAndFullLimit(t *testing.T) {
	store := &retrieveStoreFake{}
	r := NewHybridRetriever(&retrieveEmbedderFake{healthy: false}, store, testLogger())

	lists, hybrid := r.Retrieve(context.Background(), "u1", nil,
		"What is the DNS?", []string{"what is the dns", "dns overview"},
		domain.SearchParams{ResultLimit: 150})

	if hybrid {
		t.Fatalf("expected keyword-only search")
	}
	if store.keywordCalls != 1 {
		t.Fatalf("expected 1 keyword call, got %d", store.keywordCalls)
	}
	if store.keywordQuery != "What is the DNS?" {
		t.Fatalf("fallback must use the original query text, got %q", store.keywordQuery)
	}
	if store.keywordLimit != 150 {
		t.Fatalf("fallback must use full limit, got %d", store.keywordLimit)
	}
	if len(lists) != 1 {
		t.Fatalf("expected single result list, got %d", len(lists))
	}
}

func TestRetrieveEmbedFailureDowngradesToKeyword(t *testing.T) {
	store := &retrieveStoreFake{}
	r := NewHybridRetriever(&retrieveEmbedderFake{healthy: true, err: errors.New("embed down")}, store, testLogger())

	_, hybrid := r.Retrieve(context.Background(), "u1", nil,
		"original", []string{"original"}, domain.SearchParams{ResultLimit: 100})

	if hybrid {
		t.Fatalf("expected keyword-only when all embeddings fail")
	}
	if store.keywordCalls != 1 {
		t.Fatalf("expected keyword fallback, got %d calls", store.keywordCalls)
	}
}

func TestRetrieveSearchesNormalizedText(t *testing.T) {
	store := &retrieveStoreFake{}
	r := NewHybridRetriever(&retrieveEmbedderFake{healthy: true}, store, testLogger())

	r.Retrieve(context.Background(), "u1", nil,
		"What is the transport layer?", []string{"What is the transport layer?"},
		domain.SearchParams{ResultLimit: 100})

	if len(store.hybridQueries) != 1 || store.hybridQueries[0] != "transport layer" {
		t.Fatalf("expected normalized search text, got %v", store.hybridQueries)
	}
}
