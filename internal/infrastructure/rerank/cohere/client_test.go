package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studymate/docqa/internal/core/domain"
)

func fused(content string, score float64) domain.FusedResult {
	return domain.FusedResult{
		SearchResult: domain.SearchResult{DocumentID: "d", PageNumber: 1, Content: content, CombinedScore: score},
		QueryMatches: 1,
	}
}

func TestNewReturnsNilWithoutAPIKey(t *testing.T) {
	if client := New("", "  "); client != nil {
		t.Fatalf("expected nil client without api key")
	}
}

func TestRerankMapsScoresBack(t *testing.T) {
	var captured rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"results":[{"index":1,"relevance_score":0.92},{"index":0,"relevance_score":0.41}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "key")
	ranked, err := client.Rerank(context.Background(), "query", []domain.FusedResult{
		fused("first", 0.5), fused("second", 0.4),
	}, 10)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}

	if captured.Model != rerankModel || captured.TopN != 10 || len(captured.Documents) != 2 {
		t.Fatalf("unexpected request %+v", captured)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked, got %d", len(ranked))
	}
	if ranked[0].Content != "second" || ranked[0].FinalScore != 0.92 {
		t.Fatalf("expected reranked order with cohere scores, got %+v", ranked[0])
	}
}

func TestRerankRejectsOutOfRangeIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"index":5,"relevance_score":0.9}]}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, "key").Rerank(context.Background(), "q", []domain.FusedResult{fused("a", 0.1)}, 10); err == nil {
		t.Fatalf("expected error for out-of-range index")
	}
}

func TestRerankPropagatesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api token", http.StatusUnauthorized)
	}))
	defer server.Close()

	if _, err := New(server.URL, "key").Rerank(context.Background(), "q", []domain.FusedResult{fused("a", 0.1)}, 10); err == nil {
		t.Fatalf("expected error")
	}
}
