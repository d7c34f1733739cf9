package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/studymate/docqa/internal/core/domain"
)

type rerankerFake struct {
	topK   int
	err    error
	called bool
}

func (f *rerankerFake) Rerank(_ context.Context, _ string, results []domain.FusedResult, topK int) ([]domain.RankedResult, error) {
	f.called = true
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	// Reverse order with synthetic scores, easy to assert against.
	ranked := make([]domain.RankedResult, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		ranked = append(ranked, domain.RankedResult{FusedResult: results[i], FinalScore: float64(len(results) - i)})
	}
	return ranked, nil
}

func fusedSet(n int) []domain.FusedResult {
	out := make([]domain.FusedResult, n)
	for i := range out {
		out[i] = domain.FusedResult{
			SearchResult: searchHit("doc", i+1, 1.0-float64(i)*0.1),
			QueryMatches: 1,
		}
	}
	return out
}

func TestRerankSkippedForSmallSets(t *testing.T) {
	reranker := &rerankerFake{}
	stage := NewRerankStage(reranker, testLogger())

	ranked, used := stage.Apply(context.Background(), "q", fusedSet(5))
	if used || reranker.called {
		t.Fatalf("reranker must not run on <=5 results")
	}
	if len(ranked) != 5 {
		t.Fatalf("expected passthrough of 5, got %d", len(ranked))
	}
	if ranked[0].FinalScore != ranked[0].CombinedScore {
		t.Fatalf("passthrough must copy combined score")
	}
}

func TestRerankUsedAboveThreshold(t *testing.T) {
	reranker := &rerankerFake{}
	stage := NewRerankStage(reranker, testLogger())

	ranked, used := stage.Apply(context.Background(), "q", fusedSet(8))
	if !used {
		t.Fatalf("expected reranker to run")
	}
	if reranker.topK != 10 {
		t.Fatalf("expected topK=10, got %d", reranker.topK)
	}
	if ranked[0].PageNumber != 8 {
		t.Fatalf("expected reranked order, got page %d first", ranked[0].PageNumber)
	}
}

func TestRerankFailureKeepsFusedOrder(t *testing.T) {
	stage := NewRerankStage(&rerankerFake{err: errors.New("cohere down")}, testLogger())

	ranked, used := stage.Apply(context.Background(), "q", fusedSet(12))
	if used {
		t.Fatalf("degraded path must report reranker unused")
	}
	if len(ranked) != 10 {
		t.Fatalf("expected local truncation to 10, got %d", len(ranked))
	}
	if ranked[0].PageNumber != 1 {
		t.Fatalf("expected fused order preserved, got page %d first", ranked[0].PageNumber)
	}
}

func TestRerankNilRerankerPassthrough(t *testing.T) {
	stage := NewRerankStage(nil, testLogger())

	ranked, used := stage.Apply(context.Background(), "q", fusedSet(12))
	if used || len(ranked) != 10 {
		t.Fatalf("expected truncated passthrough, used=%v len=%d", used, len(ranked))
	}
}
