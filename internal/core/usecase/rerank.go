package usecase

import (
	"context"
	"log/slog"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

const (
	rerankMinResults = 5
	rerankTopK       = 10
)

// RerankStage applies the optional external reranker. A nil reranker and a
// small candidate set are both expected states; in either case the fused
// order passes through unchanged apart from truncation.
type RerankStage struct {
	reranker ports.Reranker
	log      *slog.Logger
}

func NewRerankStage(reranker ports.Reranker, log *slog.Logger) *RerankStage {
	return &RerankStage{reranker: reranker, log: log}
}

// Apply reranks when there are more than five candidates and a reranker is
// configured. The bool reports whether the external reranker was used.
func (s *RerankStage) Apply(ctx context.Context, query string, fused []domain.FusedResult) ([]domain.RankedResult, bool) {
	if s.reranker == nil || len(fused) <= rerankMinResults {
		return passthroughRanked(fused, rerankTopK), false
	}

	ranked, err := s.reranker.Rerank(ctx, query, fused, rerankTopK)
	if err != nil {
		s.log.Warn("rerank failed, keeping fused order", "error", err)
		return passthroughRanked(fused, rerankTopK), false
	}
	return ranked, true
}

func passthroughRanked(fused []domain.FusedResult, limit int) []domain.RankedResult {
	if len(fused) > limit {
		fused = fused[:limit]
	}
	ranked := make([]domain.RankedResult, len(fused))
	for i, f := range fused {
		ranked[i] = domain.RankedResult{FusedResult: f, FinalScore: f.CombinedScore}
	}
	return ranked
}
