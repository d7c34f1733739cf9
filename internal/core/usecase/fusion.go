package usecase

import (
	"fmt"
	"sort"

	"github.com/studymate/docqa/internal/core/domain"
)

const multiMatchBoost = 1.3

// MergeMultiQueryResults collapses per-variant result lists into one list
// with at most one entry per (document, page). A page found by N variants
// keeps its first-seen score multiplied by 1.3^(N-1). Ordering favors breadth
// of agreement: queryMatches descending, then score descending.
func MergeMultiQueryResults(lists [][]domain.SearchResult) []domain.FusedResult {
	merged := make(map[string]*domain.FusedResult)
	var order []string

	for _, list := range lists {
		seenInList := make(map[string]bool)
		for _, result := range list {
			key := fmt.Sprintf("%s-%d", result.DocumentID, result.PageNumber)
			if seenInList[key] {
				continue
			}
			seenInList[key] = true

			if existing, ok := merged[key]; ok {
				existing.QueryMatches++
				existing.CombinedScore *= multiMatchBoost
				continue
			}
			merged[key] = &domain.FusedResult{SearchResult: result, QueryMatches: 1}
			order = append(order, key)
		}
	}

	fused := make([]domain.FusedResult, 0, len(order))
	for _, key := range order {
		fused = append(fused, *merged[key])
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].QueryMatches != fused[j].QueryMatches {
			return fused[i].QueryMatches > fused[j].QueryMatches
		}
		return fused[i].CombinedScore > fused[j].CombinedScore
	})
	return fused
}

// FilterByRelevance drops fused results scoring below the threshold.
func FilterByRelevance(fused []domain.FusedResult, minScore float64) []domain.FusedResult {
	kept := make([]domain.FusedResult, 0, len(fused))
	for _, f := range fused {
		if relevanceScore(f) >= minScore {
			kept = append(kept, f)
		}
	}
	return kept
}

// relevanceScore prefers the combined score, falling back to the raw keyword
// rank for keyword-only results.
func relevanceScore(f domain.FusedResult) float64 {
	if f.CombinedScore != 0 {
		return f.CombinedScore
	}
	if f.KeywordScore != 0 {
		return f.KeywordScore
	}
	return 0
}
