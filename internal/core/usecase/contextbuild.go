package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/studymate/docqa/internal/core/domain"
)

const (
	topKBeforeDedup  = 5
	finalSourceCap   = 3
	contextSeparator = "\n\n---\n\n"
)

// SelectTopResults applies the precision funnel: the first five ranked
// results, deduplicated by page keeping the higher score, sorted by score,
// capped at three. Few high-confidence page-deduplicated chunks ground
// answers better than many noisy ones.
func SelectTopResults(ranked []domain.RankedResult) []domain.RankedResult {
	if len(ranked) > topKBeforeDedup {
		ranked = ranked[:topKBeforeDedup]
	}

	best := make(map[string]domain.RankedResult)
	var order []string
	for _, r := range ranked {
		key := fmt.Sprintf("%s-%d", r.DocumentID, r.PageNumber)
		if existing, ok := best[key]; ok {
			if r.FinalScore > existing.FinalScore {
				best[key] = r
			}
			continue
		}
		best[key] = r
		order = append(order, key)
	}

	deduped := make([]domain.RankedResult, 0, len(order))
	for _, key := range order {
		deduped = append(deduped, best[key])
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].FinalScore > deduped[j].FinalScore
	})

	if len(deduped) > finalSourceCap {
		deduped = deduped[:finalSourceCap]
	}
	return deduped
}

// BuildContext renders selected results into the prompt context block. Each
// chunk is headed by the document/page citation the model is allowed to use.
func BuildContext(selected []domain.RankedResult) string {
	blocks := make([]string, 0, len(selected))
	for _, r := range selected {
		blocks = append(blocks, fmt.Sprintf("[Document: %s, Page: %d]\n%s",
			r.DocumentName, r.PageNumber, strings.TrimSpace(r.Content)))
	}
	return strings.Join(blocks, contextSeparator)
}

// BuildSources projects selected results into citation-ready sources.
func BuildSources(selected []domain.RankedResult) []domain.Source {
	sources := make([]domain.Source, 0, len(selected))
	for _, r := range selected {
		sources = append(sources, domain.Source{
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			Page:         r.PageNumber,
			Relevance:    r.FinalScore,
		})
	}
	return sources
}

// BackfillDocumentNames patches missing document names on selected results
// from batch-fetched metadata.
func BackfillDocumentNames(selected []domain.RankedResult, meta map[string]domain.DocumentMeta) {
	for i := range selected {
		if strings.TrimSpace(selected[i].DocumentName) != "" {
			continue
		}
		if m, ok := meta[selected[i].DocumentID]; ok && m.Name != "" {
			selected[i].DocumentName = m.Name
		}
	}
}
