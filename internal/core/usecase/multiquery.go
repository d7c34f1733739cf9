package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

const maxAlternativeQueries = 2

// MultiQueryGenerator produces alternative phrasings of a query to raise
// retrieval recall. Failures degrade to the original query alone.
type MultiQueryGenerator struct {
	llm ports.TextGenerator
	log *slog.Logger
}

func NewMultiQueryGenerator(llm ports.TextGenerator, log *slog.Logger) *MultiQueryGenerator {
	return &MultiQueryGenerator{llm: llm, log: log}
}

// GenerateQueries returns 1-3 queries: the original first, then up to two
// generated alternatives in generation order.
func (g *MultiQueryGenerator) GenerateQueries(ctx context.Context, originalQuery string) []string {
	prompt := fmt.Sprintf(`Generate 2 alternative search queries for finding documents about this question.
Each query should use different keywords or focus on a different aspect.
Return ONLY a JSON array of 2 strings, no explanation.

Question: %q

Example for "What is machine learning?":
["definition of machine learning", "machine learning fundamentals explained"]

Your 2 queries:`, originalQuery)

	response, err := g.llm.GenerateJSON(ctx, prompt, domain.GenOptions{
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		g.log.Warn("multi-query generation failed, using original only", "error", err)
		return []string{originalQuery}
	}

	payload, ok := extractJSONArray(response)
	if !ok {
		g.log.Warn("multi-query response had no json array, using original only")
		return []string{originalQuery}
	}

	var alternatives []string
	if err := json.Unmarshal([]byte(payload), &alternatives); err != nil {
		g.log.Warn("multi-query json invalid, using original only", "error", err)
		return []string{originalQuery}
	}

	queries := []string{originalQuery}
	for _, alt := range alternatives {
		alt = strings.TrimSpace(alt)
		if alt == "" || len(queries) > maxAlternativeQueries {
			continue
		}
		queries = append(queries, alt)
	}
	return queries
}

// Leading filler that adds no retrieval signal. Stripped from the search
// string only; the display string keeps the user's wording.
var fillerPrefixes = []string{
	"please",
	"can you",
	"could you",
	"tell me about",
	"what is the",
	"what are the",
	"what is",
	"what are",
	"explain the",
	"explain",
	"describe the",
	"describe",
	"define",
	"give me",
	"how to",
}

// NormalizeQuery strips instructional filler prefixes from a query before it
// is used as a keyword-search string.
func NormalizeQuery(text string) string {
	normalized := strings.TrimSpace(text)
	lower := strings.ToLower(normalized)

	for changed := true; changed; {
		changed = false
		for _, prefix := range fillerPrefixes {
			if strings.HasPrefix(lower, prefix+" ") {
				normalized = strings.TrimSpace(normalized[len(prefix)+1:])
				lower = strings.ToLower(normalized)
				changed = true
				break
			}
		}
	}

	if normalized == "" {
		return strings.TrimSpace(text)
	}
	return strings.TrimSuffix(normalized, "?")
}
