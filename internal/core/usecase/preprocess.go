package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

const (
	preprocessMinQueryLen   = 5
	preprocessCacheCapacity = 500
	preprocessMaxTerms      = 5
)

// QueryPreprocessor fixes spelling/grammar and expands short queries into
// more-searchable terms. It never returns an error: any LLM or parse failure
// degrades to an identity result.
type QueryPreprocessor struct {
	llm   ports.TextGenerator
	cache *boundedCache[domain.Preprocessed]
	log   *slog.Logger
}

func NewQueryPreprocessor(llm ports.TextGenerator, log *slog.Logger) *QueryPreprocessor {
	return &QueryPreprocessor{
		llm:   llm,
		cache: newBoundedCache[domain.Preprocessed](preprocessCacheCapacity),
		log:   log,
	}
}

func (p *QueryPreprocessor) Preprocess(ctx context.Context, rawQuery string) domain.Preprocessed {
	if utf8.RuneCountInString(strings.TrimSpace(rawQuery)) < preprocessMinQueryLen {
		return identityPreprocessed(rawQuery)
	}

	key := cacheKey(rawQuery)
	if cached, ok := p.cache.Get(key); ok {
		return cached
	}

	response, err := p.llm.GenerateJSON(ctx, buildPreprocessPrompt(rawQuery), domain.GenOptions{
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		p.log.Warn("query preprocessing failed, using original", "error", err)
		return identityPreprocessed(rawQuery)
	}

	payload, ok := extractJSONObject(response)
	if !ok {
		p.log.Warn("query preprocessing returned no json, using original")
		return identityPreprocessed(rawQuery)
	}

	var processed domain.Preprocessed
	if err := json.Unmarshal([]byte(payload), &processed); err != nil {
		p.log.Warn("query preprocessing json invalid, using original", "error", err)
		return identityPreprocessed(rawQuery)
	}
	if strings.TrimSpace(processed.Corrected) == "" {
		processed.Corrected = rawQuery
	}
	processed.Original = rawQuery
	if processed.ExpandedTerms == nil {
		processed.ExpandedTerms = []string{}
	}

	p.cache.Put(key, processed)
	return processed
}

func identityPreprocessed(rawQuery string) domain.Preprocessed {
	return domain.Preprocessed{
		Original:           rawQuery,
		Corrected:          rawQuery,
		ExpandedTerms:      []string{},
		Intent:             "unclear",
		NeedsPreprocessing: false,
	}
}

// BuildEnhancedQuery concatenates the corrected query, all key phrases and up
// to five expanded terms into the string handed to classification and search.
func BuildEnhancedQuery(p domain.Preprocessed) string {
	parts := []string{p.Corrected}
	if len(p.KeyPhrases) > 0 {
		parts = append(parts, strings.Join(p.KeyPhrases, " "))
	}
	if len(p.ExpandedTerms) > 0 {
		terms := p.ExpandedTerms
		if len(terms) > preprocessMaxTerms {
			terms = terms[:preprocessMaxTerms]
		}
		parts = append(parts, strings.Join(terms, " "))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func buildPreprocessPrompt(rawQuery string) string {
	return fmt.Sprintf(`Fix this query and expand search terms. Return ONLY JSON:

Raw query: %q

Tasks:
1. Fix spelling/grammar
2. Extract key search terms
3. Identify synonyms/related terms
4. Clarify intent

Return this JSON:
{
  "corrected": "fixed query",
  "expandedTerms": ["term1", "synonym1", "related1"],
  "intent": "what user wants to know",
  "keyPhrases": ["key phrase 1", "key phrase 2"],
  "needsPreprocessing": true/false
}

Be concise. Only fix obvious errors.`, rawQuery)
}
