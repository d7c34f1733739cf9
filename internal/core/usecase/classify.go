package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

const classificationCacheCapacity = 1000

// QueryClassifier determines question type/intent/complexity. The primary
// path is an LLM call with a fixed JSON schema; any failure falls back to a
// deterministic pattern classifier so classification itself never fails.
type QueryClassifier struct {
	llm   ports.TextGenerator
	cache *boundedCache[domain.QueryClassification]
	log   *slog.Logger
}

func NewQueryClassifier(llm ports.TextGenerator, log *slog.Logger) *QueryClassifier {
	return &QueryClassifier{
		llm:   llm,
		cache: newBoundedCache[domain.QueryClassification](classificationCacheCapacity),
		log:   log,
	}
}

func (c *QueryClassifier) Classify(ctx context.Context, query string) domain.QueryClassification {
	key := cacheKey(query)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	response, err := c.llm.GenerateJSON(ctx, buildClassificationPrompt(query), domain.GenOptions{
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		c.log.Warn("query classification failed, using fallback", "error", err)
		return FallbackClassification(query)
	}

	payload, ok := extractJSONObject(response)
	if !ok {
		c.log.Warn("classification response had no json, using fallback")
		return FallbackClassification(query)
	}

	var cls domain.QueryClassification
	if err := json.Unmarshal([]byte(payload), &cls); err != nil {
		c.log.Warn("classification json invalid, using fallback", "error", err)
		return FallbackClassification(query)
	}
	if cls.Type == "" || cls.Intent == "" {
		c.log.Warn("classification missing required fields, using fallback")
		return FallbackClassification(query)
	}
	if cls.KeyConcepts == nil {
		cls.KeyConcepts = []string{}
	}

	c.cache.Put(key, cls)
	return cls
}

func buildClassificationPrompt(query string) string {
	return fmt.Sprintf(`Analyze this query and return ONLY JSON (no explanation):

Query: %q

Return this exact JSON structure:
{
  "type": "factual|conceptual|procedural|comparative|technical|medical|academic|creative|data_analysis|troubleshooting|list_based|definition|conversational|general",
  "intent": "learn|solve|compare|create|analyze|troubleshoot|chat",
  "domain": "computer_science|medicine|math|business|engineering|general",
  "complexity": "simple|moderate|complex",
  "expectedLength": "brief|detailed|comprehensive",
  "keyConcepts": ["concept1", "concept2"],
  "searchStrategy": "keyword_heavy|semantic_heavy|balanced|none",
  "requiresMultipleSources": true|false,
  "hasTechnicalTerms": true|false,
  "isAcademic": true|false
}`, query)
}

// fallbackRule pairs a pattern with the classification it implies. Rules are
// evaluated in order, first match wins.
type fallbackRule struct {
	re              *regexp.Regexp
	questionType    domain.QuestionType
	strategy        string
	multipleSources bool
}

var fallbackRules = []fallbackRule{
	{regexp.MustCompile(`^(hi|hello|hey|greetings|morning|afternoon|evening|thanks|thank you|who are you|what can you do)`), domain.QuestionConversational, domain.StrategyNone, false},
	{regexp.MustCompile(`^(what is|define|meaning of|what does.*mean)`), domain.QuestionDefinition, domain.StrategyKeywordHeavy, false},
	{regexp.MustCompile(`^(how to|steps to|guide|tutorial|procedure)`), domain.QuestionProcedural, domain.StrategyBalanced, false},
	{regexp.MustCompile(`(difference|compare|vs|versus|contrast)`), domain.QuestionComparative, domain.StrategySemanticHeavy, true},
	{regexp.MustCompile(`(explain|concept|theory|principle|understand)`), domain.QuestionConceptual, domain.StrategySemanticHeavy, false},
	{regexp.MustCompile(`(error|fix|debug|issue|problem|not working)`), domain.QuestionTroubleshooting, domain.StrategyKeywordHeavy, false},
	{regexp.MustCompile(`(code|function|program|algorithm|syntax)`), domain.QuestionTechnical, domain.StrategyKeywordHeavy, false},
	{regexp.MustCompile(`(list|enumerate|give me \d+|top \d+)`), domain.QuestionListBased, domain.StrategyBalanced, true},
	{regexp.MustCompile(`(health|medical|disease|symptom|treatment)`), domain.QuestionMedical, domain.StrategySemanticHeavy, false},
}

var academicRe = regexp.MustCompile(`(marks|exam|test|assignment|study|subject)`)

// FallbackClassification is the deterministic classifier used when the LLM
// path fails. Same input, same output.
func FallbackClassification(query string) domain.QueryClassification {
	lower := strings.ToLower(query)

	questionType := domain.QuestionGeneral
	strategy := domain.StrategyBalanced
	multipleSources := false
	for _, rule := range fallbackRules {
		if rule.re.MatchString(lower) {
			questionType = rule.questionType
			strategy = rule.strategy
			multipleSources = rule.multipleSources
			break
		}
	}

	// Character counts, not bytes; multibyte scripts must hit the same
	// thresholds as English.
	complexity := "moderate"
	if queryLen := utf8.RuneCountInString(lower); queryLen < 20 {
		complexity = "simple"
	} else if queryLen > 100 {
		complexity = "complex"
	}

	expectedLength := "detailed"
	if complexity == "simple" {
		expectedLength = "brief"
	}

	intent := "learn"
	if questionType == domain.QuestionTroubleshooting {
		intent = "solve"
	}

	return domain.QueryClassification{
		Type:                    questionType,
		Intent:                  intent,
		Domain:                  "general",
		Complexity:              complexity,
		ExpectedLength:          expectedLength,
		KeyConcepts:             []string{},
		SearchStrategy:          strategy,
		RequiresMultipleSources: multipleSources,
		HasTechnicalTerms:       questionType == domain.QuestionTechnical,
		IsAcademic:              academicRe.MatchString(lower),
	}
}

// SearchParamsFor derives retrieval tuning from a classification. The rule
// application order is a behavioral contract: later rules overwrite earlier
// ones (technical overrides the factual threshold, length overrides the
// complexity token budget).
func SearchParamsFor(cls domain.QueryClassification) domain.SearchParams {
	params := domain.SearchParams{
		ResultLimit:       150,
		MinRelevanceScore: 0.10,
		KeywordWeight:     0.3,
		SemanticWeight:    0.7,
		Temperature:       0.7,
		MaxTokens:         4096,
	}

	switch cls.Complexity {
	case "complex":
		params.ResultLimit = 200
		params.MaxTokens = 8192
	case "simple":
		params.ResultLimit = 100
		params.MaxTokens = 2048
	}

	if cls.Type == domain.QuestionFactual || cls.Type == domain.QuestionDefinition {
		params.MinRelevanceScore = 0.15
		params.KeywordWeight = 0.5
		params.SemanticWeight = 0.5
	}

	switch cls.SearchStrategy {
	case domain.StrategyKeywordHeavy:
		params.KeywordWeight = 0.6
		params.SemanticWeight = 0.4
	case domain.StrategySemanticHeavy:
		params.KeywordWeight = 0.2
		params.SemanticWeight = 0.8
	}

	if cls.Type == domain.QuestionTechnical || cls.Type == domain.QuestionTroubleshooting {
		params.KeywordWeight = 0.7
		params.SemanticWeight = 0.3
		params.MinRelevanceScore = 0.05
	}

	if cls.Type == domain.QuestionConceptual || cls.Type == domain.QuestionComparative {
		params.KeywordWeight = 0.2
		params.SemanticWeight = 0.8
		params.MinRelevanceScore = 0.10
	}

	if cls.Type == domain.QuestionCreative {
		params.Temperature = 0.9
	} else if cls.Type == domain.QuestionTechnical || cls.Type == domain.QuestionFactual {
		params.Temperature = 0.5
	}

	if cls.ExpectedLength == "comprehensive" || cls.IsAcademic {
		params.MaxTokens = 8192
	} else if cls.ExpectedLength == "brief" {
		params.MaxTokens = 2048
	}

	return params
}
