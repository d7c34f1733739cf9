package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

const (
	// Queries at or above this length skip preprocessing; long queries are
	// already searchable and the correction call only adds latency.
	preprocessSkipQueryLen = 100

	historyTurnLimit = 6

	chatPersistTimeout = 10 * time.Second
)

// PipelineMetrics receives counters for the degradation paths the pipeline
// can take. Implementations must be safe for concurrent use.
type PipelineMetrics interface {
	ConversationalQuery()
	KeywordFallback()
	RerankUsed()
	AnswerRegenerated()
}

// NopMetrics discards all pipeline metrics.
type NopMetrics struct{}

func (NopMetrics) ConversationalQuery() {}
func (NopMetrics) KeywordFallback()     {}
func (NopMetrics) RerankUsed()          {}
func (NopMetrics) AnswerRegenerated()   {}

// QueryOrchestrator sequences the full question-answering pipeline:
// preprocess, classify, expand, retrieve, fuse, rerank, generate, validate.
// Conversational queries short-circuit past retrieval entirely.
type QueryOrchestrator struct {
	preprocessor *QueryPreprocessor
	classifier   *QueryClassifier
	multiQuery   *MultiQueryGenerator
	retriever    *HybridRetriever
	rerank       *RerankStage
	guard        *HallucinationGuard
	llm          ports.TextGenerator
	metadata     ports.MetadataStore
	memory       ports.ConversationMemory
	chats        ports.ChatStore
	metrics      PipelineMetrics
	log          *slog.Logger
}

func NewQueryOrchestrator(
	preprocessor *QueryPreprocessor,
	classifier *QueryClassifier,
	multiQuery *MultiQueryGenerator,
	retriever *HybridRetriever,
	rerank *RerankStage,
	guard *HallucinationGuard,
	llm ports.TextGenerator,
	metadata ports.MetadataStore,
	memory ports.ConversationMemory,
	chats ports.ChatStore,
	metrics PipelineMetrics,
	log *slog.Logger,
) *QueryOrchestrator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &QueryOrchestrator{
		preprocessor: preprocessor,
		classifier:   classifier,
		multiQuery:   multiQuery,
		retriever:    retriever,
		rerank:       rerank,
		guard:        guard,
		llm:          llm,
		metadata:     metadata,
		memory:       memory,
		chats:        chats,
		metrics:      metrics,
		log:          log,
	}
}

var _ ports.QueryService = (*QueryOrchestrator)(nil)

func (o *QueryOrchestrator) AnswerQuery(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", errEmptyQuery)
	}

	history := o.recentHistory(ctx, req)

	var preprocessed domain.Preprocessed
	if utf8.RuneCountInString(query) >= preprocessSkipQueryLen {
		preprocessed = identityPreprocessed(query)
	} else {
		preprocessed = o.preprocessor.Preprocess(ctx, query)
	}
	enhanced := BuildEnhancedQuery(preprocessed)

	cls := o.classifier.Classify(ctx, enhanced)
	params := SearchParamsFor(cls)

	if cls.Type == domain.QuestionConversational {
		return o.answerConversational(ctx, req, query, cls, history)
	}

	queries := o.multiQuery.GenerateQueries(ctx, enhanced)
	lists, usedHybrid := o.retriever.Retrieve(ctx, req.UserID, req.DocumentIDs, query, queries, params)
	if !usedHybrid {
		o.metrics.KeywordFallback()
	}

	fused := MergeMultiQueryResults(lists)
	relevant := FilterByRelevance(fused, params.MinRelevanceScore)

	ranked, usedReranker := o.rerank.Apply(ctx, preprocessed.Corrected, relevant)
	if usedReranker {
		o.metrics.RerankUsed()
	}
	selected := SelectTopResults(ranked)

	meta := o.fetchMetadata(ctx, selected, req.DocumentIDs)
	BackfillDocumentNames(selected, meta)

	contextText := BuildContext(selected)
	sources := BuildSources(selected)

	confidence := 0.5
	if len(selected) > 0 {
		confidence = confidenceFromTopScore(selected[0])
	} else {
		o.log.Info("no relevant pages found, answering from general knowledge",
			"query", query, "fused", len(fused))
	}

	prompt := BuildAnswerPrompt(query, preprocessed, cls, contextText,
		BuildDocumentMetadataSummary(meta, req.DocumentIDs), len(relevant))
	prompt = AppendLanguageClause(prompt, req.Language)

	answer, err := o.llm.Generate(ctx, prompt, history, req.Language, domain.GenOptions{
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailed, "answer query", err)
	}

	retried := false
	if contextText != "" && len(selected) > 0 {
		answer, retried = o.ensureGrounded(ctx, query, prompt, answer, contextText, params)
	}

	if len(sources) > 0 {
		citeMeta := meta
		if len(citeMeta) == 0 {
			citeMeta = ExtractDocumentMetadata(sources)
		}
		answer = ValidateCitations(answer, sources, citeMeta)
		answer = DeduplicateCitations(answer)
	}

	result := &domain.Answer{
		Answer:     answer,
		Sources:    sources,
		Confidence: confidence,
		TokensUsed: EstimateTokens(prompt, answer),
		Metadata: domain.AnswerMetadata{
			Classification:  cls,
			SearchStrategy:  cls.SearchStrategy,
			ResultsFound:    len(relevant),
			UsedHybrid:      usedHybrid,
			UsedReranker:    usedReranker,
			RetriedAnswer:   retried,
			PreprocessedTo:  preprocessedTo(preprocessed),
			QueriesSearched: len(queries),
		},
	}

	o.persistChat(ctx, req, query, result)
	return result, nil
}

// answerConversational handles chit-chat without touching retrieval. The
// reply carries full confidence and no citations.
func (o *QueryOrchestrator) answerConversational(
	ctx context.Context,
	req domain.QueryRequest,
	query string,
	cls domain.QueryClassification,
	history []domain.ConversationTurn,
) (*domain.Answer, error) {
	o.metrics.ConversationalQuery()

	prompt := AppendLanguageClause(BuildConversationalPrompt(query), req.Language)
	answer, err := o.llm.Generate(ctx, prompt, history, req.Language, domain.GenOptions{
		Temperature: conversationalTemperature,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailed, "conversational answer", err)
	}

	result := &domain.Answer{
		Answer:     answer,
		Sources:    []domain.Source{},
		Confidence: 1.0,
		TokensUsed: EstimateTokens(prompt, answer),
		Metadata: domain.AnswerMetadata{
			Classification: cls,
			SearchStrategy: domain.StrategyNone,
		},
	}
	o.persistChat(ctx, req, query, result)
	return result, nil
}

// ensureGrounded validates the answer against context, regenerating once at
// low temperature on weak grounding. A still-weak second answer ships with a
// visible disclaimer; the user always gets an answer.
func (o *QueryOrchestrator) ensureGrounded(
	ctx context.Context,
	query, prompt, answer, contextText string,
	params domain.SearchParams,
) (string, bool) {
	verdict := o.guard.Validate(ctx, query, answer, contextText)
	if verdict.Score >= validationFailScore {
		return answer, false
	}

	o.log.Warn("answer weakly grounded, regenerating",
		"score", verdict.Score, "issues", verdict.Issues)
	o.metrics.AnswerRegenerated()

	corrected, err := o.llm.Generate(ctx, CorrectionPrompt(prompt, answer, verdict.Issues), nil, "", domain.GenOptions{
		Temperature: correctionTemperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		o.log.Warn("regeneration failed, keeping original answer", "error", err)
		return answer, true
	}

	second := o.guard.Validate(ctx, query, corrected, contextText)
	if second.Score < validationRetryScore {
		return WithDisclaimer(corrected), true
	}
	return corrected, true
}

func (o *QueryOrchestrator) recentHistory(ctx context.Context, req domain.QueryRequest) []domain.ConversationTurn {
	turns, err := o.memory.RecentTurns(ctx, req.UserID, req.SessionID, historyTurnLimit)
	if err != nil {
		o.log.Warn("history lookup failed, answering without history", "error", err)
		return nil
	}
	return turns
}

func (o *QueryOrchestrator) fetchMetadata(ctx context.Context, selected []domain.RankedResult, requested []string) map[string]domain.DocumentMeta {
	idSet := make(map[string]bool)
	var ids []string
	for _, r := range selected {
		if !idSet[r.DocumentID] {
			idSet[r.DocumentID] = true
			ids = append(ids, r.DocumentID)
		}
	}
	for _, id := range requested {
		if !idSet[id] {
			idSet[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	meta, err := o.metadata.GetMetadata(ctx, ids)
	if err != nil {
		o.log.Warn("document metadata lookup failed", "error", err)
		return nil
	}
	return meta
}

// persistChat appends the exchange fire-and-forget; the response never waits
// on history writes.
func (o *QueryOrchestrator) persistChat(ctx context.Context, req domain.QueryRequest, query string, answer *domain.Answer) {
	record := domain.ChatRecord{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Query:      query,
		Answer:     answer.Answer,
		Sources:    answer.Sources,
		Confidence: answer.Confidence,
		TokensUsed: answer.TokensUsed,
		Metadata:   answer.Metadata,
		CreatedAt:  time.Now().UTC(),
	}

	go func() {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), chatPersistTimeout)
		defer cancel()
		if err := o.chats.SaveChat(saveCtx, record); err != nil {
			o.log.Warn("chat persistence failed", "user_id", req.UserID, "error", err)
		}
	}()
}

func confidenceFromTopScore(top domain.RankedResult) float64 {
	score := top.FinalScore
	if score == 0 {
		score = top.KeywordScore
	}
	confidence := score * 1.2
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

func preprocessedTo(p domain.Preprocessed) string {
	if !p.NeedsPreprocessing || p.Corrected == p.Original {
		return ""
	}
	return p.Corrected
}
