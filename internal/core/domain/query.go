package domain

// QuestionType is the classified category of a user query. It drives
// retrieval tuning and answer strategy.
type QuestionType string

const (
	QuestionFactual         QuestionType = "factual"
	QuestionConceptual      QuestionType = "conceptual"
	QuestionProcedural      QuestionType = "procedural"
	QuestionComparative     QuestionType = "comparative"
	QuestionTechnical       QuestionType = "technical"
	QuestionMedical         QuestionType = "medical"
	QuestionAcademic        QuestionType = "academic"
	QuestionCreative        QuestionType = "creative"
	QuestionDataAnalysis    QuestionType = "data_analysis"
	QuestionTroubleshooting QuestionType = "troubleshooting"
	QuestionListBased       QuestionType = "list_based"
	QuestionDefinition      QuestionType = "definition"
	QuestionConversational  QuestionType = "conversational"
	QuestionGeneral         QuestionType = "general"
)

// Search strategies select the keyword/semantic weighting family.
const (
	StrategyKeywordHeavy  = "keyword_heavy"
	StrategySemanticHeavy = "semantic_heavy"
	StrategyBalanced      = "balanced"
	StrategyNone          = "none"
)

// QueryRequest is one question against a user's document set. An empty
// DocumentIDs slice means search across all of the user's documents.
type QueryRequest struct {
	UserID      string   `json:"user_id"`
	SessionID   string   `json:"session_id,omitempty"`
	Query       string   `json:"query"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// Preprocessed is the spelling/expansion pass over a raw query.
type Preprocessed struct {
	Original           string   `json:"original"`
	Corrected          string   `json:"corrected"`
	ExpandedTerms      []string `json:"expandedTerms"`
	Intent             string   `json:"intent"`
	KeyPhrases         []string `json:"keyPhrases"`
	NeedsPreprocessing bool     `json:"needsPreprocessing"`
}

// QueryClassification captures how a query should be answered.
type QueryClassification struct {
	Type                    QuestionType `json:"type"`
	Intent                  string       `json:"intent"`
	Domain                  string       `json:"domain"`
	Complexity              string       `json:"complexity"`
	ExpectedLength          string       `json:"expectedLength"`
	KeyConcepts             []string     `json:"keyConcepts"`
	SearchStrategy          string       `json:"searchStrategy"`
	RequiresMultipleSources bool         `json:"requiresMultipleSources"`
	HasTechnicalTerms       bool         `json:"hasTechnicalTerms"`
	IsAcademic              bool         `json:"isAcademic"`
}

// SearchParams is the retrieval and generation tuning derived from a
// classification.
type SearchParams struct {
	ResultLimit       int
	MinRelevanceScore float64
	KeywordWeight     float64
	SemanticWeight    float64
	Temperature       float64
	MaxTokens         int
}

// QueryVariant is one phrasing of the user's question, optionally embedded.
type QueryVariant struct {
	Text           string
	NormalizedText string
	Embedding      []float32
}

// SearchResult is one page hit from a single variant's search call. The same
// page may appear once per variant; fusion collapses duplicates.
type SearchResult struct {
	DocumentID    string  `json:"document_id"`
	DocumentName  string  `json:"document_name"`
	PageNumber    int     `json:"page_number"`
	Content       string  `json:"content"`
	KeywordScore  float64 `json:"keyword_score"`
	SemanticScore float64 `json:"semantic_score"`
	CombinedScore float64 `json:"combined_score"`
}

// FusedResult is a deduplicated search result. QueryMatches counts how many
// variants produced this page; multi-matched pages carry a boosted score.
type FusedResult struct {
	SearchResult
	QueryMatches int `json:"query_matches"`
}

// RankedResult is a fused result after the optional rerank pass. Without a
// reranker, FinalScore equals CombinedScore.
type RankedResult struct {
	FusedResult
	FinalScore float64 `json:"final_score"`
}

// Source is the citation-ready projection of a ranked result.
type Source struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Page         int     `json:"page"`
	Relevance    float64 `json:"relevance"`
}

// AnswerMetadata describes how an answer was produced.
type AnswerMetadata struct {
	Classification  QueryClassification `json:"classification"`
	SearchStrategy  string              `json:"search_strategy"`
	ResultsFound    int                 `json:"results_found"`
	UsedHybrid      bool                `json:"used_hybrid_search"`
	UsedReranker    bool                `json:"used_reranker"`
	RetriedAnswer   bool                `json:"retried_answer"`
	PreprocessedTo  string              `json:"preprocessed_to,omitempty"`
	QueriesSearched int                 `json:"queries_searched"`
}

// Answer is the pipeline's final product.
type Answer struct {
	Answer     string         `json:"answer"`
	Sources    []Source       `json:"sources"`
	Confidence float64        `json:"confidence"`
	TokensUsed int            `json:"tokens_used"`
	Metadata   AnswerMetadata `json:"metadata"`
}

// ValidationResult is the hallucination guard's verdict on an answer.
type ValidationResult struct {
	IsValid        bool     `json:"isValid"`
	Score          float64  `json:"confidence"`
	Issues         []string `json:"issues"`
	Recommendation string   `json:"recommendation"`
}

// DocumentMeta is the name/page-count projection used for citation
// validation and prompt construction.
type DocumentMeta struct {
	ID         string
	Name       string
	TotalPages int
}

// ConversationTurn is one prior exchange supplied to the generator.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenOptions tunes a single generation call.
type GenOptions struct {
	Temperature float64
	MaxTokens   int
}
