package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

const (
	validationMinContextLen = 50
	validationMinAnswerLen  = 20
	validationMaxContextLen = 15000
	validationFailScore     = 0.7
	validationRetryScore    = 0.6
	correctionTemperature   = 0.1

	// Appended when even the regenerated answer scores poorly. The user
	// always gets an answer; low grounding is disclosed, not suppressed.
	groundingDisclaimer = "\n\n---\n*Note: parts of this answer may not be fully supported by your uploaded documents. Please verify important details against the sources.*"
)

// HallucinationGuard checks a generated answer against its retrieval context
// and, when grounding is weak, drives one low-temperature regeneration.
type HallucinationGuard struct {
	llm ports.TextGenerator
	log *slog.Logger
}

func NewHallucinationGuard(llm ports.TextGenerator, log *slog.Logger) *HallucinationGuard {
	return &HallucinationGuard{llm: llm, log: log}
}

// Validate scores how well the answer is supported by the context. It fails
// open: any validator error or unparseable response passes the answer, since
// returning the answer matters more than a broken validator.
func (g *HallucinationGuard) Validate(ctx context.Context, question, answer, contextText string) domain.ValidationResult {
	if len(contextText) < validationMinContextLen || len(answer) < validationMinAnswerLen {
		return passedValidation("too little signal to validate")
	}

	truncated := contextText
	if len(truncated) > validationMaxContextLen {
		truncated = truncated[:validationMaxContextLen]
	}

	response, err := g.llm.GenerateJSON(ctx, buildValidationPrompt(question, answer, truncated), domain.GenOptions{
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		g.log.Warn("answer validation failed, passing answer through", "error", err)
		return passedValidation("validation error")
	}

	payload, ok := extractJSONObject(response)
	if !ok {
		g.log.Warn("validator returned no json, passing answer through")
		return passedValidation("validator parsing failed")
	}

	var verdict struct {
		IsGrounded bool    `json:"isGrounded"`
		Score      float64 `json:"score"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(payload), &verdict); err != nil {
		g.log.Warn("validator json invalid, passing answer through", "error", err)
		return passedValidation("validator parsing failed")
	}

	result := domain.ValidationResult{
		IsValid: verdict.IsGrounded,
		Score:   verdict.Score,
	}
	if verdict.Reasoning != "" {
		result.Issues = []string{verdict.Reasoning}
	}
	return result
}

// CorrectionPrompt wraps the original prompt in a regeneration instruction
// used after a failed validation.
func CorrectionPrompt(originalPrompt, failedAnswer string, issues []string) string {
	issueText := "The previous answer contained claims not supported by the document context."
	if len(issues) > 0 {
		issueText = issues[0]
	}
	return fmt.Sprintf(`CORRECTION REQUIRED: your previous answer was not sufficiently grounded in the provided documents.

Problem: %s

Previous answer:
%s

Regenerate the answer. Use ONLY facts that appear in the document context of the original instructions below. If a claim is not in the context, leave it out.

--- ORIGINAL INSTRUCTIONS ---
%s`, issueText, failedAnswer, originalPrompt)
}

// WithDisclaimer appends the visible grounding disclaimer to an answer.
func WithDisclaimer(answer string) string {
	return answer + groundingDisclaimer
}

func passedValidation(reason string) domain.ValidationResult {
	return domain.ValidationResult{IsValid: true, Score: 1.0, Issues: nil, Recommendation: reason}
}

func buildValidationPrompt(question, answer, contextText string) string {
	return fmt.Sprintf(`You are a strict Fact Checker and Hallucination Detector.

**TASK**: Verify if the "CANDIDATE ANSWER" is fully supported by the "PROVIDED CONTEXT".

**PROVIDED CONTEXT**:
%s

**USER QUESTION**: %q

**CANDIDATE ANSWER**:
%q

**INSTRUCTIONS**:
1. Check if every claim in the answer is found in the context.
2. Ignore minor wording differences, focus on factual claims.
3. If the answer claims information not present in the context, it is a HALLUCINATION.
4. If the answer assumes external knowledge not in the text (unless common knowledge), flag it.

Return ONLY JSON:
{
  "isGrounded": true/false,
  "score": 0.0 to 1.0,
  "reasoning": "Brief explanation of what is unsubstantiated, if any"
}`, contextText, question, answer)
}
