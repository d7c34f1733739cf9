package usecase

import (
	"strings"
	"testing"

	"github.com/studymate/docqa/internal/core/domain"
)

func TestAppendLanguageClause(t *testing.T) {
	base := "prompt"
	if got := AppendLanguageClause(base, "en"); got != base {
		t.Fatalf("english must leave the prompt unchanged")
	}
	if got := AppendLanguageClause(base, ""); got != base {
		t.Fatalf("empty language must leave the prompt unchanged")
	}

	hi := AppendLanguageClause(base, "hi")
	if !strings.Contains(hi, "Hindi (हिंदी)") {
		t.Fatalf("expected Hindi clause, got %q", hi)
	}
	unknown := AppendLanguageClause(base, "xx")
	if !strings.Contains(unknown, "English") {
		t.Fatalf("unknown language must fall back to English, got %q", unknown)
	}
}

func TestBuildAnswerPromptBranches(t *testing.T) {
	pre := domain.Preprocessed{Original: "wat is dns", Corrected: "what is dns", NeedsPreprocessing: true}
	cls := domain.QueryClassification{Type: domain.QuestionConceptual}

	withContext := BuildAnswerPrompt("wat is dns", pre, cls, "[Document: net.pdf, Page: 1]\nDNS resolves names.", "- net.pdf (9 pages)", 7)
	for _, want := range []string{
		"DOCUMENT CONTEXT",
		"**INTERPRETED AS:** what is dns",
		"Synthesize across ALL excerpts",
		"conflict",
		"net.pdf (9 pages)",
		"NEVER invent a page number",
	} {
		if !strings.Contains(withContext, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}

	withoutContext := BuildAnswerPrompt("wat is dns", pre, cls, "", "", 0)
	if !strings.Contains(withoutContext, "NO RELEVANT DOCUMENTS FOUND") {
		t.Fatalf("expected no-documents branch")
	}
	if !strings.Contains(withoutContext, "Based on general knowledge") {
		t.Fatalf("expected general-knowledge prefix instruction")
	}
}

func TestBuildDocumentMetadataSummaryOrdersByRequest(t *testing.T) {
	meta := map[string]domain.DocumentMeta{
		"a": {ID: "a", Name: "alpha.pdf", TotalPages: 2},
		"b": {ID: "b", Name: "beta.pdf", TotalPages: 5},
	}

	got := BuildDocumentMetadataSummary(meta, []string{"b", "a"})
	want := "- beta.pdf (5 pages)\n- alpha.pdf (2 pages)"
	if got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("abcd", "efgh"); got != 2 {
		t.Fatalf("expected 2 tokens, got %d", got)
	}
	if got := EstimateTokens("a", ""); got != 1 {
		t.Fatalf("expected rounding up, got %d", got)
	}
}
