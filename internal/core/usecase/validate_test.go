package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/studymate/docqa/internal/core/domain"
)

type validateLLMFake struct {
	response string
	err      error
	calls    int
}

func (f *validateLLMFake) Generate(context.Context, string, []domain.ConversationTurn, string, domain.GenOptions) (string, error) {
	return "", errors.New("not used")
}

func (f *validateLLMFake) GenerateJSON(context.Context, string, domain.GenOptions) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

var longContext = strings.Repeat("The TCP handshake has three steps. ", 5)

func TestValidateSkipsShortContext(t *testing.T) {
	llm := &validateLLMFake{}
	g := NewHallucinationGuard(llm, testLogger())

	verdict := g.Validate(context.Background(), "q", "a perfectly long answer here", "tiny")
	if !verdict.IsValid || verdict.Score != 1.0 {
		t.Fatalf("expected auto-pass, got %+v", verdict)
	}
	if llm.calls != 0 {
		t.Fatalf("expected no LLM calls, got %d", llm.calls)
	}
}

func TestValidateSkipsShortAnswer(t *testing.T) {
	llm := &validateLLMFake{}
	g := NewHallucinationGuard(llm, testLogger())

	verdict := g.Validate(context.Background(), "q", "short", longContext)
	if !verdict.IsValid || llm.calls != 0 {
		t.Fatalf("expected auto-pass without LLM call, got %+v calls=%d", verdict, llm.calls)
	}
}

func TestValidateParsesVerdict(t *testing.T) {
	llm := &validateLLMFake{response: `{"isGrounded": false, "score": 0.3, "reasoning": "claims a fourth handshake step"}`}
	g := NewHallucinationGuard(llm, testLogger())

	verdict := g.Validate(context.Background(), "q", "an answer that is long enough to validate", longContext)
	if verdict.IsValid || verdict.Score != 0.3 {
		t.Fatalf("expected failing verdict, got %+v", verdict)
	}
	if len(verdict.Issues) != 1 {
		t.Fatalf("expected reasoning carried as issue, got %v", verdict.Issues)
	}
}

func TestValidateFailsOpenOnBadJSON(t *testing.T) {
	g := NewHallucinationGuard(&validateLLMFake{response: "no json here"}, testLogger())

	verdict := g.Validate(context.Background(), "q", "an answer that is long enough to validate", longContext)
	if !verdict.IsValid || verdict.Score != 1.0 {
		t.Fatalf("expected fail-open, got %+v", verdict)
	}
}

func TestValidateFailsOpenOnError(t *testing.T) {
	g := NewHallucinationGuard(&validateLLMFake{err: errors.New("down")}, testLogger())

	verdict := g.Validate(context.Background(), "q", "an answer that is long enough to validate", longContext)
	if !verdict.IsValid {
		t.Fatalf("expected fail-open, got %+v", verdict)
	}
}

func TestCorrectionPromptShape(t *testing.T) {
	prompt := CorrectionPrompt("ORIGINAL", "BAD ANSWER", []string{"unsupported claim"})
	if !strings.HasPrefix(prompt, "CORRECTION REQUIRED") {
		t.Fatalf("prompt must lead with the correction marker: %q", prompt[:40])
	}
	for _, want := range []string{"unsupported claim", "BAD ANSWER", "ORIGINAL"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("correction prompt missing %q", want)
		}
	}
}

func TestWithDisclaimerAppends(t *testing.T) {
	got := WithDisclaimer("answer")
	if !strings.HasPrefix(got, "answer") || !strings.Contains(got, "may not be fully supported") {
		t.Fatalf("unexpected disclaimer result: %q", got)
	}
}
