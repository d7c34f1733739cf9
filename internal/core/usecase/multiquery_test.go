package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/studymate/docqa/internal/core/domain"
)

type multiQueryLLMFake struct {
	response string
	err      error
}

func (f *multiQueryLLMFake) Generate(context.Context, string, []domain.ConversationTurn, string, domain.GenOptions) (string, error) {
	return "", errors.New("not used")
}

func (f *multiQueryLLMFake) GenerateJSON(context.Context, string, domain.GenOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestGenerateQueriesOriginalFirst(t *testing.T) {
	g := NewMultiQueryGenerator(&multiQueryLLMFake{response: `["ml definition", "machine learning explained"]`}, testLogger())

	queries := g.GenerateQueries(context.Background(), "what is machine learning")
	if len(queries) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(queries))
	}
	if queries[0] != "what is machine learning" {
		t.Fatalf("original must come first, got %q", queries[0])
	}
	if queries[1] != "ml definition" || queries[2] != "machine learning explained" {
		t.Fatalf("alternatives out of order: %v", queries[1:])
	}
}

func TestGenerateQueriesCapsAlternatives(t *testing.T) {
	g := NewMultiQueryGenerator(&multiQueryLLMFake{response: `["a", "b", "c", "d"]`}, testLogger())

	queries := g.GenerateQueries(context.Background(), "original")
	if len(queries) != 3 {
		t.Fatalf("expected at most 3 queries, got %d", len(queries))
	}
}

func TestGenerateQueriesFallsBackToOriginal(t *testing.T) {
	g := NewMultiQueryGenerator(&multiQueryLLMFake{err: errors.New("overloaded")}, testLogger())

	queries := g.GenerateQueries(context.Background(), "original")
	if len(queries) != 1 || queries[0] != "original" {
		t.Fatalf("expected [original], got %v", queries)
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What is the transport layer?", "transport layer"},
		{"please explain recursion", "recursion"},
		{"can you tell me about goroutines", "goroutines"},
		{"goroutines", "goroutines"},
		{"explain", "explain"},
	}
	for _, tc := range tests {
		if got := NormalizeQuery(tc.in); got != tc.want {
			t.Fatalf("NormalizeQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
