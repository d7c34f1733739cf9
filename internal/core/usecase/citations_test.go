package usecase

import (
	"strings"
	"testing"

	"github.com/studymate/docqa/internal/core/domain"
)

var citationSources = []domain.Source{
	{DocumentID: "d1", DocumentName: "networks.pdf", Page: 3, Relevance: 0.9},
	{DocumentID: "d1", DocumentName: "networks.pdf", Page: 7, Relevance: 0.6},
	{DocumentID: "d2", DocumentName: "os.pdf", Page: 2, Relevance: 0.5},
}

var citationMeta = map[string]domain.DocumentMeta{
	"d1": {ID: "d1", Name: "networks.pdf", TotalPages: 10},
	"d2": {ID: "d2", Name: "os.pdf", TotalPages: 4},
}

func TestValidateCitationsKeepsValid(t *testing.T) {
	answer := "TCP uses handshakes [Document: networks.pdf, Page: 3]."
	got := ValidateCitations(answer, citationSources, citationMeta)
	if got != answer {
		t.Fatalf("valid citation was altered: %q", got)
	}
}

func TestValidateCitationsCapsOutOfRangePage(t *testing.T) {
	got := ValidateCitations("See [Document: os.pdf, Page: 99].", citationSources, citationMeta)
	if !strings.Contains(got, "[Document: os.pdf, Page: 4]") {
		t.Fatalf("expected capped page, got %q", got)
	}
}

func TestValidateCitationsRewritesWrongPageOfKnownDocument(t *testing.T) {
	got := ValidateCitations("See [Document: networks.pdf, Page: 5].", citationSources, citationMeta)
	if !strings.Contains(got, "[Document: networks.pdf, Page: 3]") {
		t.Fatalf("expected rewrite to best page, got %q", got)
	}
}

func TestValidateCitationsDeletesUnknownDocument(t *testing.T) {
	got := ValidateCitations("See [Document: ghost.pdf, Page: 1]. More text.", citationSources, citationMeta)
	if strings.Contains(got, "ghost.pdf") || strings.Contains(got, "[Document") {
		t.Fatalf("unknown-document citation survived: %q", got)
	}
	if !strings.Contains(got, "More text.") {
		t.Fatalf("surrounding text damaged: %q", got)
	}
}

func TestValidateCitationsValidityInvariant(t *testing.T) {
	answer := "A [Document: networks.pdf, Page: 3] B [Document: networks.pdf, Page: 42] C [Document: ghost.pdf, Page: 1] D [Document: os.pdf, Page: 3]"
	got := ValidateCitations(answer, citationSources, citationMeta)

	for _, m := range citationRe.FindAllStringSubmatch(got, -1) {
		name := strings.TrimSpace(m[1])
		page := atoi(m[2])

		validSource := false
		for _, s := range citationSources {
			if s.DocumentName == name && s.Page == page {
				validSource = true
			}
		}
		capped := false
		for _, meta := range citationMeta {
			if meta.Name == name && meta.TotalPages == page {
				capped = true
			}
		}
		if !validSource && !capped {
			t.Fatalf("invalid citation survived: %s", m[0])
		}
	}
}

func TestDeduplicateCitationsKeepsFirst(t *testing.T) {
	answer := "A [Document: networks.pdf, Page: 3] B [Document: networks.pdf, Page: 3] C [Document: os.pdf, Page: 2]"
	got := DeduplicateCitations(answer)

	if strings.Count(got, "[Document: networks.pdf, Page: 3]") != 1 {
		t.Fatalf("duplicate citation not removed: %q", got)
	}
	if !strings.Contains(got, "[Document: os.pdf, Page: 2]") {
		t.Fatalf("distinct citation removed: %q", got)
	}
	if !strings.HasPrefix(got, "A [Document: networks.pdf, Page: 3]") {
		t.Fatalf("first occurrence must be the survivor: %q", got)
	}
}

func TestDeduplicateCitationsIdempotent(t *testing.T) {
	answer := "A [Document: networks.pdf, Page: 3] B [Document: networks.pdf, Page: 3]"
	once := DeduplicateCitations(answer)
	twice := DeduplicateCitations(once)
	if once != twice {
		t.Fatalf("dedup not idempotent: %q vs %q", once, twice)
	}
}

func TestExtractDocumentMetadata(t *testing.T) {
	meta := ExtractDocumentMetadata(citationSources)
	if meta["d1"].TotalPages != 7 {
		t.Fatalf("expected max cited page 7, got %d", meta["d1"].TotalPages)
	}
	if meta["d2"].Name != "os.pdf" {
		t.Fatalf("expected name os.pdf, got %q", meta["d2"].Name)
	}
}
