package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/studymate/docqa/internal/core/domain"
)

var citationRe = regexp.MustCompile(`\[Document:\s*([^,]+),\s*Page:\s*(\d+)\]`)

// ValidateCitations rewrites or removes citations the model invented. A
// citation is valid iff its (document name, page) pair matches one of the
// provided sources. Out-of-range pages are capped to the document's last
// page, citations of a known document with a wrong page are rewritten to
// that document's best-scoring page, and citations of unknown documents are
// deleted outright.
func ValidateCitations(answer string, sources []domain.Source, meta map[string]domain.DocumentMeta) string {
	if answer == "" || len(sources) == 0 {
		return answer
	}

	valid := make(map[string]bool, len(sources))
	bestPage := make(map[string]int, len(sources))
	for _, s := range sources {
		valid[citationKey(s.DocumentName, s.Page)] = true
		if _, ok := bestPage[s.DocumentName]; !ok {
			bestPage[s.DocumentName] = s.Page
		}
	}

	pageLimits := make(map[string]int, len(meta))
	for _, m := range meta {
		pageLimits[m.Name] = m.TotalPages
	}

	return citationRe.ReplaceAllStringFunc(answer, func(match string) string {
		parts := citationRe.FindStringSubmatch(match)
		name := strings.TrimSpace(parts[1])
		page, _ := strconv.Atoi(parts[2])

		maxPages, limitKnown := pageLimits[name]
		exceedsLimit := limitKnown && page > maxPages

		if valid[citationKey(name, page)] && !exceedsLimit {
			return match
		}
		if exceedsLimit {
			return fmt.Sprintf("[Document: %s, Page: %d]", name, maxPages)
		}
		if best, ok := bestPage[name]; ok {
			return fmt.Sprintf("[Document: %s, Page: %d]", name, best)
		}
		return ""
	})
}

// DeduplicateCitations removes repeat citations left-to-right, keeping only
// the first occurrence of each (document name, page) pair. Idempotent.
func DeduplicateCitations(answer string) string {
	if answer == "" {
		return answer
	}

	seen := make(map[string]bool)
	return citationRe.ReplaceAllStringFunc(answer, func(match string) string {
		parts := citationRe.FindStringSubmatch(match)
		key := citationKey(strings.TrimSpace(parts[1]), atoi(parts[2]))
		if seen[key] {
			return ""
		}
		seen[key] = true
		return match
	})
}

// ExtractDocumentMetadata derives a name/page-count map from sources alone,
// used when the storage collaborator's metadata is unavailable. TotalPages is
// the highest page cited, a lower bound on the real count.
func ExtractDocumentMetadata(sources []domain.Source) map[string]domain.DocumentMeta {
	meta := make(map[string]domain.DocumentMeta, len(sources))
	for _, s := range sources {
		m, ok := meta[s.DocumentID]
		if !ok {
			meta[s.DocumentID] = domain.DocumentMeta{ID: s.DocumentID, Name: s.DocumentName, TotalPages: s.Page}
			continue
		}
		if s.Page > m.TotalPages {
			m.TotalPages = s.Page
			meta[s.DocumentID] = m
		}
	}
	return meta
}

func citationKey(name string, page int) string {
	return fmt.Sprintf("%s|%d", name, page)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
