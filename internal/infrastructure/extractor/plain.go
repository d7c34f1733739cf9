package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/studymate/docqa/internal/core/domain"
)

// extractPlain treats the whole file as one page. Invalid UTF-8 sequences are
// replaced rather than rejected.
func extractPlain(content []byte) ([]domain.Page, error) {
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "�")
	}
	return []domain.Page{{PageNumber: 1, Content: strings.TrimSpace(text)}}, nil
}
