package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/studymate/docqa/internal/core/domain"
)

func extractPDF(content []byte) ([]domain.Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]domain.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		pages = append(pages, domain.Page{
			PageNumber: i,
			Content:    strings.TrimSpace(text),
		})
	}
	return pages, nil
}
