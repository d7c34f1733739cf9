// Package extractor turns stored documents into per-page text.
package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

// Extractor reads a document from object storage and extracts its pages.
// PDFs keep their native page boundaries, spreadsheets map one sheet to one
// page, and everything else is treated as a single page of plain text.
type Extractor struct {
	storage ports.ObjectStorage
}

var _ ports.TextExtractor = (*Extractor)(nil)

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]domain.Page, error) {
	rc, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}

	switch normalizeMime(doc.MimeType) {
	case "application/pdf":
		return extractPDF(content)
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}

// normalizeMime drops parameters such as "; charset=utf-8".
func normalizeMime(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
