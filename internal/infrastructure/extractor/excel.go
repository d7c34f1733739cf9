package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/studymate/docqa/internal/core/domain"
)

func extractExcel(content []byte) ([]domain.Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	pages := make([]domain.Page, 0, len(sheets))
	for i, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		var buf strings.Builder
		buf.WriteString(sheet)
		buf.WriteByte('\n')
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		pages = append(pages, domain.Page{
			PageNumber: i + 1,
			Content:    strings.TrimSpace(buf.String()),
		})
	}
	return pages, nil
}
