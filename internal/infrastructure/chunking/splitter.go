package chunking

import (
	"strings"

	"github.com/studymate/docqa/internal/core/ports"
)

// Splitter cuts page text into overlapping chunks sized for the embedding
// model. Cuts prefer the last paragraph or whitespace boundary inside the
// window so sentences are not split mid-word.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

var _ ports.Chunker = (*Splitter)(nil)

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1200
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.ChunkSize {
		chunk := strings.TrimSpace(text)
		if chunk == "" {
			return nil
		}
		return []string{chunk}
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = adjustToBoundary(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// adjustToBoundary pulls the cut back to the last paragraph break, newline,
// or space inside the window. A cut that would shrink the chunk below half
// the window is kept as-is.
func adjustToBoundary(runes []rune, start, end int) int {
	minEnd := start + (end-start)/2
	window := string(runes[start:end])

	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i >= 0 {
			cut := start + len([]rune(window[:i]))
			if cut > minEnd {
				return cut
			}
		}
	}
	return end
}
