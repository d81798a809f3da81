package chunking

import "strings"

// WindowSplitter cuts text into fixed rune windows with overlap.
type WindowSplitter struct {
	ChunkSize int
	Overlap   int
}

func NewWindowSplitter(chunkSize, overlap int) *WindowSplitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &WindowSplitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *WindowSplitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+s.ChunkSize, len(runes))
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
