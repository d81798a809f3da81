package chunking

import "strings"

// LengthFunc measures a piece of text, usually in tokens.
type LengthFunc func(string) int

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter splits on the coarsest separator present and recurses
// into pieces that are still longer than ChunkSize.
type RecursiveSplitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
	Length     LengthFunc
}

func NewRecursiveSplitter(chunkSize, overlap int, length LengthFunc) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = 150
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	if length == nil {
		length = ApproxTokenLength
	}
	return &RecursiveSplitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		Separators: defaultSeparators,
		Length:     length,
	}
}

func (s *RecursiveSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			separator = ""
			break
		}
		if strings.Contains(text, candidate) {
			separator = candidate
			rest = separators[i+1:]
			break
		}
	}

	var out, pending []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if s.Length(piece) < s.ChunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending)...)
	}
	return out
}

// merge packs pieces greedily into chunks, carrying up to Overlap of the
// tail of one chunk into the next.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		lengths []int
		total   int
	)
	for _, piece := range pieces {
		n := s.Length(piece)
		if total+n > s.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				out = append(out, doc)
			}
			for len(current) > 0 && (total > s.Overlap || total+n > s.ChunkSize) {
				total -= lengths[0]
				current = current[1:]
				lengths = lengths[1:]
			}
		}
		current = append(current, piece)
		lengths = append(lengths, n)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeepingSeparator splits text so every piece after the first starts
// with the separator; an empty separator splits into runes.
func splitKeepingSeparator(text, separator string) []string {
	if separator == "" {
		runes := []rune(text)
		out := make([]string, 0, len(runes))
		for _, r := range runes {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, separator)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, part := range parts[1:] {
		out = append(out, separator+part)
	}
	return out
}
