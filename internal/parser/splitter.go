package parser

import (
	"errors"
	"strings"
	"unicode/utf8"

	"pdf-qa/internal/models"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 0
)

// DefaultSeparators go from paragraph to line to word to single character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter recursively splits text on the coarsest separator that keeps
// pieces within ChunkSize characters, then merges neighbouring pieces back up
// to that size. Separators stay attached to the piece that follows them and
// nothing is trimmed, so with no overlap the chunks of a page concatenate
// back to the page text.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

func NewSplitter(chunkSize, chunkOverlap int, separators ...string) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, errors.New("chunk size must be > 0")
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, errors.New("chunk overlap must be >= 0 and < chunk size")
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	// splitting on "" always succeeds, so it has to be the last resort
	if separators[len(separators)-1] != "" {
		separators = append(append([]string{}, separators...), "")
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, Separators: separators}, nil
}

// SplitDocuments splits every page and tags the chunks with the page's
// metadata. ChunkID restarts at 1 on each page.
func (s *Splitter) SplitDocuments(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		offset := 0
		for i, text := range s.SplitText(doc.Content) {
			start := offset
			if s.ChunkOverlap > 0 {
				if idx := strings.Index(doc.Content[offset:], text); idx >= 0 {
					start = offset + idx
				}
			}
			chunks = append(chunks, models.Chunk{
				Content:    text,
				Source:     doc.Source,
				PageNumber: doc.PageNumber,
				ChunkID:    i + 1,
				StartIndex: start,
			})
			if s.ChunkOverlap > 0 {
				offset = start + 1
			} else {
				offset = start + len(text)
			}
		}
	}
	return chunks
}

// SplitText returns the chunks of text in order. Empty text yields no chunks.
func (s *Splitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks, fitting []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) <= s.ChunkSize {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			chunks = append(chunks, s.merge(fitting)...)
			fitting = nil
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(fitting) > 0 {
		chunks = append(chunks, s.merge(fitting)...)
	}
	return chunks
}

// merge packs pieces into chunks of at most ChunkSize characters, carrying up
// to ChunkOverlap characters of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks, current []string
	total := 0
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.ChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ""))
			for len(current) > 0 && (total > s.ChunkOverlap || total+n > s.ChunkSize) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}

// splitKeepSeparator splits text before every occurrence of separator, so
// "a\n\nb" on "\n\n" gives "a" and "\n\nb". An empty separator splits into
// runes.
func splitKeepSeparator(text, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, len(text))
		for i, w := 0, 0; i < len(text); i += w {
			_, w = utf8.DecodeRuneInString(text[i:])
			pieces = append(pieces, text[i:i+w])
		}
		return pieces
	}

	var pieces []string
	start, from := 0, 0
	for {
		idx := strings.Index(text[from:], separator)
		if idx < 0 {
			break
		}
		end := from + idx
		if end > start {
			pieces = append(pieces, text[start:end])
		}
		start = end
		from = end + len(separator)
	}
	return append(pieces, text[start:])
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
