package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"kbingest/internal/domain"
)

// DefaultSeparators is the split preference: paragraph, line, word, character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker splits text on the first separator that occurs in it and
// greedily merges the pieces back into chunks of at most chunkSize runes,
// carrying up to chunkOverlap runes from the end of one chunk into the next.
// Pieces that are still too long are split again with the remaining
// separators.
type RecursiveChunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewRecursiveChunker(chunkSize, chunkOverlap int, separators []string) (*RecursiveChunker, error) {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap > chunkSize {
		return nil, fmt.Errorf("chunk overlap %d is larger than chunk size %d", chunkOverlap, chunkSize)
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &RecursiveChunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   separators,
	}, nil
}

// Chunk splits every page independently; chunks never span two pages.
func (c *RecursiveChunker) Chunk(pages []domain.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, page := range pages {
		for i, text := range c.SplitText(page.Text) {
			chunks = append(chunks, newChunk(page, len(chunks), i, text))
		}
	}
	return chunks, nil
}

// SplitText returns the chunk texts for a single string.
func (c *RecursiveChunker) SplitText(text string) []string {
	return c.split(text, c.separators)
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			next = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if utf8.RuneCountInString(piece) < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good, "")...)
			good = nil
		}
		if len(next) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				final = append(final, t)
			}
			continue
		}
		final = append(final, c.split(piece, next)...)
	}
	if len(good) > 0 {
		final = append(final, c.merge(good, "")...)
	}
	return final
}

// merge packs pieces into chunks no longer than chunkSize. When a chunk is
// emitted, pieces are dropped from its front until what remains fits within
// chunkOverlap; the remainder starts the next chunk.
func (c *RecursiveChunker) merge(pieces []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)
	joinCost := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var docs, current []string
	total := 0
	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n+joinCost(len(current)) > c.chunkSize && len(current) > 0 {
			if doc := joinPieces(current, separator); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.chunkOverlap || (total > 0 && total+n+joinCost(len(current)) > c.chunkSize) {
				total -= utf8.RuneCountInString(current[0]) + joinCost(len(current)-1)
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n + joinCost(len(current)-1)
	}
	if doc := joinPieces(current, separator); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func joinPieces(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}

// splitKeepSeparator splits text on separator, keeping each separator at the
// start of the piece that follows it. An empty separator splits into runes.
func splitKeepSeparator(text, separator string) []string {
	if separator == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, separator)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, separator+p)
	}
	return out
}
