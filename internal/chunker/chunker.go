// Package chunker splits extracted policy pages into overlapping text chunks
// and self-contained table chunks, each tagged with the page it came from.
package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// pageMarker matches the page boundary markers injected into the full text
var pageMarker = regexp.MustCompile(`\[PAGE (\d+)\]`)

// Config configures the chunker behavior.
type Config struct {
	// ChunkSize is the character budget per text chunk
	ChunkSize int

	// Overlap is the number of trailing sentences of a closed chunk that
	// seed the next one
	Overlap int

	// MinLength keeps a text chunk open until it holds this many
	// characters, even past ChunkSize. The trailing chunk is exempt.
	MinLength int

	// MaxTableRows limits how many rows of a table are kept
	MaxTableRows int

	// TableContextChars is how much page text prefixes a table chunk
	TableContextChars int

	// LocatePrefixChars is how much of a chunk is used to find its page
	LocatePrefixChars int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:         512,
		Overlap:           1,
		MinLength:         50,
		MaxTableRows:      15,
		TableContextChars: 200,
		LocatePrefixChars: 100,
	}
}

// ConfigFromSettings maps pipeline settings onto a chunker config.
func ConfigFromSettings(s domain.PipelineSettings) Config {
	cfg := DefaultConfig()
	if s.ChunkSize > 0 {
		cfg.ChunkSize = s.ChunkSize
	}
	if s.ChunkOverlap > 0 {
		cfg.Overlap = s.ChunkOverlap
	}
	if s.MinChunkLength > 0 {
		cfg.MinLength = s.MinChunkLength
	}
	if s.MaxTableRows > 0 {
		cfg.MaxTableRows = s.MaxTableRows
	}
	return cfg
}

// Chunker turns pages into chunks. It holds no state between calls and is
// safe for concurrent use.
type Chunker struct {
	config Config
}

// New creates a new chunker with the given config.
func New(config Config) *Chunker {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	if config.Overlap < 0 {
		config.Overlap = 0
	}
	config.MinLength = min(max(config.MinLength, 0), config.ChunkSize)
	if config.MaxTableRows <= 0 {
		config.MaxTableRows = DefaultConfig().MaxTableRows
	}
	if config.TableContextChars < 0 {
		config.TableContextChars = 0
	}
	if config.LocatePrefixChars <= 0 {
		config.LocatePrefixChars = DefaultConfig().LocatePrefixChars
	}
	return &Chunker{config: config}
}

// Chunk splits pages into table chunks followed by text chunks.
// DocumentID is left empty; the caller stamps it.
func (c *Chunker) Chunk(pages []domain.Page) []*domain.Chunk {
	var chunks []*domain.Chunk
	var full strings.Builder

	for _, page := range pages {
		fmt.Fprintf(&full, "\n[PAGE %d]\n", page.Number)
		full.WriteString(page.Text)

		for idx, table := range page.Tables {
			if !IsMeaningfulTable(table) {
				continue
			}
			context := strings.TrimSpace(truncateRunes(page.Text, c.config.TableContextChars))
			chunks = append(chunks, &domain.Chunk{
				ID:   fmt.Sprintf("table_%d_%d", page.Number, idx),
				Text: FormatTable(table, context, c.config.MaxTableRows),
				Page: page.Number,
				Type: domain.ChunkTypeTable,
			})
		}
	}

	return append(chunks, c.textChunks(full.String())...)
}

// textChunks greedily packs sentences into chunks of at most ChunkSize
// characters. When a sentence would overflow the budget the chunk is closed
// and the next one starts with the last Overlap sentences plus that sentence.
// A chunk shorter than MinLength takes the sentence instead of closing.
func (c *Chunker) textChunks(marked string) []*domain.Chunk {
	sentences := SplitSentences(pageMarker.ReplaceAllString(marked, ""))
	locator := newPageLocator(marked, c.config.LocatePrefixChars)

	var chunks []*domain.Chunk
	var current []string
	currentLen := 0

	emit := func() {
		chunks = append(chunks, &domain.Chunk{
			ID:   "text_" + strconv.Itoa(len(chunks)),
			Text: strings.Join(current, " "),
			Page: locator.locate(current[0]),
			Type: domain.ChunkTypeText,
		})
	}

	for _, sentence := range sentences {
		length := utf8.RuneCountInString(sentence)

		if currentLen+length > c.config.ChunkSize && len(current) > 0 && currentLen >= c.config.MinLength {
			emit()

			carry := c.config.Overlap
			if carry > len(current) {
				carry = len(current)
			}
			next := make([]string, 0, carry+1)
			next = append(next, current[len(current)-carry:]...)
			current = append(next, sentence)

			currentLen = 0
			for _, s := range current {
				currentLen += utf8.RuneCountInString(s)
			}
			continue
		}

		current = append(current, sentence)
		currentLen += length
	}

	// Trailing partial chunk is always emitted
	if len(current) > 0 {
		emit()
	}

	return chunks
}

// SplitSentences splits text after '.', '!' or '?' when followed by
// whitespace. Sentences are trimmed; empty ones are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
		default:
			continue
		}

		j := i + 1
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(r) {
				break
			}
			j += size
		}
		if j == i+1 {
			continue
		}

		sentences = appendTrimmed(sentences, text[start:i+1])
		start = j
		i = j - 1
	}

	if start < len(text) {
		sentences = appendTrimmed(sentences, text[start:])
	}
	return sentences
}

func appendTrimmed(sentences []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// truncateRunes returns at most n characters of s
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
