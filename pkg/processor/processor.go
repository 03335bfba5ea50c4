package processor

import (
	"strings"
	"unicode/utf8"
)

type ProcessorConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	MinChunkLength int
}

// Processor normalizes extracted document text and cuts it into overlapping
// chunks for the vector index.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}
	if config.MinChunkLength <= 0 {
		config.MinChunkLength = 1
	}

	return Processor{
		config: config,
	}
}

// Chunk returns the chunks of text in document order. Sizes are counted in
// bytes; a single sentence longer than ChunkSize becomes its own chunk.
func (p Processor) Chunk(text string) []string {
	text = cleanText(text)
	if text == "" {
		return nil
	}

	var chunks []string
	current := strings.Builder{}

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if len(chunk) >= p.config.MinChunkLength {
			chunks = append(chunks, chunk)
		}
	}

	for _, sentence := range splitIntoSentences(text) {
		if current.Len() > 0 && current.Len()+len(sentence)+1 > p.config.ChunkSize {
			flush()

			tail := overlapTail(current.String(), p.config.ChunkOverlap)
			current.Reset()
			current.WriteString(tail)
		}

		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// cleanText drops NUL bytes along with invalid UTF-8; Postgres TEXT rejects
// both.
func cleanText(text string) string {
	text = sanitizeUTF8(text)
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.Join(strings.Fields(text), " ")
}

func splitIntoSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' {
				sentences = append(sentences, strings.TrimSpace(text[start:i+1]))
				start = i + 1
			}
		}
	}

	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// overlapTail returns the whole words that fit in the last n bytes of s.
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	tail := s[cut:]
	if s[cut-1] == ' ' {
		return tail
	}
	i := strings.IndexByte(tail, ' ')
	if i < 0 {
		return ""
	}
	return tail[i+1:]
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
