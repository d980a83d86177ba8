// Package chunker provides the local rule-based text splitter.
// Text is split on blank-line-delimited paragraphs, which are
// accumulated into chunks up to a size threshold. Paragraphs that
// exceed the threshold on their own fall back to sentence-boundary
// splitting.
package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// Piece is one output segment of the splitter.
type Piece struct {
	// Title is a sequential default title ("Chunk N").
	Title string

	// Content is the segment text, never empty.
	Content string
}

// Splitter accumulates paragraphs into size-bounded chunks.
type Splitter struct {
	chunkSize int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size threshold in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split turns text into ordered pieces and suggests a title from the
// first line. Empty or whitespace-only input yields zero pieces;
// callers must treat that as a failure, not an empty book.
func (s *Splitter) Split(text string) ([]Piece, string) {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil, ""
	}

	var contents []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			contents = append(contents, current.String())
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		if len(para) > s.chunkSize {
			// Oversized paragraph: close the running chunk and
			// length-cap by sentence boundaries instead.
			flush()
			contents = append(contents, s.splitSentences(para)...)
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > s.chunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	pieces := make([]Piece, 0, len(contents))
	for i, content := range contents {
		pieces = append(pieces, Piece{
			Title:   fmt.Sprintf("Chunk %d", i+1),
			Content: content,
		})
	}

	return pieces, suggestTitle(paragraphs[0])
}

// splitParagraphs splits on blank lines and drops whitespace-only
// paragraphs.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, raw := range strings.Split(text, "\n\n") {
		para := strings.TrimSpace(raw)
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}
	return paragraphs
}

// splitSentences splits a paragraph on sentence boundaries and
// re-accumulates sentences up to the chunk size. A boundary is a '.',
// '!' or '?' followed by whitespace; no regular expressions.
func (s *Splitter) splitSentences(para string) []string {
	var sentences []string
	runes := []rune(para)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence)+1 > s.chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// suggestTitle derives a short title from the first paragraph.
func suggestTitle(para string) string {
	line := para
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(strings.TrimLeft(line, "# "))

	const maxTitle = 60
	if len(line) > maxTitle {
		cut := strings.LastIndexByte(line[:maxTitle], ' ')
		if cut <= 0 {
			// No space to break on: back up to a rune boundary so the
			// cut never leaves a partial multi-byte rune behind.
			cut = maxTitle
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
		}
		line = line[:cut]
	}
	return line
}
