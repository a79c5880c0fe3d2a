// Package chunker splits cleaned document text into ordered, overlapping,
// bounded-size chunks suitable for embedding.
package chunker

import (
	"strings"
	"unicode"
)

type ChunkerConfig struct {
	// TargetWords is the word budget per chunk; a chunk closes when the
	// next paragraph would push it past this limit.
	TargetWords int
	// OverlapWords is the approximate amount of trailing context carried
	// into the next chunk.
	OverlapWords int
	// WordsPerParagraph is the assumed average paragraph length used to
	// turn OverlapWords into a trailing-paragraph count. The overlap is a
	// paragraph-count heuristic, not an exact word count.
	WordsPerParagraph int
}

type Chunker struct {
	config ChunkerConfig
}

func NewWithConfig(config ChunkerConfig) Chunker {
	if config.TargetWords == 0 {
		config.TargetWords = 500
	}
	if config.OverlapWords == 0 {
		config.OverlapWords = 200
	}
	if config.WordsPerParagraph == 0 {
		config.WordsPerParagraph = 200
	}
	return Chunker{config: config}
}

// Chunk splits text into chunk texts. Paragraph order is preserved and the
// output is deterministic: the same input always yields the same sequence.
// Degenerate inputs (short text, no paragraph boundaries) come back as a
// single chunk; empty input yields nil.
func (c *Chunker) Chunk(text string) []string {
	cleaned := cleanText(text)
	paragraphs := splitParagraphs(cleaned)
	if len(paragraphs) == 0 {
		if trimmed := strings.TrimSpace(collapseSpaces(cleaned)); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var (
		chunks    []string
		current   []string
		wordCount int
	)

	for _, paragraph := range paragraphs {
		words := len(strings.Fields(paragraph))

		if wordCount+words > c.config.TargetWords && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))

			current = c.overlapTail(current)
			wordCount = 0
			for _, p := range current {
				wordCount += len(strings.Fields(p))
			}
		}

		current = append(current, paragraph)
		wordCount += words
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}
	return chunks
}

// overlapTail returns the trailing paragraphs of a just-closed chunk that
// seed the next one: floor(OverlapWords / WordsPerParagraph) paragraphs.
// A single-paragraph chunk contributes no overlap, otherwise the next chunk
// could never make progress.
func (c *Chunker) overlapTail(closed []string) []string {
	if len(closed) < 2 {
		return nil
	}
	n := c.config.OverlapWords / c.config.WordsPerParagraph
	if n < 1 {
		return nil
	}
	if n > len(closed)-1 {
		n = len(closed) - 1
	}
	tail := make([]string, n)
	copy(tail, closed[len(closed)-n:])
	return tail
}

// cleanText strips characters outside the allow-list while keeping the
// punctuation legal citations rely on. Newlines survive so paragraph
// boundaries are still visible afterwards.
func cleanText(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\n' || r == ' ' || r == '\t' {
			sb.WriteRune(r)
			continue
		}
		switch r {
		case '.', ',', ';', ':', '!', '?', '-', '_',
			'(', ')', '[', ']', '{', '}',
			'\'', '"', '/', '\\', '@', '#', '%', '&', '$', '*', '+', '=', '§':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// splitParagraphs breaks text into paragraph units on blank lines; an
// indented line also starts a new paragraph. Whitespace inside a paragraph
// is normalized to single spaces.
func splitParagraphs(text string) []string {
	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if len(current) > 0 && (line[0] == ' ' || line[0] == '\t') {
			flush()
		}
		current = append(current, collapseSpaces(trimmed))
	}
	flush()
	return paragraphs
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
