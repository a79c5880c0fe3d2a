package chunker_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnvinX1/Firm-ai-sub000/pkg/chunker"
)

// paragraph builds a paragraph of n distinct words tagged with id.
func paragraph(id, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("p%dw%d", id, i)
	}
	return strings.Join(words, " ")
}

func TestChunker_Deterministic(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{})

	var paragraphs []string
	for i := 0; i < 8; i++ {
		paragraphs = append(paragraphs, paragraph(i, 150))
	}
	text := strings.Join(paragraphs, "\n\n")

	first := c.Chunk(text)
	second := c.Chunk(text)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestChunker_OverlapAndOrder(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		TargetWords:       500,
		OverlapWords:      200,
		WordsPerParagraph: 200,
	})

	// Twelve paragraphs of 100 words each: 1200 words total. With a
	// 500-word budget and one trailing paragraph of overlap, the text
	// splits into three chunks with shared boundary paragraphs.
	var paragraphs []string
	for i := 0; i < 12; i++ {
		paragraphs = append(paragraphs, paragraph(i, 100))
	}
	chunks := c.Chunk(strings.Join(paragraphs, "\n\n"))

	require.Len(t, chunks, 3)

	// Boundary paragraphs appear at the end of one chunk and the start of
	// the next.
	assert.True(t, strings.HasSuffix(chunks[0], paragraphs[4]))
	assert.True(t, strings.HasPrefix(chunks[1], paragraphs[4]))
	assert.True(t, strings.HasSuffix(chunks[1], paragraphs[8]))
	assert.True(t, strings.HasPrefix(chunks[2], paragraphs[8]))

	// Source order is preserved within and across chunks.
	joined := strings.Join(chunks, "\n\n")
	last := -1
	for i := range paragraphs {
		pos := strings.Index(joined, fmt.Sprintf("p%dw0 ", i))
		require.GreaterOrEqual(t, pos, 0, "paragraph %d missing", i)
		assert.Greater(t, pos, last)
		last = pos
	}
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{})

	chunks := c.Chunk("A short holding about consideration in contract law.")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "consideration")
}

func TestChunker_NoParagraphBreaks(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{TargetWords: 50})

	words := make([]string, 300)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	// One giant paragraph larger than the budget still comes back whole:
	// paragraphs are never split mid-way.
	chunks := c.Chunk(strings.Join(words, " "))
	require.Len(t, chunks, 1)
}

func TestChunker_EmptyInput(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{})

	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk("   \n\n  \t "))
}

func TestChunker_CleansDisallowedCharacters(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{})

	chunks := c.Chunk("The rule in Rylands v Fletcher\x00\x01 applies; see § 42.")
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0], "\x00")
	assert.Contains(t, chunks[0], "§ 42")
	assert.Contains(t, chunks[0], "Rylands v Fletcher applies;")
}

func TestChunker_NormalizesWhitespace(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{})

	chunks := c.Chunk("First   line\nsame    paragraph.\n\nSecond paragraph.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "First line same paragraph.\n\nSecond paragraph.", chunks[0])
}
