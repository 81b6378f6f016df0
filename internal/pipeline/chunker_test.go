package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w"
	}
	return strings.Join(parts, " ")
}

func TestNewChunker_InvalidConfig(t *testing.T) {
	_, err := NewChunker(10, 10)
	assert.ErrorIs(t, err, ErrInvalidChunking)

	_, err = NewChunker(10, 12)
	assert.ErrorIs(t, err, ErrInvalidChunking)

	_, err = NewChunker(0, 0)
	assert.ErrorIs(t, err, ErrInvalidChunking)

	_, err = NewChunker(10, -1)
	assert.ErrorIs(t, err, ErrInvalidChunking)
}

func TestChunker_EmptyAndWhitespace(t *testing.T) {
	c, err := NewChunker(256, 64)
	require.NoError(t, err)

	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestChunker_ShortText(t *testing.T) {
	c, err := NewChunker(256, 64)
	require.NoError(t, err)

	chunks := c.Split("a short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short text", chunks[0])
}

func TestChunker_StepAndOverlap(t *testing.T) {
	c, err := NewChunker(10, 4)
	require.NoError(t, err)

	// 20 个词，窗口 10，步长 6：窗口起点 0、6、12，最后一个不满
	chunks := c.Split(words(20))
	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[0]), 10)
	assert.Len(t, strings.Fields(chunks[1]), 10)
	assert.Len(t, strings.Fields(chunks[2]), 8)
}

func TestChunker_OverlapSharesWords(t *testing.T) {
	c, err := NewChunker(4, 2)
	require.NoError(t, err)

	chunks := c.Split("one two three four five six")
	require.Len(t, chunks, 2)
	assert.Equal(t, "one two three four", chunks[0])
	assert.Equal(t, "three four five six", chunks[1])
}

func TestChunker_ExactWindowNoTrailingChunk(t *testing.T) {
	c, err := NewChunker(10, 4)
	require.NoError(t, err)

	// 刚好一个窗口时不应产生重复的尾块
	chunks := c.Split(words(10))
	require.Len(t, chunks, 1)
}
