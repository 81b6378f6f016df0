package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"needle-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContextBlocks_NumbersAndHeaders(t *testing.T) {
	matches := []model.ChunkMatch{
		{Chunk: model.ChunkRecord{Title: "Paper A", Authors: "Alice", Text: "first excerpt"}},
		{Chunk: model.ChunkRecord{Title: "Paper B", Text: "second excerpt"}},
	}

	text := buildContextBlocks(matches)
	assert.Contains(t, text, "[1] Paper A — Alice\nfirst excerpt")
	assert.Contains(t, text, "[2] Paper B\nsecond excerpt")
}

func TestBuildContextBlocks_CapsLongText(t *testing.T) {
	long := strings.Repeat("x", maxContextBlockChars+500)
	matches := []model.ChunkMatch{{Chunk: model.ChunkRecord{Title: "T", Text: long}}}

	text := buildContextBlocks(matches)
	assert.Less(t, len(text), maxContextBlockChars+200)
	assert.Contains(t, text, "…")
}

func TestBuildContextBlocks_CapKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("引", maxContextBlockChars+10)
	matches := []model.ChunkMatch{{Chunk: model.ChunkRecord{Title: "T", Text: long}}}

	text := buildContextBlocks(matches)
	assert.True(t, utf8.ValidString(text))
	assert.NotContains(t, text, "�")
	assert.Contains(t, text, "…")
}

func TestBuildContextBlocks_Empty(t *testing.T) {
	assert.Equal(t, "", buildContextBlocks(nil))
}

func TestComposeMessages_TruncatesHistory(t *testing.T) {
	history := make([]model.ChatMessage, 0, 20)
	for i := 0; i < 10; i++ {
		history = append(history,
			model.ChatMessage{Role: "user", Content: "q"},
			model.ChatMessage{Role: "assistant", Content: "a"},
		)
	}

	msgs := composeMessages("sys", history, "latest question")
	// system + 最近 6 轮(12 条) + 本轮提问
	require.Len(t, msgs, 1+maxHistoryTurns*2+1)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, "latest question", msgs[len(msgs)-1].Content)
}

func TestComposeMessages_ShortHistoryKeptWhole(t *testing.T) {
	history := []model.ChatMessage{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
	}

	msgs := composeMessages("sys", history, "q2")
	require.Len(t, msgs, 4)
	assert.Equal(t, "q1", msgs[1].Content)
	assert.Equal(t, "a1", msgs[2].Content)
}

func TestBuildCitations_DedupByDocument(t *testing.T) {
	matches := []model.ChunkMatch{
		{Score: 0.9, Chunk: model.ChunkRecord{Title: "Paper A", Authors: "Alice", Link: "https://arxiv.org/pdf/1"}},
		{Score: 0.8, Chunk: model.ChunkRecord{Title: "Paper A", Authors: "Alice", Link: "https://arxiv.org/pdf/1"}},
		{Score: 0.7, Chunk: model.ChunkRecord{Title: "Paper B", Link: "https://arxiv.org/pdf/2"}},
	}

	citations := buildCitations(matches)
	require.Len(t, citations, 2)
	// 同一篇文档保留得分最高的第一条
	assert.Equal(t, "Paper A", citations[0].Title)
	assert.Equal(t, 0.9, citations[0].Score)
	assert.Equal(t, "Paper B", citations[1].Title)
}

func TestBuildSystemMessage_WrapsContext(t *testing.T) {
	msg := buildSystemMessage("[1] Paper A\nexcerpt\n")
	assert.Contains(t, msg, "<<REF>>")
	assert.Contains(t, msg, "<<END>>")
	assert.Contains(t, msg, "[1] Paper A")

	empty := buildSystemMessage("")
	assert.Contains(t, empty, "（本轮无检索结果）")
}
