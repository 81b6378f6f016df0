package repository

import (
	"testing"

	"needle-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateDocuments_GroupsAndCounts(t *testing.T) {
	chunks := []model.ChunkRecord{
		{ID: "2101.00001_0", Title: "Paper A", Source: model.SourceArxiv, ArxivID: "2101.00001"},
		{ID: "2101.00001_1", Title: "Paper A", Source: model.SourceArxiv, ArxivID: "2101.00001"},
		{ID: "upload-report_0", Title: "Quarterly Report", Source: model.SourceUploadedPDF},
		{ID: "2101.00001_2", Title: "Paper A", Source: model.SourceArxiv, ArxivID: "2101.00001"},
	}

	docs := AggregateDocuments(chunks, 0)
	require.Len(t, docs, 2)

	// 按 (source, title) 排序：arxiv 在 uploaded_pdf 之前
	assert.Equal(t, "2101.00001", docs[0].DocID)
	assert.Equal(t, 3, docs[0].ChunkCount)
	assert.Equal(t, "upload-report", docs[1].DocID)
	assert.Equal(t, 1, docs[1].ChunkCount)
}

func TestAggregateDocuments_FirstSeenWins(t *testing.T) {
	chunks := []model.ChunkRecord{
		{ID: "doc_0", Title: "Original Title", Source: model.SourceUploadedPDF},
		{ID: "doc_1", Title: "Stale Title", Source: model.SourceUploadedPDF},
	}

	docs := AggregateDocuments(chunks, 0)
	require.Len(t, docs, 1)
	assert.Equal(t, "Original Title", docs[0].Title)
}

func TestAggregateDocuments_Limit(t *testing.T) {
	chunks := []model.ChunkRecord{
		{ID: "a_0", Title: "A", Source: model.SourceArxiv},
		{ID: "b_0", Title: "B", Source: model.SourceArxiv},
		{ID: "c_0", Title: "C", Source: model.SourceArxiv},
	}

	docs := AggregateDocuments(chunks, 2)
	require.Len(t, docs, 2)
	assert.Equal(t, "A", docs[0].Title)
	assert.Equal(t, "B", docs[1].Title)
}

func TestAggregateDocuments_Empty(t *testing.T) {
	assert.Empty(t, AggregateDocuments(nil, 10))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `plain`, escapeLike("plain"))
	assert.Equal(t, `50\%`, escapeLike("50%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}
