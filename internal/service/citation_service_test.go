package service

import (
	"testing"

	"needle-go/pkg/opencitations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDOIFromCompound(t *testing.T) {
	assert.Equal(t, "10.1234/abc",
		ExtractDOIFromCompound("omid:br/06101 doi:10.1234/abc; pmid:12345"))
	assert.Equal(t, "10.1234/abc",
		ExtractDOIFromCompound("doi:10.1234/abc"))
	assert.Equal(t, "10.1234/abc",
		ExtractDOIFromCompound("DOI:10.1234/abc pmid:99"))
	assert.Equal(t, "", ExtractDOIFromCompound("omid:br/06101 pmid:12345"))
	assert.Equal(t, "", ExtractDOIFromCompound(""))
}

func TestGraphYear(t *testing.T) {
	assert.Equal(t, 2021, GraphYear("2021-03-15"))
	assert.Equal(t, 2021, GraphYear("2021-03-15; index => 2022-01"))
	assert.Equal(t, 2019, GraphYear("index => 2019-07"))
	assert.Equal(t, 2020, GraphYear("2020"))
	assert.Equal(t, 0, GraphYear(""))
	assert.Equal(t, 0, GraphYear("n/a"))
}

func TestExtractCiting_SkipsRowsWithoutDOI(t *testing.T) {
	rows := []opencitations.CitationRow{
		{Citing: "omid:br/1 doi:10.1/a", Creation: "2020-05-01"},
		{Citing: "omid:br/2 pmid:999", Creation: "2020-06-01"},
		{Citing: "doi:10.1/b", Creation: "2021-01-01"},
	}

	entries := extractCiting(rows)
	require.Len(t, entries, 2)
	assert.Equal(t, "10.1/a", entries[0].DOI)
	assert.Equal(t, "2020-05-01", entries[0].Creation)
	assert.Equal(t, "10.1/b", entries[1].DOI)
}

func TestMatchingDOIs(t *testing.T) {
	resolutions := []YearResolution{
		{Citing: "10.1/a", Year: 2020, Source: YearFromGraph},
		{Citing: "10.1/b", Year: 2020, Source: YearFromRegistry},
		{Citing: "10.1/c", Year: 2021, Source: YearFromGraph},
		{Citing: "10.1/d", Source: YearUnresolved},
	}

	assert.Equal(t, []string{"10.1/a", "10.1/b"}, matchingDOIs(resolutions, 2020))
	assert.Equal(t, []string{"10.1/c"}, matchingDOIs(resolutions, 2021))
	assert.Empty(t, matchingDOIs(resolutions, 2019))
	// 未解析条目年份为零值，不能被按 0 统计到
	assert.Empty(t, matchingDOIs(resolutions, 0))
}

func TestAllTimeCitations_DedupsCitingDOIs(t *testing.T) {
	rows := []opencitations.CitationRow{
		{Citing: "doi:10.1/dup", Creation: "2020-05-01"},
		{Citing: "doi:10.1/other", Creation: "2020-11-02"},
		{Citing: "omid:br/3 doi:10.1/dup; pmid:1", Creation: "2021-01-01"},
	}

	count, dois := allTimeCitations(rows)
	// 同一个引用方 DOI 出现多次只算一次，顺序保持首次出现
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"10.1/dup", "10.1/other"}, dois)
}

func TestAllTimeCitations_Empty(t *testing.T) {
	count, dois := allTimeCitations(nil)
	assert.Equal(t, 0, count)
	assert.Empty(t, dois)
}

func TestDedupFirstSeen(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupFirstSeen([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, dedupFirstSeen(nil))
}
