package references

import (
	"testing"

	"needle-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBibliography = `
References
[1] A. Author et al., Deep Learning for Proteins, doi:10.1234/abc.DEF-5.
[2] B. Author, Graph Networks, arXiv: 2101.00001v2.
[3] See https://arxiv.org/pdf/1706.03762.
`

func TestExtract_CollectsAllKinds(t *testing.T) {
	set := Extract(sampleBibliography)

	assert.Contains(t, set.DOIs, "10.1234/abc.def-5")
	assert.Contains(t, set.ArxivIDs, "2101.00001")
	assert.Contains(t, set.URLs, "https://arxiv.org/pdf/1706.03762")
}

func TestNormalize_StripsTrailingPunctuation(t *testing.T) {
	assert.Equal(t, "10.1234/abc", Normalize(" 10.1234/ABC). "))
	assert.Equal(t, "https://example.com/x", Normalize("https://example.com/x;"))
}

func TestMatches_DOICaseInsensitive(t *testing.T) {
	set := Extract("cited as doi:10.1234/AbC in the text")

	assert.True(t, set.Matches(model.Paper{DOI: "10.1234/abc"}))
	assert.True(t, set.Matches(model.Paper{DOI: "10.1234/ABC"}))
	assert.False(t, set.Matches(model.Paper{DOI: "10.9999/other"}))
}

func TestMatches_ArxivIDIgnoresVersionAndPrefix(t *testing.T) {
	set := Extract("see arXiv:2101.00001v3 for details")

	assert.True(t, set.Matches(model.Paper{ArxivID: "2101.00001"}))
	assert.True(t, set.Matches(model.Paper{ArxivID: "arXiv:2101.00001"}))
	assert.False(t, set.Matches(model.Paper{ArxivID: "2101.99999"}))
}

func TestMatches_URLSuffix(t *testing.T) {
	set := Extract("available at http://export.arxiv.org/pdf/1706.03762")

	// 抽取到的链接带镜像前缀，按后缀匹配论文链接
	assert.True(t, set.Matches(model.Paper{PDFURL: "arxiv.org/pdf/1706.03762"}))
	assert.False(t, set.Matches(model.Paper{PDFURL: "arxiv.org/pdf/9999.00000"}))
}

func TestMatches_EmptyPaperFields(t *testing.T) {
	set := Extract(sampleBibliography)
	assert.False(t, set.Matches(model.Paper{}))
}

func TestAnnotate_SetsLinkedFlag(t *testing.T) {
	set := Extract(sampleBibliography)
	matches := []model.PaperMatch{
		{ID: "a", Paper: model.Paper{DOI: "10.1234/abc.def-5"}},
		{ID: "b", Paper: model.Paper{DOI: "10.9999/none"}},
	}

	Annotate(matches, set)
	require.Len(t, matches, 2)
	assert.True(t, matches[0].LinkedInPDF)
	assert.False(t, matches[1].LinkedInPDF)
}

func TestTitleAppears(t *testing.T) {
	text := "as shown in Attention Is All You Need, transformers..."
	assert.True(t, TitleAppears(text, "attention is all you need"))
	assert.False(t, TitleAppears(text, "BERT pretraining"))
	assert.False(t, TitleAppears(text, "  "))
}
