package service

import (
	"testing"

	"needle-go/internal/model"
	"needle-go/pkg/es"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePaperRepo 用内存 map 充当论文元数据表。
type fakePaperRepo struct {
	papers map[string]model.Paper
}

func (f *fakePaperRepo) BatchUpsert(papers []*model.Paper) error { return nil }

func (f *fakePaperRepo) FindByIDs(ids []string) (map[string]model.Paper, error) {
	result := make(map[string]model.Paper)
	for _, id := range ids {
		if p, ok := f.papers[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (f *fakePaperRepo) FindByID(id string) (*model.Paper, error) {
	if p, ok := f.papers[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakePaperRepo) Count() (int64, error) { return int64(len(f.papers)), nil }

func TestHydratePapers_PreservesScoreOrderAndDefaults(t *testing.T) {
	repo := &fakePaperRepo{papers: map[string]model.Paper{
		"known": {ID: "known", Title: "Known Paper"},
	}}
	s := &searchService{paperRepo: repo}

	neighbors := []es.Neighbor{
		{ID: "known", Score: 0.9},
		{ID: "missing", Score: 0.5},
	}
	matches, err := s.hydratePapers(neighbors)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "Known Paper", matches[0].Paper.Title)
	assert.Equal(t, 0.9, matches[0].Score)
	// 元数据缺失时回填零值记录，只带 id
	assert.Equal(t, "missing", matches[1].ID)
	assert.Equal(t, model.Paper{ID: "missing"}, matches[1].Paper)
	assert.Equal(t, 0.5, matches[1].Score)
}

func TestApplyFilter(t *testing.T) {
	matches := []model.PaperMatch{
		{ID: "a", Paper: model.Paper{Title: "transformer survey", Abstract: "attention"}},
		{ID: "b", Paper: model.Paper{Title: "unrelated work", Abstract: "graphs"}},
	}

	// 空过滤器原样返回
	assert.Len(t, applyFilter(matches, nil), 2)

	filtered := applyFilter(matches, &FilterConfig{Keywords: []string{"attention"}})
	require.Len(t, filtered, 1)
	assert.Equal(t, "a", filtered[0].ID)
}

func TestSortByDateDesc(t *testing.T) {
	matches := []model.PaperMatch{
		{ID: "old", Score: 0.9, Paper: model.Paper{ID: "old", LatestCreationDate: "2019-01-10"}},
		{ID: "new", Score: 0.5, Paper: model.Paper{ID: "new", LatestCreationDate: "2023-06-01"}},
		{ID: "mid", Score: 0.7, Paper: model.Paper{ID: "mid", LatestCreationDate: "2021-03-15"}},
	}

	sortByDateDesc(matches)
	assert.Equal(t, "new", matches[0].ID)
	assert.Equal(t, "mid", matches[1].ID)
	assert.Equal(t, "old", matches[2].ID)
}

func TestSortByDateDesc_StableOnMissingDates(t *testing.T) {
	matches := []model.PaperMatch{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.8},
		{ID: "dated", Paper: model.Paper{LatestCreationDate: "2020-01-01"}},
	}

	// 无日期的结果排在有日期的后面，彼此保持原有得分序
	sortByDateDesc(matches)
	assert.Equal(t, "dated", matches[0].ID)
	assert.Equal(t, "a", matches[1].ID)
	assert.Equal(t, "b", matches[2].ID)
}

func TestCapWords(t *testing.T) {
	assert.Equal(t, "one two three", capWords("one two three", 0))
	assert.Equal(t, "one two three", capWords("one two three", 5))
	assert.Equal(t, "one two", capWords("one two three", 2))
}
