package service

import (
	"testing"

	"needle-go/internal/model"

	"github.com/stretchr/testify/assert"
)

func samplePaper() model.Paper {
	return model.Paper{
		ID:                 "2101.00001",
		Title:              "Attention Is All You Need",
		Authors:            "Ashish Vaswani, Noam Shazeer",
		Abstract:           "We propose the Transformer, a model architecture based on attention.",
		Categories:         "cs.CL cs.LG",
		LatestCreationDate: "2017-06-12",
	}
}

func TestFilter_ZeroMatchesEverything(t *testing.T) {
	var f *FilterConfig
	assert.True(t, f.IsZero())
	assert.True(t, f.Matches(samplePaper()))

	empty := &FilterConfig{}
	assert.True(t, empty.IsZero())
	assert.True(t, empty.Matches(model.Paper{}))
}

func TestFilter_Categories(t *testing.T) {
	f := &FilterConfig{Categories: []string{"cs.CL"}}
	assert.True(t, f.Matches(samplePaper()))

	f = &FilterConfig{Categories: []string{"CS.LG"}}
	assert.True(t, f.Matches(samplePaper()), "分类匹配不区分大小写")

	f = &FilterConfig{Categories: []string{"math.CO"}}
	assert.False(t, f.Matches(samplePaper()))
}

func TestFilter_YearRange(t *testing.T) {
	f := &FilterConfig{YearFrom: 2016, YearTo: 2018}
	assert.True(t, f.Matches(samplePaper()))

	f = &FilterConfig{YearFrom: 2018}
	assert.False(t, f.Matches(samplePaper()))

	f = &FilterConfig{YearTo: 2016}
	assert.False(t, f.Matches(samplePaper()))

	// 没有日期的论文不能通过年份过滤
	f = &FilterConfig{YearFrom: 2000}
	assert.False(t, f.Matches(model.Paper{Title: "undated"}))
}

func TestFilter_KeywordsAreANDed(t *testing.T) {
	f := &FilterConfig{Keywords: []string{"transformer", "attention"}}
	assert.True(t, f.Matches(samplePaper()))

	f = &FilterConfig{Keywords: []string{"transformer", "convolution"}}
	assert.False(t, f.Matches(samplePaper()))
}

func TestFilter_AuthorSubstring(t *testing.T) {
	f := &FilterConfig{Author: "vaswani"}
	assert.True(t, f.Matches(samplePaper()))

	f = &FilterConfig{Author: "hinton"}
	assert.False(t, f.Matches(samplePaper()))
}

func TestFilter_CombinedConditions(t *testing.T) {
	f := &FilterConfig{
		Categories: []string{"cs.CL"},
		YearFrom:   2017,
		Keywords:   []string{"attention"},
		Author:     "Shazeer",
	}
	assert.True(t, f.Matches(samplePaper()))

	f.YearFrom = 2020
	assert.False(t, f.Matches(samplePaper()))
}
