// Package service 包含了应用的业务逻辑层。
package service

import (
	"strconv"
	"strings"

	"needle-go/internal/model"
)

// FilterConfig 是检索结果的元数据过滤条件，各字段之间是 AND 关系。
// 零值过滤器不过滤任何结果。
type FilterConfig struct {
	Categories []string `json:"categories"` // 命中任一分类即通过
	YearFrom   int      `json:"yearFrom"`
	YearTo     int      `json:"yearTo"`
	Keywords   []string `json:"keywords"` // 全部关键词都要出现在标题或摘要中
	Author     string   `json:"author"`   // 作者名子串匹配
}

// IsZero 判断过滤器是否为空。
func (f *FilterConfig) IsZero() bool {
	return f == nil || (len(f.Categories) == 0 && f.YearFrom == 0 && f.YearTo == 0 &&
		len(f.Keywords) == 0 && f.Author == "")
}

// Matches 判断一篇论文是否满足全部过滤条件。
func (f *FilterConfig) Matches(p model.Paper) bool {
	if f.IsZero() {
		return true
	}
	if len(f.Categories) > 0 && !matchesAnyCategory(p.Categories, f.Categories) {
		return false
	}
	if f.YearFrom != 0 || f.YearTo != 0 {
		year := paperYear(p)
		if year == 0 {
			return false
		}
		if f.YearFrom != 0 && year < f.YearFrom {
			return false
		}
		if f.YearTo != 0 && year > f.YearTo {
			return false
		}
	}
	if len(f.Keywords) > 0 {
		haystack := strings.ToLower(p.Title + " " + p.Abstract)
		for _, kw := range f.Keywords {
			if !strings.Contains(haystack, strings.ToLower(strings.TrimSpace(kw))) {
				return false
			}
		}
	}
	if f.Author != "" && !strings.Contains(strings.ToLower(p.Authors), strings.ToLower(f.Author)) {
		return false
	}
	return true
}

// matchesAnyCategory 判断论文的分类串里是否出现任一目标分类。
func matchesAnyCategory(paperCategories string, wanted []string) bool {
	cats := strings.Fields(paperCategories)
	for _, w := range wanted {
		for _, c := range cats {
			if strings.EqualFold(c, strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

// paperYear 从论文的创建日期字段取年份（前 4 位），取不到返回 0。
func paperYear(p model.Paper) int {
	d := strings.TrimSpace(p.LatestCreationDate)
	if len(d) < 4 {
		return 0
	}
	year, err := strconv.Atoi(d[:4])
	if err != nil {
		return 0
	}
	return year
}
