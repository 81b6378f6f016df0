// Package references 从 PDF 正文中抽取文献标识符（DOI、arXiv id、URL），
// 并用它们标注检索结果中哪些论文被该 PDF 实际引用。
package references

import (
	"regexp"
	"strings"

	"needle-go/internal/model"
)

var (
	doiPattern   = regexp.MustCompile(`(?i)10\.\d{4,9}/\S+`)
	arxivPattern = regexp.MustCompile(`(?i)arxiv:\s*(\d{4}\.\d{4,5})(v\d+)?`)
	urlPattern   = regexp.MustCompile(`https?://\S+`)
)

// Set 是从一段文本中抽取出的全部文献标识符，已归一化。
type Set struct {
	DOIs     map[string]struct{}
	ArxivIDs map[string]struct{}
	URLs     map[string]struct{}
}

// Extract 扫描文本并收集其中出现的所有 DOI、arXiv id 和 URL。
func Extract(text string) Set {
	set := Set{
		DOIs:     make(map[string]struct{}),
		ArxivIDs: make(map[string]struct{}),
		URLs:     make(map[string]struct{}),
	}
	for _, m := range doiPattern.FindAllString(text, -1) {
		set.DOIs[Normalize(m)] = struct{}{}
	}
	for _, m := range arxivPattern.FindAllStringSubmatch(text, -1) {
		// 去掉版本号，保留裸 id
		set.ArxivIDs[m[1]] = struct{}{}
	}
	for _, m := range urlPattern.FindAllString(text, -1) {
		set.URLs[Normalize(m)] = struct{}{}
	}
	return set
}

// Normalize 把一个原始标识符归一化：去空白、去结尾标点、转小写。
// PDF 抽取的标识符常把句尾标点一起带出来。
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, ".,;:)]}>\"'")
	return strings.ToLower(s)
}

// Matches 判断一篇论文是否被该标识符集合引用。
// DOI 和 arXiv id 按归一化后的精确匹配，URL 允许后缀包含
// （抽取出的链接可能带镜像前缀或缺少协议差异）。
func (s Set) Matches(p model.Paper) bool {
	if p.DOI != "" {
		if _, ok := s.DOIs[Normalize(p.DOI)]; ok {
			return true
		}
	}
	if p.ArxivID != "" {
		bare := strings.TrimPrefix(strings.ToLower(p.ArxivID), "arxiv:")
		if _, ok := s.ArxivIDs[bare]; ok {
			return true
		}
	}
	if p.PDFURL != "" {
		target := Normalize(p.PDFURL)
		for u := range s.URLs {
			if strings.HasSuffix(u, target) || strings.HasSuffix(target, u) {
				return true
			}
		}
	}
	return false
}

// Annotate 把标识符集合套在一组检索命中上，回填 LinkedInPDF 标记。
func Annotate(matches []model.PaperMatch, set Set) {
	for i := range matches {
		matches[i].LinkedInPDF = set.Matches(matches[i].Paper)
	}
}

// TitleAppears 判断论文标题是否逐字出现在文本中（大小写不敏感），
// 用于在标识符匹配失败时给出诊断提示。
func TitleAppears(text, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(title))
}
