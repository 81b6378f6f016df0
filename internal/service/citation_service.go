package service

import (
	"context"
	"strconv"
	"strings"

	"needle-go/pkg/crossref"
	"needle-go/pkg/log"
	"needle-go/pkg/opencitations"
)

// YearSource 标记一条引文的年份来自哪一侧。
type YearSource string

const (
	// YearFromRegistry 表示年份来自出版登记库（Crossref）。
	YearFromRegistry YearSource = "registry"
	// YearFromGraph 表示年份来自引文图谱自带的日期字段。
	YearFromGraph YearSource = "graph"
	// YearUnresolved 表示两侧都取不到年份。
	YearUnresolved YearSource = "unresolved"
)

// YearResolution 是一条引文的年份解析结果。
// Source 为 YearUnresolved 时 Year 无意义。
type YearResolution struct {
	Citing string     `json:"citing"`
	Year   int        `json:"year"`
	Source YearSource `json:"source"`
}

// CitationService 定义了引文图谱分析的操作接口。
type CitationService interface {
	// CountForYear 统计指定年份的被引次数，返回命中数和命中的引用方 DOI 列表。
	CountForYear(ctx context.Context, doi string, year int) (int, []string, error)
	// CountAllTime 统计全部被引次数：不做年份解析，引用方 DOI 去重后计数。
	CountAllTime(ctx context.Context, doi string) (int, []string, error)
}

type citationService struct {
	ocClient       *opencitations.Client
	crossrefClient *crossref.Client
}

// NewCitationService 创建一个新的 CitationService 实例。
func NewCitationService(ocClient *opencitations.Client, crossrefClient *crossref.Client) CitationService {
	return &citationService{ocClient: ocClient, crossrefClient: crossrefClient}
}

// CountForYear 统计一个 DOI 在指定年份的被引次数。
// 只有解析出的年份与目标年份完全相等的引文才计入，未解析的条目不参与。
func (s *citationService) CountForYear(ctx context.Context, doi string, year int) (int, []string, error) {
	rows, err := s.ocClient.Citations(ctx, doi)
	if err != nil {
		return 0, nil, err
	}
	resolutions := make([]YearResolution, 0, len(rows))
	for _, e := range extractCiting(rows) {
		resolutions = append(resolutions, s.resolveYear(ctx, e))
	}
	matched := matchingDOIs(resolutions, year)
	log.Infof("[CitationService] 年份统计完成, doi: %s, year: %d, count: %d/%d", doi, year, len(matched), len(resolutions))
	return len(matched), matched, nil
}

// CountAllTime 统计一个 DOI 的全部被引次数。
// 不做年份解析，同一个引用方 DOI 只算一次，列表保持首次出现的顺序。
func (s *citationService) CountAllTime(ctx context.Context, doi string) (int, []string, error) {
	rows, err := s.ocClient.Citations(ctx, doi)
	if err != nil {
		return 0, nil, err
	}
	count, dois := allTimeCitations(rows)
	log.Infof("[CitationService] 全量统计完成, doi: %s, 去重后引文数: %d/%d", doi, count, len(rows))
	return count, dois, nil
}

// citingEntry 是一条携带有效 DOI 的引文行。
type citingEntry struct {
	DOI      string
	Creation string
}

// extractCiting 从图谱行中取出带 DOI 的条目，解析不出 DOI 的行整行跳过。
func extractCiting(rows []opencitations.CitationRow) []citingEntry {
	entries := make([]citingEntry, 0, len(rows))
	for _, row := range rows {
		citingDOI := ExtractDOIFromCompound(row.Citing)
		if citingDOI == "" {
			continue
		}
		entries = append(entries, citingEntry{DOI: citingDOI, Creation: row.Creation})
	}
	return entries
}

// matchingDOIs 返回解析结果中命中指定年份的引用方 DOI，未解析的条目不参与。
func matchingDOIs(resolutions []YearResolution, year int) []string {
	matched := make([]string, 0, len(resolutions))
	for _, r := range resolutions {
		if r.Source != YearUnresolved && r.Year == year {
			matched = append(matched, r.Citing)
		}
	}
	return matched
}

// allTimeCitations 提取引用方 DOI 并去重，返回去重后的数量和列表。
func allTimeCitations(rows []opencitations.CitationRow) (int, []string) {
	entries := extractCiting(rows)
	dois := make([]string, 0, len(entries))
	for _, e := range entries {
		dois = append(dois, e.DOI)
	}
	dois = dedupFirstSeen(dois)
	return len(dois), dois
}

// dedupFirstSeen 去重并保持元素首次出现的顺序。
func dedupFirstSeen(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// resolveYear 解析一条引文的年份：优先出版登记库，回退图谱日期。
func (s *citationService) resolveYear(ctx context.Context, e citingEntry) YearResolution {
	year, err := s.crossrefClient.Year(ctx, e.DOI)
	if err != nil {
		log.Warnf("[CitationService] 登记库查询失败, doi: %s, error: %v, 回退图谱日期", e.DOI, err)
	} else if year > 0 {
		return YearResolution{Citing: e.DOI, Year: year, Source: YearFromRegistry}
	}
	if year := GraphYear(e.Creation); year > 0 {
		return YearResolution{Citing: e.DOI, Year: year, Source: YearFromGraph}
	}
	return YearResolution{Citing: e.DOI, Source: YearUnresolved}
}

// ExtractDOIFromCompound 从图谱返回的复合标识串中取出 DOI。
// citing 字段形如 "omid:br/123 doi:10.1234/abc; pmid:999"，
// 取 "doi:" 之后直到空格或分号的部分。
func ExtractDOIFromCompound(compound string) string {
	lower := strings.ToLower(compound)
	idx := strings.Index(lower, "doi:")
	if idx < 0 {
		return ""
	}
	rest := compound[idx+len("doi:"):]
	if end := strings.IndexAny(rest, " ;"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// GraphYear 从图谱的 creation 字段解析年份。
// 字段可能是 "2021-03-15; index => ..." 这类组合值，取第一段的前 4 位。
func GraphYear(creation string) int {
	first := creation
	if idx := strings.Index(first, ";"); idx >= 0 {
		first = first[:idx]
	}
	if idx := strings.Index(first, "=>"); idx >= 0 {
		first = first[idx+2:]
	}
	first = strings.TrimSpace(first)
	if len(first) < 4 {
		return 0
	}
	year, err := strconv.Atoi(first[:4])
	if err != nil {
		return 0
	}
	return year
}
