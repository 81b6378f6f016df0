package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"needle-go/internal/config"
	"needle-go/internal/model"
	"needle-go/internal/references"
	"needle-go/internal/repository"
	"needle-go/pkg/embedding"
	"needle-go/pkg/es"
	"needle-go/pkg/llm"
	"needle-go/pkg/log"
)

// SearchService 定义了论文检索的操作接口。
type SearchService interface {
	// SearchPapers 用查询文本在语料库索引中做语义检索，结果经元数据回填与过滤。
	SearchPapers(ctx context.Context, query string, filter *FilterConfig, topK int) ([]model.PaperMatch, error)
	// Prompt2Paper 先让 LLM 把自然语言问题改写成检索查询，再执行论文检索。
	Prompt2Paper(ctx context.Context, prompt string, filter *FilterConfig, topK int) (string, []model.PaperMatch, error)
	// PDF2Paper 用一篇 PDF 的正文找相关论文，并标注哪些结果被该 PDF 实际引用。
	PDF2Paper(ctx context.Context, pdfText string, filter *FilterConfig, topK int) ([]model.PaperMatch, error)
	// SearchLibrary 在用户文献库索引中检索分块。
	SearchLibrary(ctx context.Context, query string, topK int) ([]model.ChunkMatch, error)
	// GetPaper 按 id 查询单篇论文的元数据，不存在时返回 nil。
	GetPaper(id string) (*model.Paper, error)
}

type searchService struct {
	embeddingClient embedding.Client
	llmClient       llm.Client
	paperRepo       repository.PaperRepository
	chunkRepo       repository.ChunkRepository
	searchCfg       config.SearchConfig
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(
	embeddingClient embedding.Client,
	llmClient llm.Client,
	paperRepo repository.PaperRepository,
	chunkRepo repository.ChunkRepository,
	searchCfg config.SearchConfig,
) SearchService {
	return &searchService{
		embeddingClient: embeddingClient,
		llmClient:       llmClient,
		paperRepo:       paperRepo,
		chunkRepo:       chunkRepo,
		searchCfg:       searchCfg,
	}
}

// SearchPapers 执行语料库语义检索。
func (s *searchService) SearchPapers(ctx context.Context, query string, filter *FilterConfig, topK int) ([]model.PaperMatch, error) {
	log.Infof("[SearchService] 开始论文检索, query: '%s', topK: %d", query, topK)
	if topK <= 0 {
		topK = s.searchCfg.PapersTopK
	}

	// 1. 向量化查询
	log.Info("[SearchService] 步骤1: 向量化查询")
	vectors, err := s.embeddingClient.Embed(ctx, []string{query})
	if err != nil {
		log.Errorf("[SearchService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	// 2. 近邻查询
	log.Info("[SearchService] 步骤2: 查询向量索引")
	neighbors, err := es.QueryNearest(ctx, es.IndexPapers, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	// 3. 元数据回填与过滤
	log.Infof("[SearchService] 步骤3: 回填元数据并过滤, 命中: %d", len(neighbors))
	matches, err := s.hydratePapers(neighbors)
	if err != nil {
		return nil, err
	}
	matches = applyFilter(matches, filter)
	sortByDateDesc(matches)
	log.Infof("[SearchService] 论文检索完成, 返回 %d 条结果", len(matches))
	return matches, nil
}

// sortByDateDesc 按最新创建日期倒序排列结果，日期相同保持原有得分序。
// 日期是 "2021-03-15" 形式的字符串，字典序即时间序。
func sortByDateDesc(matches []model.PaperMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Paper.LatestCreationDate > matches[j].Paper.LatestCreationDate
	})
}

// hydratePapers 把近邻命中批量回填为带元数据的结果行，保持索引返回的得分序。
// 元数据缺失的 id 用零值记录兜底，不中断整个查询。
func (s *searchService) hydratePapers(neighbors []es.Neighbor) ([]model.PaperMatch, error) {
	ids := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, n.ID)
	}
	papers, err := s.paperRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("批量查询论文元数据失败: %w", err)
	}

	matches := make([]model.PaperMatch, 0, len(neighbors))
	for _, n := range neighbors {
		paper, ok := papers[n.ID]
		if !ok {
			log.Warnf("[SearchService] 未找到 id '%s' 对应的论文元数据, 使用空记录", n.ID)
			paper = model.Paper{ID: n.ID}
		}
		matches = append(matches, model.PaperMatch{ID: n.ID, Score: n.Score, Paper: paper})
	}
	return matches, nil
}

// applyFilter 对结果行应用元数据过滤条件。
func applyFilter(matches []model.PaperMatch, filter *FilterConfig) []model.PaperMatch {
	if filter.IsZero() {
		return matches
	}
	filtered := make([]model.PaperMatch, 0, len(matches))
	for _, m := range matches {
		if filter.Matches(m.Paper) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// promptRewriteInstruction 指导 LLM 把研究问题压缩成适合语义检索的查询。
const promptRewriteInstruction = "You turn research questions into concise search queries for a " +
	"scientific paper search engine. Reply with the query only, no explanations or quotes."

// Prompt2Paper 先改写提问再检索，返回改写后的查询和检索结果。
// 改写失败时退回原始提问，检索照常进行。
func (s *searchService) Prompt2Paper(ctx context.Context, prompt string, filter *FilterConfig, topK int) (string, []model.PaperMatch, error) {
	log.Infof("[SearchService] Prompt2Paper, prompt: '%s'", prompt)
	query, err := s.llmClient.Complete(ctx, []llm.Message{
		{Role: "system", Content: promptRewriteInstruction},
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil || strings.TrimSpace(query) == "" {
		log.Warnf("[SearchService] 查询改写失败, 使用原始提问检索, error: %v", err)
		query = prompt
	} else {
		query = strings.TrimSpace(query)
		log.Infof("[SearchService] 查询改写: '%s' -> '%s'", prompt, query)
	}

	matches, err := s.SearchPapers(ctx, query, filter, topK)
	if err != nil {
		return query, nil, err
	}
	return query, matches, nil
}

// PDF2Paper 用 PDF 正文检索相关论文并标注引用关系。
func (s *searchService) PDF2Paper(ctx context.Context, pdfText string, filter *FilterConfig, topK int) ([]model.PaperMatch, error) {
	log.Infof("[SearchService] PDF2Paper, 正文长度: %d 字符", len(pdfText))

	// 查询文本截断到前若干词，完整正文仍用于引用标注
	queryText := capWords(pdfText, s.searchCfg.MaxPDFWords)
	matches, err := s.SearchPapers(ctx, queryText, filter, topK)
	if err != nil {
		return nil, err
	}

	refSet := references.Extract(pdfText)
	references.Annotate(matches, refSet)
	linked := 0
	for _, m := range matches {
		if m.LinkedInPDF {
			linked++
		}
	}
	log.Infof("[SearchService] 引用标注完成, %d/%d 条结果在 PDF 参考文献中出现", linked, len(matches))
	return matches, nil
}

// SearchLibrary 在文献库索引中做语义检索。索引未配置时返回空结果。
func (s *searchService) SearchLibrary(ctx context.Context, query string, topK int) ([]model.ChunkMatch, error) {
	log.Infof("[SearchService] 开始文献库检索, query: '%s', topK: %d", query, topK)
	if topK <= 0 {
		topK = s.searchCfg.LibraryTopK
	}

	vectors, err := s.embeddingClient.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	neighbors, err := es.QueryNearest(ctx, es.IndexLibrary, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(neighbors) == 0 {
		return []model.ChunkMatch{}, nil
	}

	ids := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, n.ID)
	}
	chunks, err := s.chunkRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("批量查询分块元数据失败: %w", err)
	}

	matches := make([]model.ChunkMatch, 0, len(neighbors))
	for _, n := range neighbors {
		chunk, ok := chunks[n.ID]
		if !ok {
			log.Warnf("[SearchService] 未找到 id '%s' 对应的分块元数据, 使用空记录", n.ID)
			chunk = model.ChunkRecord{ID: n.ID}
		}
		matches = append(matches, model.ChunkMatch{ID: n.ID, Score: n.Score, Chunk: chunk})
	}
	log.Infof("[SearchService] 文献库检索完成, 返回 %d 条结果", len(matches))
	return matches, nil
}

// GetPaper 按 id 查询单篇论文的元数据。
func (s *searchService) GetPaper(id string) (*model.Paper, error) {
	return s.paperRepo.FindByID(id)
}

// capWords 把文本截断到前 n 个词，n 不为正时不截断。
func capWords(text string, n int) string {
	if n <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
