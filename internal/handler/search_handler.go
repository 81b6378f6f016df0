package handler

import (
	"encoding/json"
	"net/http"

	"needle-go/internal/service"
	"needle-go/pkg/log"
	"needle-go/pkg/tika"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了论文检索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
	tikaClient    *tika.Client
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService, tikaClient *tika.Client) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		tikaClient:    tikaClient,
	}
}

// searchRequest 是论文检索请求体。
type searchRequest struct {
	Query  string                `json:"query" binding:"required"`
	TopK   int                   `json:"topK"`
	Filter *service.FilterConfig `json:"filter"`
}

// SearchPapers 处理语义检索请求。
func (h *SearchHandler) SearchPapers(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[SearchHandler] 检索请求参数无效: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询参数"})
		return
	}
	log.Infof("[SearchHandler] 收到检索请求, query: %s, topK: %d", req.Query, req.TopK)

	results, err := h.searchService.SearchPapers(c.Request.Context(), req.Query, req.Filter, req.TopK)
	if err != nil {
		log.Errorf("[SearchHandler] 检索服务返回错误, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "搜索失败"})
		return
	}

	log.Infof("[SearchHandler] 检索成功, query: '%s', 返回 %d 条结果", req.Query, len(results))
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}

// promptRequest 是 Prompt2Paper 请求体。
type promptRequest struct {
	Prompt string                `json:"prompt" binding:"required"`
	TopK   int                   `json:"topK"`
	Filter *service.FilterConfig `json:"filter"`
}

// Prompt2Paper 处理自然语言找论文请求：先改写成检索查询再检索。
func (h *SearchHandler) Prompt2Paper(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询参数"})
		return
	}
	log.Infof("[SearchHandler] 收到 Prompt2Paper 请求, prompt: %s", req.Prompt)

	query, results, err := h.searchService.Prompt2Paper(c.Request.Context(), req.Prompt, req.Filter, req.TopK)
	if err != nil {
		log.Errorf("[SearchHandler] Prompt2Paper 服务返回错误, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "搜索失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"query": query, "results": results},
		"message": "success",
	})
}

// GetPaper 返回单篇论文的元数据详情。
func (h *SearchHandler) GetPaper(c *gin.Context) {
	id := c.Param("id")
	paper, err := h.searchService.GetPaper(id)
	if err != nil {
		log.Errorf("[SearchHandler] 查询论文详情失败, id: %s, error: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询论文详情失败"})
		return
	}
	if paper == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "论文不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": paper, "message": "success"})
}

// PDF2Paper 处理以文找文请求：上传一篇 PDF，返回相关论文并标注引用关系。
func (h *SearchHandler) PDF2Paper(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}
	defer file.Close()
	log.Infof("[SearchHandler] 收到 PDF2Paper 请求, file: %s", header.Filename)

	text, err := h.tikaClient.ExtractText(c.Request.Context(), file, header.Filename)
	if err != nil {
		log.Errorf("[SearchHandler] 提取 PDF 文本失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "提取 PDF 文本失败"})
		return
	}

	// 过滤条件通过表单字段以 JSON 传递，解析失败时忽略过滤
	var filter *service.FilterConfig
	if raw := c.PostForm("filter"); raw != "" {
		filter = &service.FilterConfig{}
		if err := json.Unmarshal([]byte(raw), filter); err != nil {
			log.Warnf("[SearchHandler] 解析过滤条件失败, 忽略过滤: %v", err)
			filter = nil
		}
	}
	results, err := h.searchService.PDF2Paper(c.Request.Context(), text, filter, 0)
	if err != nil {
		log.Errorf("[SearchHandler] PDF2Paper 服务返回错误, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "搜索失败"})
		return
	}

	log.Infof("[SearchHandler] PDF2Paper 成功, 返回 %d 条结果", len(results))
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}
