package handler

import (
	"net/http"
	"strconv"

	"needle-go/internal/service"
	"needle-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// CitationHandler 结构体定义了引文分析相关的处理器。
type CitationHandler struct {
	citationService service.CitationService
}

// NewCitationHandler 创建一个新的 CitationHandler 实例。
func NewCitationHandler(citationService service.CitationService) *CitationHandler {
	return &CitationHandler{citationService: citationService}
}

// CountForYear 统计一个 DOI 在指定年份的被引次数。
// DOI 含斜杠，通过查询参数传递。
func (h *CitationHandler) CountForYear(c *gin.Context) {
	doi := c.Query("doi")
	if doi == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 doi 参数"})
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 year 参数"})
		return
	}
	log.Infof("[CitationHandler] 收到年份统计请求, doi: %s, year: %d", doi, year)

	count, dois, err := h.citationService.CountForYear(c.Request.Context(), doi, year)
	if err != nil {
		log.Errorf("[CitationHandler] 年份统计失败, doi: %s, error: %v", doi, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "引文统计失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"doi": doi, "year": year, "count": count, "citingDois": dois},
		"message": "success",
	})
}

// CountAllTime 统计一个 DOI 的全部被引次数（引用方 DOI 去重）。
func (h *CitationHandler) CountAllTime(c *gin.Context) {
	doi := c.Query("doi")
	if doi == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 doi 参数"})
		return
	}
	log.Infof("[CitationHandler] 收到全量统计请求, doi: %s", doi)

	count, dois, err := h.citationService.CountAllTime(c.Request.Context(), doi)
	if err != nil {
		log.Errorf("[CitationHandler] 全量统计失败, doi: %s, error: %v", doi, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "引文统计失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"doi": doi, "count": count, "citingDois": dois},
		"message": "success",
	})
}
