package handler

import (
	"net/http"
	"strconv"

	"needle-go/internal/service"
	"needle-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// LibraryHandler 结构体定义了文献库管理相关的处理器。
type LibraryHandler struct {
	libraryService service.LibraryService
}

// NewLibraryHandler 创建一个新的 LibraryHandler 实例。
func NewLibraryHandler(libraryService service.LibraryService) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService}
}

// addArxivRequest 是添加 arXiv 论文的请求体。
type addArxivRequest struct {
	ArxivID string `json:"arxivId" binding:"required"`
}

// AddArxivPaper 把一篇 arXiv 论文同步加入文献库。
func (h *LibraryHandler) AddArxivPaper(c *gin.Context) {
	var req addArxivRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 arxivId 参数"})
		return
	}
	log.Infof("[LibraryHandler] 收到添加 arXiv 论文请求, id: %s", req.ArxivID)

	chunkCount, err := h.libraryService.AddArxivPaper(c.Request.Context(), req.ArxivID)
	if err != nil {
		log.Errorf("[LibraryHandler] 添加 arXiv 论文失败, id: %s, error: %v", req.ArxivID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "添加论文失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"arxivId": req.ArxivID, "chunkCount": chunkCount},
		"message": "success",
	})
}

// UploadPDF 接收上传的 PDF 并投递异步入库任务。
func (h *LibraryHandler) UploadPDF(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}
	defer file.Close()
	title := c.PostForm("title")
	log.Infof("[LibraryHandler] 收到 PDF 上传请求, file: %s, size: %d", header.Filename, header.Size)

	docID, err := h.libraryService.UploadPDF(c.Request.Context(), header.Filename, title, file, header.Size)
	if err != nil {
		log.Errorf("[LibraryHandler] PDF 上传失败, file: %s, error: %v", header.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "上传失败"})
		return
	}

	// 入库是异步的，返回 docId 供后续查询与删除
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"docId": docID, "status": "queued"},
		"message": "success",
	})
}

// ListDocuments 列出文献库中的文档。
func (h *LibraryHandler) ListDocuments(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if err != nil || limit < 0 {
		limit = 200
	}

	docs, err := h.libraryService.ListDocuments(c.Request.Context(), limit)
	if err != nil {
		log.Errorf("[LibraryHandler] 列出文档失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "列出文档失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": docs, "message": "success"})
}

// DeleteDocument 删除一篇文档。
func (h *LibraryHandler) DeleteDocument(c *gin.Context) {
	docID := c.Param("docId")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 docId 参数"})
		return
	}
	log.Infof("[LibraryHandler] 收到删除文档请求, docId: %s", docID)

	deleted, err := h.libraryService.DeleteDocument(c.Request.Context(), docID)
	if err != nil {
		log.Errorf("[LibraryHandler] 删除文档失败, docId: %s, error: %v", docID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除文档失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"docId": docID, "deletedChunks": deleted},
		"message": "success",
	})
}

// ClearLibrary 清空整个文献库。
func (h *LibraryHandler) ClearLibrary(c *gin.Context) {
	log.Info("[LibraryHandler] 收到清空文献库请求")
	deleted, err := h.libraryService.ClearLibrary(c.Request.Context())
	if err != nil {
		log.Errorf("[LibraryHandler] 清空文献库失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清空文献库失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    200,
		"data":    gin.H{"deletedChunks": deleted},
		"message": "success",
	})
}

// Reconcile 对账向量索引与元数据表。
func (h *LibraryHandler) Reconcile(c *gin.Context) {
	report, err := h.libraryService.Reconcile(c.Request.Context())
	if err != nil {
		log.Errorf("[LibraryHandler] 对账失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "对账失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": report, "message": "success"})
}
