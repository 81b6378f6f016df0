package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"needle-go/internal/config"
	"needle-go/internal/model"
	"needle-go/internal/pipeline"
	"needle-go/internal/repository"
	"needle-go/pkg/es"
	"needle-go/pkg/kafka"
	"needle-go/pkg/log"
	"needle-go/pkg/storage"
	"needle-go/pkg/tasks"
)

// ReconcileReport 是向量索引与元数据表的对账结果。
// IndexOnly 是只在向量索引中存在的 id，MetadataOnly 是只在元数据表中存在的 id。
type ReconcileReport struct {
	IndexCount    int      `json:"indexCount"`
	MetadataCount int      `json:"metadataCount"`
	IndexOnly     []string `json:"indexOnly"`
	MetadataOnly  []string `json:"metadataOnly"`
}

// LibraryService 定义了文献库管理的操作接口。
type LibraryService interface {
	AddArxivPaper(ctx context.Context, arxivID string) (int, error)
	UploadPDF(ctx context.Context, fileName, title string, file io.Reader, size int64) (string, error)
	ListDocuments(ctx context.Context, limit int) ([]model.KBDocument, error)
	DeleteDocument(ctx context.Context, docID string) (int64, error)
	ClearLibrary(ctx context.Context) (int64, error)
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

type libraryService struct {
	processor *pipeline.Processor
	chunkRepo repository.ChunkRepository
	minioCfg  config.MinIOConfig
}

// NewLibraryService 创建一个新的 LibraryService 实例。
func NewLibraryService(processor *pipeline.Processor, chunkRepo repository.ChunkRepository, minioCfg config.MinIOConfig) LibraryService {
	return &libraryService{
		processor: processor,
		chunkRepo: chunkRepo,
		minioCfg:  minioCfg,
	}
}

// AddArxivPaper 把一篇 arXiv 论文同步加入文献库，返回分块数。
func (s *libraryService) AddArxivPaper(ctx context.Context, arxivID string) (int, error) {
	arxivID = strings.TrimSpace(arxivID)
	if arxivID == "" {
		return 0, fmt.Errorf("arXiv id 不能为空")
	}
	return s.processor.IngestArxivPaper(ctx, arxivID)
}

// UploadPDF 接收上传的 PDF：先写入对象存储，再投递入库任务，返回文档 id。
// 实际的切块与向量化由 Kafka 消费者异步完成。
func (s *libraryService) UploadPDF(ctx context.Context, fileName, title string, file io.Reader, size int64) (string, error) {
	docID := uploadDocID(fileName)
	objectName := fmt.Sprintf("uploads/%s.pdf", docID)

	log.Infof("[LibraryService] 接收上传 PDF, FileName: %s, DocID: %s", fileName, docID)
	if err := storage.PutPDF(ctx, s.minioCfg.BucketName, objectName, file, size); err != nil {
		return "", fmt.Errorf("写入对象存储失败: %w", err)
	}

	task := tasks.IngestionTask{
		DocID:      docID,
		ObjectName: objectName,
		FileName:   fileName,
		Title:      title,
	}
	if err := kafka.ProduceIngestionTask(task); err != nil {
		return "", fmt.Errorf("投递入库任务失败: %w", err)
	}
	log.Infof("[LibraryService] 入库任务已投递, DocID: %s", docID)
	return docID, nil
}

// uploadDocID 根据文件名生成上传文档的 id，带固定前缀以便与 arXiv 文档区分。
func uploadDocID(fileName string) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	slug := model.SafeKey(strings.ToLower(strings.TrimSpace(base)))
	if slug == "" {
		slug = "document"
	}
	return "upload-" + slug
}

// ListDocuments 列出文献库中的文档。
func (s *libraryService) ListDocuments(ctx context.Context, limit int) ([]model.KBDocument, error) {
	return s.chunkRepo.ListDocuments(limit)
}

// DeleteDocument 删除一篇文档，返回删除的分块数。
func (s *libraryService) DeleteDocument(ctx context.Context, docID string) (int64, error) {
	return s.processor.DeleteDocument(ctx, docID)
}

// ClearLibrary 清空整个文献库，返回删除的分块数。
func (s *libraryService) ClearLibrary(ctx context.Context) (int64, error) {
	log.Info("[LibraryService] 开始清空文献库")
	ids, err := es.AllIDs(ctx, es.IndexLibrary)
	if err != nil {
		return 0, fmt.Errorf("扫描向量索引失败: %w", err)
	}
	if len(ids) > 0 {
		if err := es.DeleteDatapoints(ctx, es.IndexLibrary, ids); err != nil {
			return 0, fmt.Errorf("清空向量索引失败: %w", err)
		}
	}
	deleted, err := s.chunkRepo.DeleteAll()
	if err != nil {
		return 0, fmt.Errorf("清空分块元数据失败: %w", err)
	}
	log.Infof("[LibraryService] 文献库已清空, 删除分块数: %d", deleted)
	return deleted, nil
}

// Reconcile 对比向量索引与元数据表的 id 集合，报告两侧各自多出的部分。
// 双写中断会留下单侧孤儿，这个扫描用来发现它们。
func (s *libraryService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	indexIDs, err := es.AllIDs(ctx, es.IndexLibrary)
	if err != nil {
		return nil, fmt.Errorf("扫描向量索引失败: %w", err)
	}
	metaIDs, err := s.chunkRepo.AllIDs()
	if err != nil {
		return nil, fmt.Errorf("扫描分块元数据失败: %w", err)
	}

	report := &ReconcileReport{
		IndexCount:    len(indexIDs),
		MetadataCount: len(metaIDs),
		IndexOnly:     diffIDs(indexIDs, metaIDs),
		MetadataOnly:  diffIDs(metaIDs, indexIDs),
	}
	if len(report.IndexOnly) > 0 || len(report.MetadataOnly) > 0 {
		log.Warnf("[LibraryService] 对账发现不一致, 仅索引侧: %d, 仅元数据侧: %d",
			len(report.IndexOnly), len(report.MetadataOnly))
	} else {
		log.Info("[LibraryService] 对账完成, 两侧一致")
	}
	return report, nil
}

// diffIDs 返回在 a 中但不在 b 中的 id，保持 a 的顺序。
func diffIDs(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
	}
	only := make([]string, 0)
	for _, id := range a {
		if _, ok := inB[id]; !ok {
			only = append(only, id)
		}
	}
	return only
}
