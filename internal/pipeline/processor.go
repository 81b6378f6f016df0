// Package pipeline 定义了文档入库的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"needle-go/internal/config"
	"needle-go/internal/model"
	"needle-go/internal/repository"
	"needle-go/pkg/arxiv"
	"needle-go/pkg/es"
	"needle-go/pkg/log"
	"needle-go/pkg/storage"
	"needle-go/pkg/tasks"
	"needle-go/pkg/tika"

	"github.com/minio/minio-go/v7"
)

// Processor 封装了文档入库的所有依赖和逻辑。
// arXiv 论文与上传 PDF 走同一条切块、向量化、双写的主干，
// 只在取文和元数据来源上有差别。
type Processor struct {
	arxivClient *arxiv.Client
	tikaClient  *tika.Client
	chunker     *Chunker
	batcher     *Batcher
	chunkRepo   repository.ChunkRepository
	minioCfg    config.MinIOConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	arxivClient *arxiv.Client,
	tikaClient *tika.Client,
	chunker *Chunker,
	batcher *Batcher,
	chunkRepo repository.ChunkRepository,
	minioCfg config.MinIOConfig,
) *Processor {
	return &Processor{
		arxivClient: arxivClient,
		tikaClient:  tikaClient,
		chunker:     chunker,
		batcher:     batcher,
		chunkRepo:   chunkRepo,
		minioCfg:    minioCfg,
	}
}

// docMeta 是每个分块都会携带的文档级元数据。
type docMeta struct {
	ArxivID string
	Title   string
	Authors string
	Summary string
	Link    string
	Source  string
}

// IngestArxivPaper 把一篇 arXiv 论文加入文献库，返回生成的分块数。
// PDF 拉取失败时降级为只索引标题和摘要，保证论文仍然可被检索到。
func (p *Processor) IngestArxivPaper(ctx context.Context, arxivID string) (int, error) {
	log.Infof("[Processor] 开始入库 arXiv 论文, id: %s", arxivID)

	// 1. 拉取论文元数据
	log.Infof("[Processor] 步骤1: 查询 arXiv 元数据, id: %s", arxivID)
	meta, err := p.arxivClient.FetchMetadata(ctx, arxivID)
	if err != nil {
		log.Errorf("[Processor] 查询 arXiv 元数据失败, id: %s, Error: %v", arxivID, err)
		return 0, fmt.Errorf("查询 arXiv 元数据失败: %w", err)
	}

	// 2. 下载 PDF 并提取全文
	log.Infof("[Processor] 步骤2: 下载 PDF 并提取全文, id: %s", arxivID)
	text, err := p.fetchArxivFullText(ctx, arxivID)
	if err != nil {
		// 全文不可得时退回摘要，原始 id 保留在元数据中
		log.Warnf("[Processor] 获取全文失败, 降级为摘要入库, id: %s, Error: %v", arxivID, err)
		text = meta.Title + "\n" + meta.Abstract
	}

	docID := model.SafeKey(arxivID)
	dm := docMeta{
		ArxivID: arxivID,
		Title:   meta.Title,
		Authors: strings.Join(meta.Authors, ", "),
		Summary: meta.Abstract,
		Link:    meta.PDFURL,
		Source:  model.SourceArxiv,
	}
	return p.indexDocument(ctx, docID, dm, text)
}

// fetchArxivFullText 下载 PDF 并用 Tika 提取文本。
func (p *Processor) fetchArxivFullText(ctx context.Context, arxivID string) (string, error) {
	pdf, err := p.arxivClient.DownloadPDF(ctx, arxivID)
	if err != nil {
		return "", err
	}
	defer pdf.Close()

	text, err := p.tikaClient.ExtractText(ctx, pdf, arxivID+".pdf")
	if err != nil {
		return "", fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("提取的文本内容为空")
	}
	return text, nil
}

// Process 是上传 PDF 入库任务的主函数，由 Kafka 消费者调用。
func (p *Processor) Process(ctx context.Context, task tasks.IngestionTask) error {
	log.Infof("[Processor] 开始处理上传 PDF, DocID: %s, FileName: %s", task.DocID, task.FileName)

	// 1. 从 MinIO 下载文件
	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Bucket: %s, Object: %s", p.minioCfg.BucketName, task.ObjectName)
	object, err := storage.MinioClient.GetObject(ctx, p.minioCfg.BucketName, task.ObjectName, minio.GetObjectOptions{})
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		log.Errorf("[Processor] 从MinIO对象流中读取内容失败, Error: %v", err)
		return fmt.Errorf("读取MinIO对象流失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d字节", size)
	if size == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		return errors.New("文件内容为空")
	}

	// 2. 使用 Tika 提取文本
	log.Info("[Processor] 步骤2: 使用Tika提取文本内容")
	textContent, err := p.tikaClient.ExtractText(ctx, bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", task.FileName, err)
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if strings.TrimSpace(textContent) == "" {
		log.Warnf("[Processor] Tika提取的文本内容为空, 处理中止, FileName: %s", task.FileName)
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	title := task.Title
	if title == "" {
		title = task.FileName
	}
	dm := docMeta{
		Title:  title,
		Link:   task.ObjectName,
		Source: model.SourceUploadedPDF,
	}
	_, err = p.indexDocument(ctx, task.DocID, dm, textContent)
	if err != nil {
		return err
	}
	log.Infof("[Processor] 上传 PDF 入库成功, DocID: %s", task.DocID)
	return nil
}

// indexDocument 是入库主干：切块、幂等清理、向量化、双写。
func (p *Processor) indexDocument(ctx context.Context, docID string, dm docMeta, text string) (int, error) {
	// 3. 文本切块
	log.Infof("[Processor] 步骤3: 进行文本分块, DocID: %s", docID)
	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 处理中止, DocID: %s", docID)
		return 0, errors.New("未生成任何文本分块")
	}
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 为避免重复入库导致的累计膨胀，先清理该文档既有的分块（幂等）
	existing, err := p.chunkRepo.IDsByDocID(docID)
	if err != nil {
		log.Warnf("[Processor] 查询既有分块失败 (doc_id=%s): %v", docID, err)
	} else if len(existing) > 0 {
		log.Infof("[Processor] 清理既有分块 %d 个, DocID: %s", len(existing), docID)
		if err := es.DeleteDatapoints(ctx, es.IndexLibrary, existing); err != nil {
			return 0, fmt.Errorf("清理既有向量失败: %w", err)
		}
		if _, err := p.chunkRepo.DeleteByDocID(docID); err != nil {
			return 0, fmt.Errorf("清理既有分块元数据失败: %w", err)
		}
	}

	// 4. 批量向量化
	log.Infof("[Processor] 步骤4: 开始批量向量化 %d 个分块", len(chunks))
	vectors, err := p.batcher.EmbedAll(ctx, chunks)
	if err != nil {
		log.Errorf("[Processor] 分块向量化失败, DocID: %s, Error: %v", docID, err)
		return 0, fmt.Errorf("分块向量化失败: %w", err)
	}

	// 5. 双写：先写向量索引，再写元数据表
	log.Info("[Processor] 步骤5: 写入向量索引与元数据")
	points := make([]es.Datapoint, 0, len(chunks))
	records := make([]*model.ChunkRecord, 0, len(chunks))
	for i, chunk := range chunks {
		chunkID := model.ChunkID(docID, i)
		points = append(points, es.Datapoint{ID: chunkID, Vector: vectors[i]})
		records = append(records, &model.ChunkRecord{
			ID:      chunkID,
			ArxivID: dm.ArxivID,
			Title:   dm.Title,
			Authors: dm.Authors,
			Summary: dm.Summary,
			Link:    dm.Link,
			Source:  dm.Source,
			Text:    chunk,
		})
	}
	if err := es.UpsertDatapoints(ctx, es.IndexLibrary, points); err != nil {
		return 0, fmt.Errorf("写入向量索引失败: %w", err)
	}
	if err := p.chunkRepo.BatchUpsert(records); err != nil {
		return 0, fmt.Errorf("写入分块元数据失败: %w", err)
	}

	log.Infof("[Processor] 文档入库成功, DocID: %s, 分块数: %d", docID, len(chunks))
	return len(chunks), nil
}

// DeleteDocument 删除一篇文档的向量和元数据，返回删除的分块数。
// 文档不存在时删除 0 个分块，不报错。
func (p *Processor) DeleteDocument(ctx context.Context, docID string) (int64, error) {
	ids, err := p.chunkRepo.IDsByDocID(docID)
	if err != nil {
		return 0, fmt.Errorf("查询文档分块失败: %w", err)
	}
	if len(ids) > 0 {
		if err := es.DeleteDatapoints(ctx, es.IndexLibrary, ids); err != nil {
			return 0, fmt.Errorf("删除向量失败: %w", err)
		}
	}
	deleted, err := p.chunkRepo.DeleteByDocID(docID)
	if err != nil {
		return 0, fmt.Errorf("删除分块元数据失败: %w", err)
	}
	log.Infof("[Processor] 文档删除完成, DocID: %s, 删除分块数: %d", docID, deleted)
	return deleted, nil
}
