// Package main 是离线语料库导入任务的入口点。
// 它流式读取 arXiv 元数据快照（NDJSON），构建嵌入文本并分批向量化，
// 然后把向量写入论文索引、把元数据写入 papers 表。
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"needle-go/internal/config"
	"needle-go/internal/model"
	"needle-go/internal/pipeline"
	"needle-go/internal/repository"
	"needle-go/pkg/database"
	"needle-go/pkg/embedding"
	"needle-go/pkg/es"
	"needle-go/pkg/log"
)

// snapshotRow 是快照文件中一行的结构，只取需要的字段。
type snapshotRow struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	Abstract   string `json:"abstract"`
	Categories string `json:"categories"`
	DOI        string `json:"doi"`
	UpdateDate string `json:"update_date"`
	Versions   []struct {
		Created string `json:"created"`
	} `json:"versions"`
}

// 每攒够这么多行做一次向量化和双写
const flushSize = 512

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Fatalf("es 初始化失败: %v", err)
	}

	paperRepo := repository.NewPaperRepository(database.DB)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	batcher := pipeline.NewBatcher(embeddingClient, cfg.Embedding.MaxBatchSize, cfg.Embedding.MaxBatchChars)

	if err := run(cfg.Indexer, paperRepo, batcher); err != nil {
		log.Fatalf("语料库导入失败: %v", err)
	}
	if total, err := paperRepo.Count(); err == nil {
		log.Infof("[Indexer] papers 表当前共 %d 条记录", total)
	}
}

func run(cfg config.IndexerConfig, paperRepo repository.PaperRepository, batcher *pipeline.Batcher) error {
	f, err := os.Open(cfg.JSONPath)
	if err != nil {
		return fmt.Errorf("打开快照文件失败: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// 单行可能很长（含完整摘要），放宽扫描缓冲
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)

	ctx := context.Background()
	var papers []*model.Paper
	var texts []string
	lineNo, indexed, skipped := 0, 0, 0

	log.Infof("[Indexer] 开始导入, path: %s, offset: %d, max: %d", cfg.JSONPath, cfg.StartOffset, cfg.MaxRows)
	for scanner.Scan() {
		lineNo++
		if lineNo <= cfg.StartOffset {
			continue
		}
		if cfg.MaxRows > 0 && indexed+len(papers) >= cfg.MaxRows {
			break
		}

		var row snapshotRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			log.Warnf("[Indexer] 第 %d 行解析失败, 跳过: %v", lineNo, err)
			skipped++
			continue
		}
		if row.ID == "" || strings.TrimSpace(row.Title) == "" {
			skipped++
			continue
		}

		paper := buildPaper(row)
		papers = append(papers, paper)
		texts = append(texts, buildEmbeddingText(row, cfg.MaxCharsPerText))

		if len(papers) >= flushSize {
			if err := flush(ctx, paperRepo, batcher, papers, texts); err != nil {
				return err
			}
			indexed += len(papers)
			papers, texts = nil, nil
			log.Infof("[Indexer] 进度: 已导入 %d 行, 跳过 %d 行", indexed, skipped)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("读取快照文件失败: %w", err)
	}
	if len(papers) > 0 {
		if err := flush(ctx, paperRepo, batcher, papers, texts); err != nil {
			return err
		}
		indexed += len(papers)
	}

	log.Infof("[Indexer] 导入完成, 共导入 %d 行, 跳过 %d 行", indexed, skipped)
	return nil
}

// flush 向量化一批论文并双写：先写向量索引，再写元数据表。
func flush(ctx context.Context, paperRepo repository.PaperRepository, batcher *pipeline.Batcher, papers []*model.Paper, texts []string) error {
	vectors, err := batcher.EmbedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("批量向量化失败: %w", err)
	}
	points := make([]es.Datapoint, 0, len(papers))
	for i, p := range papers {
		points = append(points, es.Datapoint{ID: p.ID, Vector: vectors[i]})
	}
	if err := es.UpsertDatapoints(ctx, es.IndexPapers, points); err != nil {
		return fmt.Errorf("写入向量索引失败: %w", err)
	}
	if err := paperRepo.BatchUpsert(papers); err != nil {
		return fmt.Errorf("写入论文元数据失败: %w", err)
	}
	return nil
}

// buildPaper 把快照行转换为元数据记录。主键经过净化，原始 id 原样保留。
func buildPaper(row snapshotRow) *model.Paper {
	latest := row.UpdateDate
	if len(row.Versions) > 0 {
		latest = row.Versions[len(row.Versions)-1].Created
	}
	return &model.Paper{
		ID:                 model.SafeKey(row.ID),
		ArxivID:            row.ID,
		DOI:                strings.TrimSpace(row.DOI),
		Title:              normalize(row.Title),
		Authors:            normalize(row.Authors),
		Abstract:           normalize(row.Abstract),
		Categories:         strings.TrimSpace(row.Categories),
		LatestCreationDate: strings.TrimSpace(latest),
		PDFURL:             fmt.Sprintf("%s/%s", strings.TrimRight(config.Conf.Arxiv.PDFBaseURL, "/"), row.ID),
	}
}

// buildEmbeddingText 拼装嵌入文本，摘要之前的字段完整保留，整体按字符截断。
func buildEmbeddingText(row snapshotRow, maxChars int) string {
	year := ""
	if len(row.UpdateDate) >= 4 {
		year = row.UpdateDate[:4]
	}
	text := fmt.Sprintf("Title: %s\nAuthors: %s\nYear: %s\nCategories: %s\nAbstract: %s",
		normalize(row.Title), normalize(row.Authors), year, strings.TrimSpace(row.Categories), normalize(row.Abstract))
	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars]
	}
	return text
}

// normalize 把字段里的换行和连续空白压成单个空格。
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
