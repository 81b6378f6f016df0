package repository

import (
	"sort"
	"strings"

	"needle-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChunkRepository 定义了对 kb_chunks 元数据表的数据操作接口。
type ChunkRepository interface {
	BatchUpsert(chunks []*model.ChunkRecord) error
	FindByIDs(ids []string) (map[string]model.ChunkRecord, error)
	IDsByDocID(docID string) ([]string, error)
	AllIDs() ([]string, error)
	DeleteByDocID(docID string) (int64, error)
	DeleteAll() (int64, error)
	ListDocuments(limit int) ([]model.KBDocument, error)
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// BatchUpsert 按主键写入或覆盖 chunk 元数据，分批执行。
func (r *chunkRepository) BatchUpsert(chunks []*model.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(chunks[start:end]).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// FindByIDs 批量查询 chunk 元数据，返回 id 到记录的映射。
// 未命中的 id 不在映射中出现，调用方用零值记录兜底。
func (r *chunkRepository) FindByIDs(ids []string) (map[string]model.ChunkRecord, error) {
	result := make(map[string]model.ChunkRecord, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var chunks []model.ChunkRecord
	if err := r.db.Where("id IN ?", ids).Find(&chunks).Error; err != nil {
		return nil, err
	}
	for _, c := range chunks {
		result[c.ID] = c
	}
	return result, nil
}

// IDsByDocID 返回属于一篇文档的全部 chunk id。
func (r *chunkRepository) IDsByDocID(docID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&model.ChunkRecord{}).
		Where("id LIKE ?", escapeLike(docID)+"\\_%").
		Pluck("id", &ids).Error
	return ids, err
}

// AllIDs 返回 kb_chunks 表中的全部 id，供对账扫描使用。
func (r *chunkRepository) AllIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&model.ChunkRecord{}).Pluck("id", &ids).Error
	return ids, err
}

// DeleteByDocID 删除一篇文档的全部 chunk 元数据，返回删除的行数。
// 文档不存在时删除 0 行，不报错。
func (r *chunkRepository) DeleteByDocID(docID string) (int64, error) {
	res := r.db.Where("id LIKE ?", escapeLike(docID)+"\\_%").Delete(&model.ChunkRecord{})
	return res.RowsAffected, res.Error
}

// DeleteAll 清空 kb_chunks 表，返回删除的行数。
func (r *chunkRepository) DeleteAll() (int64, error) {
	res := r.db.Where("1 = 1").Delete(&model.ChunkRecord{})
	return res.RowsAffected, res.Error
}

// ListDocuments 列出文献库中的文档（chunk 按文档聚合后的视图）。
func (r *chunkRepository) ListDocuments(limit int) ([]model.KBDocument, error) {
	var chunks []model.ChunkRecord
	// 聚合在 Go 侧完成，读取时保持主键序以获得稳定的 first-seen 结果
	if err := r.db.Order("id").Find(&chunks).Error; err != nil {
		return nil, err
	}
	return AggregateDocuments(chunks, limit), nil
}

// AggregateDocuments 把 chunk 记录按文档聚合。
// 每篇文档的标题等字段取首次遇到的 chunk 的值，结果按 (source, title) 排序并截断到 limit。
func AggregateDocuments(chunks []model.ChunkRecord, limit int) []model.KBDocument {
	byDoc := make(map[string]*model.KBDocument)
	order := make([]string, 0)
	for _, c := range chunks {
		docID := model.DocIDOfChunk(c.ID)
		doc, ok := byDoc[docID]
		if !ok {
			doc = &model.KBDocument{
				DocID:   docID,
				Title:   c.Title,
				Source:  c.Source,
				ArxivID: c.ArxivID,
			}
			byDoc[docID] = doc
			order = append(order, docID)
		}
		doc.ChunkCount++
	}

	docs := make([]model.KBDocument, 0, len(order))
	for _, id := range order {
		docs = append(docs, *byDoc[id])
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Source != docs[j].Source {
			return docs[i].Source < docs[j].Source
		}
		return docs[i].Title < docs[j].Title
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

// escapeLike 转义 LIKE 模式中的特殊字符，保证 docID 被按字面匹配。
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
