// Package repository 提供了数据访问层的实现。
package repository

import (
	"needle-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertBatchSize 限制单条 upsert 语句携带的行数，避免超大 SQL。
const upsertBatchSize = 400

// PaperRepository 定义了对 papers 元数据表的数据操作接口。
type PaperRepository interface {
	BatchUpsert(papers []*model.Paper) error
	FindByIDs(ids []string) (map[string]model.Paper, error)
	FindByID(id string) (*model.Paper, error)
	Count() (int64, error)
}

type paperRepository struct {
	db *gorm.DB
}

// NewPaperRepository 创建一个新的 PaperRepository 实例。
func NewPaperRepository(db *gorm.DB) PaperRepository {
	return &paperRepository{db: db}
}

// BatchUpsert 按主键写入或覆盖论文元数据，分批执行。
func (r *paperRepository) BatchUpsert(papers []*model.Paper) error {
	if len(papers) == 0 {
		return nil
	}
	for start := 0; start < len(papers); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(papers) {
			end = len(papers)
		}
		err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(papers[start:end]).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// FindByIDs 批量查询论文元数据，返回 id 到记录的映射。
// 未命中的 id 不在映射中出现，调用方用零值记录兜底。
func (r *paperRepository) FindByIDs(ids []string) (map[string]model.Paper, error) {
	result := make(map[string]model.Paper, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var papers []model.Paper
	if err := r.db.Where("id IN ?", ids).Find(&papers).Error; err != nil {
		return nil, err
	}
	for _, p := range papers {
		result[p.ID] = p
	}
	return result, nil
}

// FindByID 按主键查询单篇论文，未命中返回 (nil, nil)。
func (r *paperRepository) FindByID(id string) (*model.Paper, error) {
	var paper model.Paper
	err := r.db.Where("id = ?", id).First(&paper).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// Count 返回 papers 表的总行数。
func (r *paperRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Paper{}).Count(&count).Error
	return count, err
}
