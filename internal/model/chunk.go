package model

import (
	"strconv"
	"strings"
)

// 文档来源类型。
const (
	SourceArxiv       = "arxiv"
	SourceUploadedPDF = "uploaded_pdf"
)

// ChunkRecord 对应于数据库中的 kb_chunks 表，每条记录是文献库中一个文本分块的元数据。
// 主键 ID 形如 "{文档ID}_{序号}"，与向量索引中的 datapoint 共用同一个键空间；
// 向量本身只存在 Elasticsearch 中，这里只存描述性内容。
type ChunkRecord struct {
	ID      string `gorm:"type:varchar(160);primaryKey;column:id" json:"id"`
	ArxivID string `gorm:"type:varchar(64);column:arxiv_id" json:"arxivId"`
	Title   string `gorm:"type:text;column:title" json:"title"`
	Authors string `gorm:"type:text;column:authors" json:"authors"`
	Summary string `gorm:"type:text;column:summary" json:"summary"`
	Link    string `gorm:"type:varchar(255);column:link" json:"link"`
	Source  string `gorm:"type:varchar(32);column:source" json:"source"`
	Text    string `gorm:"type:text;column:text" json:"text"`
}

func (ChunkRecord) TableName() string {
	return "kb_chunks"
}

// ChunkID 根据文档前缀和分块序号生成分块主键。
func ChunkID(docID string, ordinal int) string {
	return docID + "_" + strconv.Itoa(ordinal)
}

// DocIDOfChunk 去掉分块主键末尾的 "_{序号}" 后缀得到文档前缀。
// 不含下划线的主键自成一组。
func DocIDOfChunk(chunkID string) string {
	if i := strings.LastIndex(chunkID, "_"); i >= 0 {
		return chunkID[:i]
	}
	return chunkID
}

// KBDocument 是把 kb_chunks 按文档前缀聚合后的逻辑文档视图，ChunkCount 为派生值。
type KBDocument struct {
	DocID      string `json:"docId"`
	Title      string `json:"title"`
	Source     string `json:"source"`
	ArxivID    string `json:"arxivId"`
	ChunkCount int    `json:"chunkCount"`
}
