package model

// PaperMatch 是论文索引检索命中的类型化结果行。
// Paper 由元数据库回填，向量索引只提供 ID 和得分；
// 元数据缺失时 Paper 为零值记录，是否展示由调用方决定。
type PaperMatch struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Paper       Paper   `json:"paper"`
	LinkedInPDF bool    `json:"linkedInPdf"`
}

// ChunkMatch 是文献库索引检索命中的类型化结果行。
type ChunkMatch struct {
	ID    string      `json:"id"`
	Score float64     `json:"score"`
	Chunk ChunkRecord `json:"chunk"`
}
