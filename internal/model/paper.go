// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "regexp"

// keyPattern 匹配主键中不允许出现的字符。
var keyPattern = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Paper 对应于数据库中的 papers 表，每条记录是语料库中的一篇论文。
// 主键 ID 是对外部 arXiv 标识做过安全化处理的键（非法字符替换为下划线），
// 原始标识原样保存在 ArxivID 字段中，绝不从 ID 反推，避免丢失前导零或斜杠。
type Paper struct {
	ID                 string `gorm:"type:varchar(128);primaryKey;column:id" json:"id"`
	ArxivID            string `gorm:"type:varchar(64);index;column:arxiv_id" json:"arxivId"`
	DOI                string `gorm:"type:varchar(255);column:doi" json:"doi"`
	Title              string `gorm:"type:text;column:title" json:"title"`
	Authors            string `gorm:"type:text;column:authors" json:"authors"`
	Abstract           string `gorm:"type:text;column:abstract" json:"abstract"`
	Categories         string `gorm:"type:varchar(255);column:categories" json:"categories"`
	LatestCreationDate string `gorm:"type:varchar(32);column:latest_creation_date" json:"latestCreationDate"`
	PDFURL             string `gorm:"type:varchar(255);column:pdf_url" json:"pdfUrl"`
}

func (Paper) TableName() string {
	return "papers"
}

// SafeKey 将外部标识转换为可以安全用作主键的字符串。
// 例如 "astro-ph/9701011" -> "astro-ph_9701011"。
func SafeKey(raw string) string {
	return keyPattern.ReplaceAllString(raw, "_")
}
