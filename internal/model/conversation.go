// Package model 包含了应用的数据模型定义。
package model

import "time"

// Citation 描述助手回答中引用的一条检索来源。
type Citation struct {
	Title   string  `json:"title"`
	Authors string  `json:"authors"`
	Link    string  `json:"link"`
	Score   float64 `json:"score"`
}

// ChatMessage 代表存储在 Redis 中的单条对话消息。
// Citations 只在 assistant 消息上出现；历史是只追加的有序序列，消息创建后不再修改。
type ChatMessage struct {
	Role      string     `json:"role"` // "user" 或 "assistant"
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}
