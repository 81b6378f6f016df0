package pipeline

import "strings"

// Chunker 把长文本按词窗口切分成带重叠的分块。
type Chunker struct {
	maxTokens int
	overlap   int
}

// NewChunker 创建一个分块器。overlap 不小于 maxTokens 时参数不合法。
func NewChunker(maxTokens, overlap int) (*Chunker, error) {
	if maxTokens <= 0 || overlap < 0 || overlap >= maxTokens {
		return nil, ErrInvalidChunking
	}
	return &Chunker{maxTokens: maxTokens, overlap: overlap}, nil
}

// Split 把文本切分成词窗口。
// 步长是 maxTokens-overlap，相邻分块共享 overlap 个词；
// 末尾不足一个窗口的部分保留为最后一个分块，纯空白文本不产生分块。
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.maxTokens - c.overlap
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + c.maxTokens
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
