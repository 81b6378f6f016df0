package pipeline

import (
	"context"

	"needle-go/pkg/embedding"
	"needle-go/pkg/log"
)

// Batcher 把待向量化的文本贪心地装配成批次，同时满足两个上限：
// 每批条数不超过 maxBatchSize，每批字符总数不超过 maxBatchChars。
type Batcher struct {
	client        embedding.Client
	maxBatchSize  int
	maxBatchChars int
}

// NewBatcher 创建一个批处理器。
func NewBatcher(client embedding.Client, maxBatchSize, maxBatchChars int) *Batcher {
	return &Batcher{
		client:        client,
		maxBatchSize:  maxBatchSize,
		maxBatchChars: maxBatchChars,
	}
}

// Batches 规划批次：顺序遍历输入，放不下时先封批再开新批。
// 单条文本超过字符上限时无法放入任何批次，返回 OversizedInputError。
func (b *Batcher) Batches(texts []string) ([][]string, error) {
	var batches [][]string
	var current []string
	currentChars := 0

	for i, text := range texts {
		chars := len(text)
		if chars > b.maxBatchChars {
			return nil, &OversizedInputError{Index: i, Chars: chars, Limit: b.maxBatchChars}
		}
		if len(current) > 0 && (len(current) >= b.maxBatchSize || currentChars+chars > b.maxBatchChars) {
			batches = append(batches, current)
			current = nil
			currentChars = 0
		}
		current = append(current, text)
		currentChars += chars
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches, nil
}

// EmbedAll 分批调用向量化接口，把结果按输入顺序拼接返回。
// 任何一批失败都会中止整个调用。
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	batches, err := b.Batches(texts)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for i, batch := range batches {
		log.Infof("[Batcher] 正在向量化批次 %d/%d, 条数: %d", i+1, len(batches), len(batch))
		batchVectors, err := b.client.Embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}
