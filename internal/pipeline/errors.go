package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidChunking 表示分块参数不合法（重叠不小于窗口大小）。
var ErrInvalidChunking = errors.New("chunk overlap must be smaller than chunk size")

// OversizedInputError 表示单条文本超过了批处理的字符上限，无法放入任何批次。
type OversizedInputError struct {
	Index int
	Chars int
	Limit int
}

func (e *OversizedInputError) Error() string {
	return fmt.Sprintf("input %d has %d chars, exceeding the per-batch limit of %d", e.Index, e.Chars, e.Limit)
}
