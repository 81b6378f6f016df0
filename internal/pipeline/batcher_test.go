package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 记录每次调用的批大小，并返回可辨认的向量。
type fakeEmbedder struct {
	callSizes []int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.callSizes = append(f.callSizes, len(texts))
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i]))}
	}
	return vectors, nil
}

func TestBatcher_CountCeiling(t *testing.T) {
	b := NewBatcher(nil, 2, 1000)

	batches, err := b.Batches([]string{"a", "a", "a", "a", "a"})
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
}

func TestBatcher_CharCeiling(t *testing.T) {
	b := NewBatcher(nil, 100, 10)

	// 6+6 超过 10，必须分两批
	batches, err := b.Batches([]string{"aaaaaa", "bbbbbb"})
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"aaaaaa"}, batches[0])
	assert.Equal(t, []string{"bbbbbb"}, batches[1])
}

func TestBatcher_BothCeilings(t *testing.T) {
	b := NewBatcher(nil, 3, 10)

	batches, err := b.Batches([]string{"aaaa", "bbbb", "cc", "dd", "ee", "ff"})
	require.NoError(t, err)
	// aaaa+bbbb=8, +cc=10 放得下；dd/ee/ff 受条数上限 3 约束成一批
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"aaaa", "bbbb", "cc"}, batches[0])
	assert.Equal(t, []string{"dd", "ee", "ff"}, batches[1])
}

func TestBatcher_OversizedInput(t *testing.T) {
	b := NewBatcher(nil, 10, 5)

	_, err := b.Batches([]string{"ok", "toolongtext"})
	require.Error(t, err)
	var oversized *OversizedInputError
	require.ErrorAs(t, err, &oversized)
	assert.Equal(t, 1, oversized.Index)
	assert.Equal(t, 11, oversized.Chars)
	assert.Equal(t, 5, oversized.Limit)
}

func TestBatcher_EmptyInput(t *testing.T) {
	b := NewBatcher(nil, 2, 10)

	batches, err := b.Batches(nil)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestBatcher_EmbedAllPreservesOrder(t *testing.T) {
	fake := &fakeEmbedder{}
	b := NewBatcher(fake, 2, 1000)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := b.EmbedAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	// 调用批次为 [2,2,1]，结果按输入顺序拼接
	assert.Equal(t, []int{2, 2, 1}, fake.callSizes)
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0])
	}
}
