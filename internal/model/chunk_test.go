package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "2101.00001_0", ChunkID("2101.00001", 0))
	assert.Equal(t, "upload-report_12", ChunkID("upload-report", 12))
}

func TestDocIDOfChunk(t *testing.T) {
	assert.Equal(t, "2101.00001", DocIDOfChunk("2101.00001_0"))
	assert.Equal(t, "upload-my_report", DocIDOfChunk("upload-my_report_3"))
	// 没有下划线的 id 自成一组
	assert.Equal(t, "oddball", DocIDOfChunk("oddball"))
}

func TestSafeKey(t *testing.T) {
	assert.Equal(t, "2101.00001", SafeKey("2101.00001"))
	assert.Equal(t, "cond-mat_0001001", SafeKey("cond-mat/0001001"))
	assert.Equal(t, "a_b_c", SafeKey("a b:c"))
	assert.Equal(t, "x.y-z_0", SafeKey("x.y-z_0"))
}
