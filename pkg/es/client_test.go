package es

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllIDsQuery_SortsByDoc(t *testing.T) {
	body := allIDsQuery(nil)

	sorts, ok := body["sort"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, sorts, 1)
	// 没有 point-in-time 时只能按 _doc 排序分页
	assert.Contains(t, sorts[0], "_doc")
	assert.NotContains(t, body, "search_after")
	assert.Equal(t, false, body["_source"])
}

func TestAllIDsQuery_CarriesSearchAfter(t *testing.T) {
	cursor := []interface{}{float64(42)}
	body := allIDsQuery(cursor)

	assert.Equal(t, cursor, body["search_after"])
}
