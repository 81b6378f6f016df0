package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadDocID(t *testing.T) {
	assert.Equal(t, "upload-quarterly_report", uploadDocID("Quarterly Report.pdf"))
	assert.Equal(t, "upload-paper-v2", uploadDocID("/tmp/Paper-v2.PDF"))
	assert.Equal(t, "upload-document", uploadDocID(".pdf"))
}

func TestDiffIDs(t *testing.T) {
	a := []string{"x_0", "x_1", "y_0"}
	b := []string{"x_1", "z_0"}

	assert.Equal(t, []string{"x_0", "y_0"}, diffIDs(a, b))
	assert.Equal(t, []string{"z_0"}, diffIDs(b, a))
	assert.Empty(t, diffIDs(nil, a))
	assert.Equal(t, a, diffIDs(a, nil))
}
