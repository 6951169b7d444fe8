package utils

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  PaginationParams
	}{
		{"", PaginationParams{Page: 1, Limit: 10, Offset: 0}},
		{"page=3&limit=20", PaginationParams{Page: 3, Limit: 20, Offset: 40}},
		{"page=0&limit=0", PaginationParams{Page: 1, Limit: 10, Offset: 0}},
		{"page=abc&limit=500", PaginationParams{Page: 1, Limit: 100, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/api/tasks?"+tt.query, nil)
			assert.Equal(t, tt.want, GetPaginationParams(c))
		})
	}
}

func TestNewPaginationResponse(t *testing.T) {
	resp := NewPaginationResponse(PaginationParams{Page: 2, Limit: 10}, 21)
	assert.Equal(t, PaginationResponse{Page: 2, Limit: 10, Total: 21, Pages: 3}, resp)

	assert.Zero(t, NewPaginationResponse(PaginationParams{Page: 1, Limit: 10}, 0).Pages)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "quarterly-report.pdf", SafeFilename("Quarterly Report.PDF"))
	assert.Equal(t, "passwd", SafeFilename("../../etc/passwd"))
	assert.Equal(t, "evil.exe", SafeFilename(`C:\temp\evil.exe`))
	assert.Equal(t, "file.txt", SafeFilename("!!!.txt"))
}

func TestGenerateStorageKey(t *testing.T) {
	key, err := GenerateStorageKey("task-1", "My Notes.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "tasks/task-1/"))
	assert.True(t, strings.HasSuffix(key, "-my-notes.txt"))

	other, err := GenerateStorageKey("task-1", "My Notes.txt")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
