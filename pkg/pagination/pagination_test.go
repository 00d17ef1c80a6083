package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/v1/fraud/logs"+query, nil)
	return ParseParams(c)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, DefaultOffset},
		{"explicit values", "?limit=5&offset=30", 5, 30},
		{"limit capped", "?limit=500", MaxLimit, DefaultOffset},
		{"zero limit falls back", "?limit=0", DefaultLimit, DefaultOffset},
		{"negative limit falls back", "?limit=-3", DefaultLimit, DefaultOffset},
		{"negative offset falls back", "?offset=-1", DefaultLimit, DefaultOffset},
		{"malformed values fall back", "?limit=abc&offset=xyz", DefaultLimit, DefaultOffset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := paramsFor(t, tt.query)
			assert.Equal(t, tt.wantLimit, params.Limit)
			assert.Equal(t, tt.wantOffset, params.Offset)
		})
	}
}

func TestBuildMeta(t *testing.T) {
	meta := BuildMeta(20, 40, 101)

	assert.Equal(t, 20, meta.Limit)
	assert.Equal(t, 40, meta.Offset)
	assert.Equal(t, int64(101), meta.Total)
	assert.Equal(t, 6, meta.TotalPages)
}

func TestBuildMeta_EmptyResult(t *testing.T) {
	meta := BuildMeta(20, 0, 0)
	assert.Equal(t, 0, meta.TotalPages)
}

func TestBuildMeta_ZeroLimit(t *testing.T) {
	// Guards against a divide-by-zero if a caller bypasses ParseParams.
	meta := BuildMeta(0, 0, 50)
	assert.Equal(t, 0, meta.TotalPages)
}
