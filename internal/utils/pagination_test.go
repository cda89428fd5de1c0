// internal/utils/pagination_test.go
package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	p := PaginationParams{}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, "desc", p.Order)

	p = PaginationParams{Page: 3, Limit: 500, Order: "ASC; DROP TABLE users"}.Normalize()
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, "desc", p.Order)

	p = PaginationParams{Page: 2, Limit: 50, Order: "asc"}.Normalize()
	assert.Equal(t, 50, p.Limit)
	assert.Equal(t, "asc", p.Order)
}

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/products?page=0&limit=abc&search=zinc&category=minerals", nil)

	params := GetPaginationParams(c)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 20, params.Limit)
	assert.Equal(t, "created_at", params.Sort)
	assert.Equal(t, "zinc", params.Search)
	assert.Equal(t, "minerals", params.Category)
}

func TestCreatePaginationResult(t *testing.T) {
	result := CreatePaginationResult([]string{"a"}, 41, PaginationParams{Page: 2, Limit: 20})
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 2, result.Page)

	empty := CreatePaginationResult(nil, 0, PaginationParams{})
	assert.Zero(t, empty.TotalPages)
	assert.Equal(t, 20, empty.Limit)
}
