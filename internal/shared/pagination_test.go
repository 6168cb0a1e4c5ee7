package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, p := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page)
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 3, p.TotalPages)

	page, p = Paginate(items, 9, 2)
	assert.Equal(t, []int{5}, page, "past the end clamps to the last page")
	assert.Equal(t, 3, p.Page)
	assert.False(t, p.HasNext())

	page, p = Paginate([]int(nil), 1, 2)
	assert.Empty(t, page)
	assert.False(t, p.HasPrev())
	assert.False(t, p.HasNext())
}

func TestPageParam(t *testing.T) {
	assert.Equal(t, 1, PageParam(httptest.NewRequest("GET", "/users", nil)))
	assert.Equal(t, 3, PageParam(httptest.NewRequest("GET", "/users?page=3", nil)))
	assert.Equal(t, 1, PageParam(httptest.NewRequest("GET", "/users?page=-2", nil)))
	assert.Equal(t, 1, PageParam(httptest.NewRequest("GET", "/users?page=abc", nil)))
}
