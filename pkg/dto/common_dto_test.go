package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination(t *testing.T) {
	q := PaginationQuery{}
	assert.Equal(t, 0, q.Normalize())
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)

	q = PaginationQuery{Page: 3, Limit: 10}
	assert.Equal(t, 20, q.Normalize())

	meta := NewPaginationMeta(q, 21)
	assert.Equal(t, 3, meta.TotalPages)
	assert.EqualValues(t, 21, meta.TotalItems)
}
