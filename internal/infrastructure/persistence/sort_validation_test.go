package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

func TestSortSpec_Column(t *testing.T) {
	tests := map[string]string{
		"":                             "created_at",
		"status":                       "status",
		"  interaction_deadline ":      "interaction_deadline",
		"STATUS":                       "created_at",
		"supplier_id":                  "created_at",
		"status; DROP TABLE orders;--": "created_at",
		"status desc, (SELECT 1)":      "created_at",
		"\"status\"":                   "created_at",
	}
	for field, want := range tests {
		assert.Equal(t, want, orderSort.column(field), "field %q", field)
	}
}

func TestDescending(t *testing.T) {
	assert.False(t, descending("asc"))
	assert.False(t, descending(" ASC "))
	assert.True(t, descending("desc"))
	assert.True(t, descending(""))
	assert.True(t, descending("asc; --"))
}

func TestSortSpec_OrderBy(t *testing.T) {
	t.Run("adds id tie-breaker", func(t *testing.T) {
		ob := orderSort.orderBy("interaction_deadline", "asc")
		require.Len(t, ob.Columns, 2)
		assert.Equal(t, clause.OrderByColumn{Column: clause.Column{Name: "interaction_deadline"}}, ob.Columns[0])
		assert.Equal(t, clause.OrderByColumn{Column: clause.Column{Name: "id"}}, ob.Columns[1])
	})

	t.Run("id alone", func(t *testing.T) {
		ob := orderSort.orderBy("id", "")
		require.Len(t, ob.Columns, 1)
		assert.True(t, ob.Columns[0].Desc)
	})

	t.Run("unknown column falls back newest first", func(t *testing.T) {
		ob := orderSort.orderBy("price", "sideways")
		assert.Equal(t, "created_at", ob.Columns[0].Column.Name)
		assert.True(t, ob.Columns[0].Desc)
		assert.True(t, ob.Columns[1].Desc)
	})
}
