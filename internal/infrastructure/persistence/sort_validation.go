package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortSpec whitelists the columns a listing may be ordered by
type sortSpec struct {
	columns  map[string]struct{}
	fallback string
}

func newSortSpec(fallback string, columns ...string) sortSpec {
	set := make(map[string]struct{}, len(columns)+1)
	set[fallback] = struct{}{}
	for _, col := range columns {
		set[col] = struct{}{}
	}
	return sortSpec{columns: set, fallback: fallback}
}

// orderSort covers the order listing query parameters
var orderSort = newSortSpec("created_at", "id", "updated_at", "status", "interaction_deadline")

// column returns field when it is whitelisted and the fallback otherwise.
// Matching is exact so quoting or expressions never reach the query.
func (s sortSpec) column(field string) string {
	field = strings.TrimSpace(field)
	if _, ok := s.columns[field]; ok {
		return field
	}
	return s.fallback
}

// descending treats anything but "asc" as newest first
func descending(dir string) bool {
	return !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// orderBy builds the ORDER BY clause, with id as tie-breaker so pages stay stable
func (s sortSpec) orderBy(field, dir string) clause.OrderBy {
	col := s.column(field)
	desc := descending(dir)
	columns := []clause.OrderByColumn{{Column: clause.Column{Name: col}, Desc: desc}}
	if col != "id" {
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
	return clause.OrderBy{Columns: columns}
}
