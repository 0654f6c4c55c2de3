package shared

// Listing defaults
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter selects one page of a listing. Filters holds equality conditions
// keyed by column; repositories ignore keys they do not know.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Filters  map[string]any
}

// DefaultFilter returns the first page, newest first
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: DefaultPageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  map[string]any{},
	}
}

// Where adds an equality condition. Nil values and empty strings are skipped.
func (f *Filter) Where(column string, value any) {
	if value == nil || value == "" {
		return
	}
	if f.Filters == nil {
		f.Filters = map[string]any{}
	}
	f.Filters[column] = value
}

// Limit returns the page size clamped to MaxPageSize
func (f Filter) Limit() int {
	return min(f.PageSize, MaxPageSize)
}

// Offset returns the row offset of the page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}
