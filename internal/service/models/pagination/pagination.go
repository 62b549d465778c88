package pagination

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a 1-indexed page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies defaults and bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	return p
}

// Offset returns the number of records skipped before this page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Result is one page of T.
type Result[T any] struct {
	Items   []T
	Total   int
	Page    int
	Limit   int
	HasMore bool
}

// NewResult builds a page from rows fetched with "limit+1" so the extra row signals HasMore.
func NewResult[T any](rows []T, total int, p Page) Result[T] {
	hasMore := len(rows) > p.Limit
	if hasMore {
		rows = rows[:p.Limit]
	}
	if rows == nil {
		rows = []T{}
	}

	return Result[T]{
		Items:   rows,
		Total:   total,
		Page:    p.Page,
		Limit:   p.Limit,
		HasMore: hasMore,
	}
}

// Pages returns the total number of pages.
func (r Result[T]) Pages() int {
	if r.Limit < 1 {
		return 0
	}

	return (r.Total + r.Limit - 1) / r.Limit
}
