package pagination

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows any page query can request.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Normalize clamps the page to >= 1 and the size to the default/maximum.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.PageSize = NormalizePageSize(p.PageSize)
	return p
}

// NormalizePageSize enforces the configured default and maximum sizes.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// Range returns the inclusive row window (from, to) addressed by the page.
func (p Params) Range() (from, to int) {
	n := p.Normalize()
	from = (n.Page - 1) * n.PageSize
	to = from + n.PageSize - 1
	return from, to
}

// Offset is the number of rows skipped before the page starts.
func (p Params) Offset() int {
	from, _ := p.Range()
	return from
}

// Limit is the number of rows the page may hold.
func (p Params) Limit() int {
	return p.Normalize().PageSize
}

// TotalPages returns ceil(total/size); zero rows means zero pages.
func TotalPages(total int64, size int) int {
	size = NormalizePageSize(size)
	if total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// Page is the envelope returned by paginated listings.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage assembles a page envelope from the normalized params and total count.
func NewPage[T any](items []T, total int64, params Params) Page[T] {
	n := params.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       n.Page,
		PageSize:   n.PageSize,
		TotalPages: TotalPages(total, n.PageSize),
	}
}
