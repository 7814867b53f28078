package pagination

const (
	// DefaultPerPage is the standard page size when per_page is not provided.
	DefaultPerPage = 10
	// MaxPerPage caps how many rows any report query can request.
	MaxPerPage = 100
)

// Params holds offset pagination inputs from controllers.
type Params struct {
	Page    int
	PerPage int
}

// Normalize enforces the default and maximum limits and returns usable values.
func (p Params) Normalize() Params {
	page := p.Page
	if page <= 0 {
		page = 1
	}
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	norm := p.Normalize()
	return (norm.Page - 1) * norm.PerPage
}

// Limit returns the normalized page size.
func (p Params) Limit() int {
	return p.Normalize().PerPage
}
