package restquery

const (
	DefaultPage     = 1
	DefaultPageSize = 30
)

// Pagination is the page window requested by a client. Zero values fall back
// to DefaultPage and DefaultPageSize.
type Pagination struct {
	Page int `json:"page" yaml:"page"`
	Size int `json:"size" yaml:"size"`
}

// Window is the limit/skip pair handed to the store.
type Window struct {
	Limit int
	Skip  int
}

// ResolvePagination fills defaults and computes the zero-based skip offset.
// A page below 1 yields a negative skip, which is passed through unchanged.
func ResolvePagination(page, size int) Window {
	if page == 0 {
		page = DefaultPage
	}
	if size == 0 {
		size = DefaultPageSize
	}
	return Window{Limit: size, Skip: (page - 1) * size}
}
