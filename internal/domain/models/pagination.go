package models

type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPagination derives every field from the page, the page size and the
// total item count.
func NewPagination(page, pageSize, totalItems int) Pagination {
	p := Pagination{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  totalItems,
	}
	p.TotalPages = TotalPages(totalItems, pageSize)
	p.HasNext = p.CurrentPage < p.TotalPages
	p.HasPrevious = p.CurrentPage > 1
	return p
}

// Normalize fills the fields the API is allowed to omit.
func (p Pagination) Normalize() Pagination {
	if p.CurrentPage < 1 {
		p.CurrentPage = 1
	}
	if p.PageSize > 0 && p.TotalPages == 0 && p.TotalItems > 0 {
		p.TotalPages = TotalPages(p.TotalItems, p.PageSize)
	}
	p.HasNext = p.CurrentPage < p.TotalPages
	p.HasPrevious = p.CurrentPage > 1
	return p
}

// TotalPages is ceil(totalItems / pageSize). A non-positive page size yields 0.
func TotalPages(totalItems, pageSize int) int {
	if pageSize <= 0 || totalItems <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}
