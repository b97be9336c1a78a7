package types

// Filter - параметры фильтрации, сортировки и пагинации списков.
// GET /api/orders?search=OS000&sort[scheduled_at]=asc&filter[state]=assigned,in_progress&limit=20&page=2
type Filter struct {
	Search         string                 `json:"search,omitempty"`
	Sort           map[string]string      `json:"sort,omitempty"`
	Filter         map[string]interface{} `json:"filter,omitempty"`
	Limit          int                    `json:"limit"`
	Offset         int                    `json:"offset"`
	Page           int                    `json:"page"`
	WithPagination bool                   `json:"with_pagination"`
}

type Pagination struct {
	TotalCount uint64 `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"total_pages"`
}

func NewPagination(total uint64, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + uint64(limit) - 1) / uint64(limit))
	}
	return Pagination{TotalCount: total, Page: page, Limit: limit, TotalPages: pages}
}
