package fop

// PageRef points at a neighbouring page.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PaginationResult describes the pages around the current one. Absent
// neighbours are nil and omitted from JSON.
type PaginationResult struct {
	Next     *PageRef `json:"next,omitempty"`
	Previous *PageRef `json:"prev,omitempty"`
}

// Paginate computes the neighbours of page given the item total. next exists
// while page*limit < total, prev whenever page > 1.
func Paginate(page, limit int, total int64) PaginationResult {
	var res PaginationResult

	// page*limit < total, without the multiplication
	if page > 0 && limit > 0 && total > 0 && int64(page) <= (total-1)/int64(limit) {
		res.Next = &PageRef{Page: page + 1, Limit: limit}
	}
	if page > 1 {
		res.Previous = &PageRef{Page: page - 1, Limit: limit}
	}

	return res
}
