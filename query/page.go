package query

// PageMeta describes one page of a result set.
type PageMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}

const maxPageSize = 100

// PageBounds computes the slice window [start, end) for the requested
// page. A page beyond the last clamps to the last page rather than
// returning an empty one; page < 1 or pageSize outside 1..100 is a
// validation error.
func PageBounds(total, page, pageSize int) (start, end int, meta PageMeta, err error) {
	if page < 1 || pageSize < 1 || pageSize > maxPageSize {
		return 0, 0, PageMeta{}, ErrInvalidPage
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		page = 1
	} else if page > totalPages {
		page = totalPages
	}

	meta = PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}

	if totalPages == 0 {
		return 0, 0, meta, nil
	}

	start = (page - 1) * pageSize
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end, meta, nil
}
