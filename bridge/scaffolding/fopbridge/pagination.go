package fopbridge

import (
	"github.com/jrazmi/growlog/core/scaffolding/fop"
)

// PaginatedResponse is a unified response type for all cursor types
type PaginatedResponse[T any, C comparable] struct {
	Records  []T         `json:"records"`
	PageInfo PageInfo[C] `json:"pageInfo"`
}

// PageInfo is a generic page info structure that works with any cursor type
type PageInfo[C comparable] struct {
	HasPrev        bool `json:"hasPrev"`
	HasNext        bool `json:"hasNext"`
	Limit          int  `json:"limit,omitempty"`
	PreviousCursor *C   `json:"previousCursor,omitempty"`
	NextCursor     *C   `json:"nextCursor,omitempty"`
	PageTotal      int  `json:"pageTotal"`
}

// NewPaginatedResponse creates a paginated response for any cursor type
func NewPaginatedResponse[T any, C comparable](records []T, pageInfo PageInfo[C]) PaginatedResponse[T, C] {
	if records == nil {
		records = []T{}
	}
	return PaginatedResponse[T, C]{
		Records:  records,
		PageInfo: pageInfo,
	}
}

// NewPaginatedResponseStringCursor builds a page from rows fetched with
// page.Take(), which asks for one row more than the limit. The extra row only
// signals that the page has a neighbour and is dropped. cursorOf produces
// the token of a record.
func NewPaginatedResponseStringCursor[T any](records []T, page fop.PageStringCursor, cursorOf func(T) (string, error)) (PaginatedResponse[T, string], error) {
	more := len(records) > page.Limit
	if more {
		if page.Backward {
			// Backward pages keep the requested order; the extra row leads.
			records = records[len(records)-page.Limit:]
		} else {
			records = records[:page.Limit]
		}
	}

	info := PageInfo[string]{
		Limit:     page.Limit,
		PageTotal: len(records),
	}
	if page.Backward {
		info.HasPrev = more
		info.HasNext = page.Cursor != ""
	} else {
		info.HasPrev = page.Cursor != ""
		info.HasNext = more
	}

	if len(records) > 0 {
		if info.HasPrev {
			prev, err := cursorOf(records[0])
			if err != nil {
				return PaginatedResponse[T, string]{}, err
			}
			info.PreviousCursor = &prev
		}
		if info.HasNext {
			next, err := cursorOf(records[len(records)-1])
			if err != nil {
				return PaginatedResponse[T, string]{}, err
			}
			info.NextCursor = &next
		}
	}

	return NewPaginatedResponse(records, info), nil
}

// PageInfoFromString converts store page info into the response form.
func PageInfoFromString(pageInfo fop.PageInfoStringCursor, pageTotal int) PageInfo[string] {
	info := PageInfo[string]{
		HasPrev:   pageInfo.HasPrev,
		HasNext:   pageInfo.HasNext,
		Limit:     pageInfo.Limit,
		PageTotal: pageTotal,
	}
	if pageInfo.PreviousCursor != "" {
		info.PreviousCursor = &pageInfo.PreviousCursor
	}
	if pageInfo.NextCursor != "" {
		info.NextCursor = &pageInfo.NextCursor
	}
	return info
}
