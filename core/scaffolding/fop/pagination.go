package fop

import (
	"fmt"
	"strconv"
)

// PageStringCursor represents the requested items per page and the opaque
// cursor of the page to fetch.
type PageStringCursor struct {
	Limit  int
	Cursor string
	// Backward pages towards the start of the ordering.
	Backward bool
}

// PageInfoStringCursor returns pagination data. Every slice query should return page info.
type PageInfoStringCursor struct {
	HasPrev        bool   `json:"hasPrev,omitempty"`
	HasNext        bool   `json:"hasNext,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	PreviousCursor string `json:"previousCursor,omitempty"`
	NextCursor     string `json:"nextCursor,omitempty"`
	PageTotal      int    `json:"pageTotal,omitempty"`
}

func ParsePageStringCursor(pageLimit string, cursor string) (PageStringCursor, error) {
	limit := 20

	if pageLimit != "" {
		var err error
		limit, err = strconv.Atoi(pageLimit)
		if err != nil {
			return PageStringCursor{}, fmt.Errorf("page limit conversion: %w", err)
		}
	}

	if limit == 0 {
		return PageStringCursor{}, fmt.Errorf("rows value too small, must not be 0")
	}

	backward := limit < 0
	if backward {
		limit = -limit
	}

	if limit > 100 {
		return PageStringCursor{}, fmt.Errorf("rows value too large, must be less than 100")
	}

	return PageStringCursor{
		Limit:    limit,
		Cursor:   cursor,
		Backward: backward,
	}, nil
}

// Take converts the page into find arguments: one extra row is requested so
// the caller can tell whether another page follows.
func (p PageStringCursor) Take() int {
	n := p.Limit + 1
	if p.Backward {
		return -n
	}
	return n
}
