package product

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the page size used when no limit is requested.
	DefaultLimit = 20
	// MaxLimit is the largest accepted page size.
	MaxLimit = 20
)

// PageMode selects how a listing window is addressed.
type PageMode int

const (
	// ModeOffset addresses the window by a zero-based record offset.
	ModeOffset PageMode = iota
	// ModePage addresses the window by a one-based page number.
	ModePage
)

// QueryError reports an unusable listing query parameter.
type QueryError struct {
	Param string
}

func (e *QueryError) Error() string {
	return "Invalid " + e.Param + " query"
}

// PageRequest is a parsed product listing query.
type PageRequest struct {
	Mode   PageMode
	Limit  int
	Offset int
	Page   int

	Category Category
	Sort     SortOrder

	// category holds the filter as the client spelled it, for links.
	category string
	// malformed names the first pagination parameter that was not an integer.
	malformed string
}

// ParsePageRequest reads limit, offset or page, category and sort from q.
//
// Malformed pagination numbers are reported by Check rather than here, since
// an empty collection skips those checks. Unknown categories and sort orders
// fail immediately.
func ParsePageRequest(q url.Values) (PageRequest, error) {
	req := PageRequest{
		Mode:  ModeOffset,
		Limit: DefaultLimit,
		Page:  1,
	}

	intParam := func(name string, dst *int) {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			if req.malformed == "" {
				req.malformed = name
			}
			return
		}
		*dst = v
	}

	intParam("limit", &req.Limit)
	if q.Has("page") {
		req.Mode = ModePage
		intParam("page", &req.Page)
	} else {
		intParam("offset", &req.Offset)
	}

	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		c, err := LookupCategory(raw)
		if err != nil {
			return PageRequest{}, err
		}
		req.Category = c
		req.category = raw
	}

	switch sort := SortOrder(strings.ToLower(strings.TrimSpace(q.Get("sort")))); sort {
	case SortNone, SortAsc, SortDesc:
		req.Sort = sort
	default:
		return PageRequest{}, &QueryError{Param: "sort"}
	}

	return req, nil
}

// Filtered reports whether the request needs storage-side filtering or
// sorting.
func (r PageRequest) Filtered() bool {
	return r.Category != "" || r.Sort != SortNone
}

// Start returns the zero-based index of the first record in the window.
func (r PageRequest) Start() int {
	if r.Mode == ModePage {
		return (r.Page - 1) * r.Limit
	}
	return r.Offset
}

// Check validates the window against a collection of total records. Every
// check is skipped for an empty collection.
func (r PageRequest) Check(total int) error {
	if total == 0 {
		return nil
	}
	if r.malformed != "" {
		return &QueryError{Param: r.malformed}
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return &QueryError{Param: "limit"}
	}
	if r.Mode == ModePage {
		if r.Page < 1 || r.Page > totalPages(total, r.Limit) {
			return &QueryError{Param: "page"}
		}
		return nil
	}
	if r.Offset < 0 || r.Offset >= total {
		return &QueryError{Param: "offset"}
	}
	return nil
}

// query returns the storage query for the window, clamped so that an invalid
// request still produces a harmless storage call.
func (r PageRequest) query() Query {
	q := Query{
		Category: r.Category,
		Sort:     r.Sort,
		Offset:   max(r.Start(), 0),
		Limit:    min(max(r.Limit, 1), MaxLimit),
	}
	return q
}

func totalPages(total, limit int) int {
	if total == 0 || limit < 1 {
		return 1
	}
	return (total + limit - 1) / limit
}

// Page is one window of a product listing.
type Page struct {
	Request  PageRequest
	Products []Product
	Total    int
}

// TotalPages returns the number of pages of Request.Limit records.
func (p *Page) TotalPages() int {
	return totalPages(p.Total, p.Request.Limit)
}

// HasPrevious reports whether a window exists before this one.
func (p *Page) HasPrevious() bool {
	if p.Total == 0 {
		return false
	}
	if p.Request.Mode == ModePage {
		return p.Request.Page > 1
	}
	return p.Request.Offset-p.Request.Limit >= 0
}

// HasNext reports whether a window exists after this one.
func (p *Page) HasNext() bool {
	if p.Total == 0 {
		return false
	}
	if p.Request.Mode == ModePage {
		return p.Request.Page < p.TotalPages()
	}
	return p.Request.Offset+p.Request.Limit < p.Total
}

// PreviousLink returns the URL of the previous window relative to base, or
// "" when there is none.
func (p *Page) PreviousLink(base url.URL) string {
	if !p.HasPrevious() {
		return ""
	}
	if p.Request.Mode == ModePage {
		return p.link(base, p.Request.Page-1)
	}
	return p.link(base, p.Request.Offset-p.Request.Limit)
}

// NextLink returns the URL of the next window relative to base, or "" when
// there is none.
func (p *Page) NextLink(base url.URL) string {
	if !p.HasNext() {
		return ""
	}
	if p.Request.Mode == ModePage {
		return p.link(base, p.Request.Page+1)
	}
	return p.link(base, p.Request.Offset+p.Request.Limit)
}

// link re-encodes the active query with position as the offset or page.
func (p *Page) link(base url.URL, position int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(p.Request.Limit))
	if p.Request.Mode == ModePage {
		q.Set("page", strconv.Itoa(position))
	} else {
		q.Set("offset", strconv.Itoa(position))
	}
	if p.Request.category != "" {
		q.Set("category", p.Request.category)
	}
	if p.Request.Sort != SortNone {
		q.Set("sort", string(p.Request.Sort))
	}
	base.RawQuery = q.Encode()
	base.Fragment = ""
	return base.String()
}
