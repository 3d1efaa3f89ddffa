package viewstate

import (
	"net/url"
	"strconv"
)

// URL query parameter names. Page is 1-based on the wire.
const (
	paramPage      = "page"
	paramPageSize  = "pageSize"
	paramQuery     = "query"
	paramStatus    = "status"
	paramSortBy    = "sortBy"
	paramSortOrder = "sortOrder"
)

// Encode serializes the state to its canonical query string. Fields at their
// default are omitted so a pristine view encodes to the empty string. The
// debounced query is used, never the raw keystroke value: the URL must not
// get ahead of what is actually displayed.
func Encode(s State) string {
	n := Normalize(s)
	values := url.Values{}
	if n.Page > 0 {
		values.Set(paramPage, strconv.Itoa(n.Page+1))
	}
	if n.PageSize != DefaultPageSize {
		values.Set(paramPageSize, strconv.Itoa(n.PageSize))
	}
	if n.DebouncedQuery != "" {
		values.Set(paramQuery, n.DebouncedQuery)
	}
	if n.Status != StatusAll {
		values.Set(paramStatus, string(n.Status))
	}
	if n.SortBy != "" {
		values.Set(paramSortBy, n.SortBy)
		values.Set(paramSortOrder, string(n.SortOrder))
	}
	return values.Encode()
}

// Decode parses a query string back into a normalized state. Garbage never
// propagates: unparseable pagination falls back to defaults, unknown status
// values fall back to StatusAll, and a lone half of the sort pair is dropped.
func Decode(rawQuery string) State {
	s := Default()
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return s
	}

	if page, err := strconv.Atoi(values.Get(paramPage)); err == nil {
		s.Page = page - 1
		if s.Page < 0 {
			s.Page = 0
		}
	}
	if size, err := strconv.Atoi(values.Get(paramPageSize)); err == nil && size > 0 {
		s.PageSize = size
	}
	s.RawQuery = values.Get(paramQuery)
	s.DebouncedQuery = s.RawQuery
	if status := StatusFilter(values.Get(paramStatus)); validStatus(status) {
		s.Status = status
	}

	sortBy := values.Get(paramSortBy)
	sortOrder := SortOrder(values.Get(paramSortOrder))
	if sortBy != "" && validOrder(sortOrder) {
		s.SortBy = sortBy
		s.SortOrder = sortOrder
	}
	return s
}
