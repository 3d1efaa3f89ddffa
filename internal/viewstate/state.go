// Package viewstate models the filter, sort and pagination state of the
// roster view and its canonical URL and cache-key encodings.
package viewstate

import "strings"

// DefaultPageSize applies when the URL carries no usable pageSize.
const DefaultPageSize = 10

// StatusFilter narrows the roster to one lifecycle state.
type StatusFilter string

const (
	// StatusAll is the sentinel meaning no status filtering.
	StatusAll StatusFilter = "all"
	// StatusActive narrows to enabled users.
	StatusActive StatusFilter = "active"
	// StatusInactive narrows to disabled users.
	StatusInactive StatusFilter = "inactive"
)

// SortOrder gives the direction of a server-applied sort.
type SortOrder string

const (
	// SortAsc sorts ascending.
	SortAsc SortOrder = "asc"
	// SortDesc sorts descending.
	SortDesc SortOrder = "desc"
)

// State is the single source of truth for what the view shows. Page is
// 0-based internally; the URL codec translates to and from the 1-based wire
// form. RawQuery tracks keystrokes, DebouncedQuery the settled value that
// drives fetches and URL encoding.
type State struct {
	Page           int
	PageSize       int
	Status         StatusFilter
	RawQuery       string
	DebouncedQuery string
	SortBy         string
	SortOrder      SortOrder
}

// Default returns the state the view starts from when the URL carries nothing.
func Default() State {
	return State{
		Page:           0,
		PageSize:       DefaultPageSize,
		Status:         StatusAll,
		RawQuery:       "",
		DebouncedQuery: "",
		SortBy:         "",
		SortOrder:      "",
	}
}

// Normalize clamps out-of-range pagination and falls invalid enum values back
// to their defaults, exactly as Decode would. A lone half of the sort pair is
// dropped. RawQuery is aligned with DebouncedQuery: a normalized state never
// carries keystrokes that have not settled.
func Normalize(s State) State {
	if s.Page < 0 {
		s.Page = 0
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	if !validStatus(s.Status) {
		s.Status = StatusAll
	}
	if strings.TrimSpace(s.SortBy) == "" || !validOrder(s.SortOrder) {
		s.SortBy = ""
		s.SortOrder = ""
	}
	s.RawQuery = s.DebouncedQuery
	return s
}

func validStatus(status StatusFilter) bool {
	switch status {
	case StatusAll, StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}

func validOrder(order SortOrder) bool {
	return order == SortAsc || order == SortDesc
}

// Params projects the normalized state onto the request parameters the
// transport sends. Only the debounced query participates.
type Params struct {
	Page      int
	PageSize  int
	Query     string
	Status    StatusFilter
	SortBy    string
	SortOrder SortOrder
}

// Params returns the request parameters for the state.
func (s State) Params() Params {
	n := Normalize(s)
	return Params{
		Page:      n.Page,
		PageSize:  n.PageSize,
		Query:     n.DebouncedQuery,
		Status:    n.Status,
		SortBy:    n.SortBy,
		SortOrder: n.SortOrder,
	}
}
