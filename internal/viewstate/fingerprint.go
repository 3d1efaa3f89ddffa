package viewstate

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is the canonical cache key for one view of the collection.
// Two parameter sets that are equal after default-normalization always
// produce the same fingerprint, independent of how the state was assembled.
type Fingerprint struct {
	key string
}

// Fingerprint derives the canonical key for the parameters. Keys are emitted
// in a fixed order with default-valued fields left out, so the key doubles as
// a stable, human-readable cache identifier.
func (p Params) Fingerprint() Fingerprint {
	var b strings.Builder
	b.WriteString("page=")
	b.WriteString(strconv.Itoa(p.Page))
	b.WriteString("&pageSize=")
	b.WriteString(strconv.Itoa(p.PageSize))
	if p.Query != "" {
		b.WriteString("&query=")
		b.WriteString(url.QueryEscape(p.Query))
	}
	if p.SortBy != "" && (p.SortOrder == SortAsc || p.SortOrder == SortDesc) {
		b.WriteString("&sortBy=")
		b.WriteString(url.QueryEscape(p.SortBy))
		b.WriteString("&sortOrder=")
		b.WriteString(string(p.SortOrder))
	}
	if p.Status != StatusAll && p.Status != "" {
		b.WriteString("&status=")
		b.WriteString(string(p.Status))
	}
	return Fingerprint{key: b.String()}
}

// Fingerprint derives the canonical key for the state's parameters.
func (s State) Fingerprint() Fingerprint {
	return s.Params().Fingerprint()
}

// Key returns the canonical string form.
func (f Fingerprint) Key() string { return f.key }

// Sum64 returns a compact hash of the canonical form for metric labels and
// log correlation.
func (f Fingerprint) Sum64() uint64 { return xxhash.Sum64String(f.key) }

// IsZero reports whether the fingerprint was never derived.
func (f Fingerprint) IsZero() bool { return f.key == "" }

func (f Fingerprint) String() string { return f.key }
