// Package querycache provides keyed in-memory storage for fetched roster pages.
//
// Entries are immutable value snapshots: every read and write clones the
// payload, so a reference captured before a mutation remains a valid
// historical snapshot for rollback.
package querycache

import (
	"sync"
	"time"

	"github.com/coachpo/rosterview/errs"
	"github.com/coachpo/rosterview/internal/schema"
	"github.com/coachpo/rosterview/internal/viewstate"
)

// Entry is one cached page plus its staleness metadata. Version increases on
// every write to the key and guards concurrent optimistic edits.
type Entry struct {
	Payload   schema.CollectionPage
	FetchedAt time.Time
	Version   uint64
	Stale     bool
}

// Fresh reports whether the entry may be served without revalidation.
func (e Entry) Fresh(now time.Time, window time.Duration) bool {
	if e.Stale {
		return false
	}
	if window <= 0 {
		return true
	}
	return now.Sub(e.FetchedAt) < window
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	clone := e
	clone.Payload = e.Payload.Clone()
	return clone
}

type record struct {
	mu    sync.Mutex
	entry Entry
}

// Store is an explicit, constructed cache passed by reference to the fetch
// orchestrator and mutation coordinator. There is no ambient singleton;
// tests build isolated instances.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

// New creates an empty store.
func New() *Store {
	store := new(Store)
	store.records = make(map[string]*record)
	return store
}

// Get returns the current entry for the fingerprint, if any.
func (s *Store) Get(fp viewstate.Fingerprint) (Entry, bool) {
	s.mu.RLock()
	rec, ok := s.records[fp.Key()]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.entry.Clone(), true
}

// Set replaces or inserts the entry for the fingerprint. It never merges.
func (s *Store) Set(fp viewstate.Fingerprint, payload schema.CollectionPage) Entry {
	rec := s.record(fp)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.entry = Entry{
		Payload:   payload.Clone(),
		FetchedAt: time.Now().UTC(),
		Version:   rec.entry.Version + 1,
		Stale:     false,
	}
	return rec.entry.Clone()
}

// Update applies a pure transformation to the entry's payload if present and
// returns the result. It is a no-op when the key is absent: an entry is never
// synthesized from nothing. Staleness metadata is preserved, only the payload
// and version change.
func (s *Store) Update(fp viewstate.Fingerprint, fn func(schema.CollectionPage) schema.CollectionPage) (Entry, bool) {
	if fn == nil {
		return Entry{}, false
	}
	s.mu.RLock()
	rec, ok := s.records[fp.Key()]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.entry.Payload = fn(rec.entry.Payload.Clone()).Clone()
	rec.entry.Version++
	return rec.entry.Clone(), true
}

// CompareAndSwap replaces the entry's payload when its version still matches
// prevVersion. A moved version means another writer got there first and the
// caller's snapshot is no longer authoritative.
func (s *Store) CompareAndSwap(fp viewstate.Fingerprint, prevVersion uint64, payload schema.CollectionPage) (Entry, error) {
	s.mu.RLock()
	rec, ok := s.records[fp.Key()]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, errs.New("querycache/cas", errs.CodeNotFound, errs.WithMessage("entry not found"))
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.entry.Version != prevVersion {
		return Entry{}, errs.New("querycache/cas", errs.CodeConflict, errs.WithMessage("version mismatch"))
	}
	rec.entry.Payload = payload.Clone()
	rec.entry.Version = prevVersion + 1
	return rec.entry.Clone(), nil
}

// Delete removes the entry for the fingerprint.
func (s *Store) Delete(fp viewstate.Fingerprint) {
	s.mu.Lock()
	delete(s.records, fp.Key())
	s.mu.Unlock()
}

// InvalidateAll marks every entry stale. Payloads stay readable so the view
// can keep rendering the last known data while refetches are in flight.
func (s *Store) InvalidateAll() {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()
	for _, rec := range recs {
		rec.mu.Lock()
		rec.entry.Stale = true
		rec.entry.Version++
		rec.mu.Unlock()
	}
}

// Len returns the number of cached fingerprints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) record(fp viewstate.Fingerprint) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[fp.Key()]
	if !ok {
		rec = new(record)
		s.records[fp.Key()] = rec
	}
	return rec
}
