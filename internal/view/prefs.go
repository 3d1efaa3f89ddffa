package view

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
)

// DefaultColumns lists the roster columns shown when no preference has been
// saved yet.
var DefaultColumns = []string{"name", "email", "status", "groups"}

// PrefStore persists column-visibility choices across sessions as a small
// JSON document on disk. A missing file means every column is visible.
type PrefStore struct {
	mu     sync.Mutex
	path   string
	hidden map[string]bool
}

type prefsDocument struct {
	HiddenColumns []string `json:"hiddenColumns"`
}

// NewPrefStore builds a store persisting to path. Call Load before first use.
func NewPrefStore(path string) *PrefStore {
	return &PrefStore{path: path, hidden: make(map[string]bool)}
}

// Load reads the persisted preference document. A missing file is not an
// error: the store starts with every column visible.
func (s *PrefStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read preferences %s: %w", s.path, err)
	}
	var doc prefsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse preferences %s: %w", s.path, err)
	}
	s.hidden = make(map[string]bool, len(doc.HiddenColumns))
	for _, column := range doc.HiddenColumns {
		s.hidden[column] = true
	}
	return nil
}

// Visible reports whether the named column should be rendered.
func (s *PrefStore) Visible(column string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.hidden[column]
}

// SetVisible records a visibility choice and persists it immediately.
func (s *PrefStore) SetVisible(column string, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if visible {
		delete(s.hidden, column)
	} else {
		s.hidden[column] = true
	}
	return s.save()
}

// VisibleColumns returns the default column set minus hidden ones, in
// declaration order.
func (s *PrefStore) VisibleColumns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	columns := make([]string, 0, len(DefaultColumns))
	for _, column := range DefaultColumns {
		if !s.hidden[column] {
			columns = append(columns, column)
		}
	}
	return columns
}

func (s *PrefStore) save() error {
	doc := prefsDocument{HiddenColumns: make([]string, 0, len(s.hidden))}
	for column := range s.hidden {
		doc.HiddenColumns = append(doc.HiddenColumns, column)
	}
	sort.Strings(doc.HiddenColumns)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create preferences dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write preferences %s: %w", s.path, err)
	}
	return nil
}
