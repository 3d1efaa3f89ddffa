package view

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPrefStoreDefaultsWhenFileMissing(t *testing.T) {
	store := NewPrefStore(filepath.Join(t.TempDir(), "prefs.json"))
	if err := store.Load(); err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if got := store.VisibleColumns(); !reflect.DeepEqual(got, DefaultColumns) {
		t.Fatalf("expected all columns visible, got %v", got)
	}
}

func TestPrefStorePersistsAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	store := NewPrefStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.SetVisible("email", false); err != nil {
		t.Fatalf("SetVisible: %v", err)
	}
	if store.Visible("email") {
		t.Fatal("email should be hidden")
	}

	reloaded := NewPrefStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Visible("email") {
		t.Fatal("hidden column should survive reload")
	}
	want := []string{"name", "status", "groups"}
	if got := reloaded.VisibleColumns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPrefStoreReshowColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	store := NewPrefStore(path)
	if err := store.SetVisible("groups", false); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if err := store.SetVisible("groups", true); err != nil {
		t.Fatalf("reshow: %v", err)
	}

	reloaded := NewPrefStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Visible("groups") {
		t.Fatal("reshown column should be visible after reload")
	}
}

func TestPrefStoreRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store := NewPrefStore(path)
	if err := store.Load(); err == nil {
		t.Fatal("expected parse error for malformed preferences")
	}
}
