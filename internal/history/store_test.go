package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleEntries() []Entry {
	return []Entry{
		{OriginalPath: "/papers/a.pdf", NewPath: "/papers/Smith - A (2024).pdf", MetadataSource: "crossref"},
		{OriginalPath: "/papers/b.pdf", NewPath: "/papers/Doe - B (2023).pdf", MetadataSource: "open_library"},
	}
}

func TestAppendAndList(t *testing.T) {
	store := openTestStore(t)

	if err := store.AppendSession("sess-1", sampleEntries()); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].OriginalPath != "/papers/a.pdf" {
		t.Errorf("order not preserved: first = %q", entries[0].OriginalPath)
	}
	if entries[0].SessionID != "sess-1" {
		t.Errorf("session id = %q", entries[0].SessionID)
	}
	if entries[0].Undone {
		t.Error("new entries must not be undone")
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("timestamp should be populated")
	}
}

func TestAppendEmptySessionIsNoop(t *testing.T) {
	store := openTestStore(t)
	if err := store.AppendSession("sess-empty", nil); err != nil {
		t.Fatalf("AppendSession(empty): %v", err)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestByIndex(t *testing.T) {
	store := openTestStore(t)
	if err := store.AppendSession("sess-1", sampleEntries()); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}

	e, err := store.ByIndex(1)
	if err != nil {
		t.Fatalf("ByIndex: %v", err)
	}
	if e.OriginalPath != "/papers/b.pdf" {
		t.Errorf("ByIndex(1) = %q", e.OriginalPath)
	}

	if _, err := store.ByIndex(5); !errors.Is(err, ErrNotFound) {
		t.Errorf("ByIndex(5) err = %v, want ErrNotFound", err)
	}
	if _, err := store.ByIndex(-1); !errors.Is(err, ErrNotFound) {
		t.Errorf("ByIndex(-1) err = %v, want ErrNotFound", err)
	}
}

func TestBySession(t *testing.T) {
	store := openTestStore(t)
	if err := store.AppendSession("sess-1", sampleEntries()); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}
	if err := store.AppendSession("sess-2", sampleEntries()[:1]); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}

	entries, err := store.BySession("sess-2")
	if err != nil {
		t.Fatalf("BySession: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len = %d, want 1", len(entries))
	}

	entries, err = store.BySession("missing")
	if err != nil {
		t.Fatalf("BySession(missing): %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("missing session len = %d, want 0", len(entries))
	}
}

func TestMarkUndone(t *testing.T) {
	store := openTestStore(t)
	if err := store.AppendSession("sess-1", sampleEntries()); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}

	first, err := store.ByIndex(0)
	if err != nil {
		t.Fatalf("ByIndex: %v", err)
	}
	if err := store.MarkUndone(first.ID); err != nil {
		t.Fatalf("MarkUndone: %v", err)
	}

	reloaded, err := store.ByIndex(0)
	if err != nil {
		t.Fatalf("ByIndex after undo: %v", err)
	}
	if !reloaded.Undone {
		t.Error("entry should be undone")
	}

	second, err := store.ByIndex(1)
	if err != nil {
		t.Fatalf("ByIndex(1): %v", err)
	}
	if second.Undone {
		t.Error("other entries must be untouched")
	}

	if err := store.MarkUndone(99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkUndone(missing) = %v, want ErrNotFound", err)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ts := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	entries := []Entry{{
		OriginalPath:   "/papers/a.pdf",
		NewPath:        "/papers/renamed.pdf",
		MetadataSource: "crossref",
		Timestamp:      ts,
	}}
	if err := store.AppendSession("sess-1", entries); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}

	got, err := store.ByIndex(0)
	if err != nil {
		t.Fatalf("ByIndex: %v", err)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, ts)
	}
}
