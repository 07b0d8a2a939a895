package notify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tutorlink/pkg/types"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := OpenStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleFeed() []types.Notification {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []types.Notification{
		{ID: "n2", Title: "Newer", Content: "b", Type: "BID", CreatedAt: base.Add(time.Hour), Read: false},
		{ID: "n1", Title: "Older", Content: "a", Type: "SYSTEM", CreatedAt: base, Read: true},
	}
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))

	if err := store.Save("u1", sampleFeed(), 1); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	items, unread, err := store.Load("u1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(items))
	}
	// Saved order is preserved, newest first.
	if items[0].ID != "n2" || items[1].ID != "n1" {
		t.Errorf("order not preserved: %s, %s", items[0].ID, items[1].ID)
	}
	if items[0].Read || !items[1].Read {
		t.Error("read flags not preserved")
	}
	if unread != 1 {
		t.Errorf("expected unread 1, got %d", unread)
	}
}

func TestStore_SaveIsWholeValueReplacement(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))

	if err := store.Save("u1", sampleFeed(), 1); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	replacement := []types.Notification{
		{ID: "n9", Title: "Only one", CreatedAt: time.Now(), Read: false},
	}
	if err := store.Save("u1", replacement, 1); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	items, _, err := store.Load("u1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "n9" {
		t.Errorf("save did not replace previous value: %+v", items)
	}
}

func TestStore_UsersAreIsolated(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))

	if err := store.Save("u1", sampleFeed(), 1); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save("u2", nil, 0); err != nil {
		t.Fatalf("Save for second user failed: %v", err)
	}

	items, unread, err := store.Load("u1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(items) != 2 || unread != 1 {
		t.Errorf("u1 cache affected by u2 write: %d items, unread %d", len(items), unread)
	}
}

func TestStore_LoadUnknownUser(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))

	items, unread, err := store.Load("nobody")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(items) != 0 || unread != 0 {
		t.Errorf("expected empty cache for unknown user, got %d items, unread %d", len(items), unread)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := OpenStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	if err := store.Save("u1", sampleFeed(), 1); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := openTestStore(t, path)
	items, unread, err := reopened.Load("u1")
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	if len(items) != 2 || unread != 1 {
		t.Errorf("cache did not survive reopen: %d items, unread %d", len(items), unread)
	}
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "cache.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := store.Save("u1", nil, 0); err != ErrStoreClosed {
		t.Errorf("expected ErrStoreClosed after Close, got %v", err)
	}
}
