package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tjfontaine/fullstack-app-server/internal/storage"
)

func TestSQLiteStore_CreateAndGetItem(t *testing.T) {
	// Use in-memory SQLite with shared cache for testing
	store, err := New("file:items1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	item := &storage.Item{Title: "Stuff"}
	if err := store.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	if item.ID == 0 {
		t.Error("expected ID to be assigned")
	}

	retrieved, err := store.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}

	if retrieved.ID != item.ID {
		t.Errorf("ID = %v, want %v", retrieved.ID, item.ID)
	}
	if retrieved.Title != item.Title {
		t.Errorf("Title = %v, want %v", retrieved.Title, item.Title)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to round-trip")
	}
}

func TestSQLiteStore_GetItem_NotFound(t *testing.T) {
	store, err := New("file:items2?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	_, err = store.GetItem(context.Background(), 999)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetItem() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListItems(t *testing.T) {
	store, err := New("file:items3?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	items, err := store.ListItems(context.Background(), storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("len(items) = %d, want 0", len(items))
	}

	for _, title := range []string{"first", "second", "third"} {
		if err := store.CreateItem(context.Background(), &storage.Item{Title: title}); err != nil {
			t.Fatalf("CreateItem() error = %v", err)
		}
	}

	items, err = store.ListItems(context.Background(), storage.ListOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Title != "second" || items[1].Title != "third" {
		t.Errorf("titles = %q, %q, want second, third", items[0].Title, items[1].Title)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	store, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.CreateItem(context.Background(), &storage.Item{Title: "kept"}); err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	store.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Close()

	items, err := reopened.ListItems(context.Background(), storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 1 || items[0].Title != "kept" {
		t.Errorf("items after reopen = %+v, want one item titled kept", items)
	}
}
