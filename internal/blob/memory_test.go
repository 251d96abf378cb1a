package blob

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	key := Key("sess-1", "file-1")
	if err := store.Put(ctx, key, []byte("%PDF-1.4"), "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Fatalf("data = %q", data)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	key := Key("sess-1", "file-1")
	if err := store.Put(ctx, key, []byte("x"), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing key is fine.
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"f1", "f2"} {
		if err := store.Put(ctx, Key("sess-1", id), []byte("a"), "text/plain"); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if err := store.Put(ctx, Key("sess-2", "f1"), []byte("b"), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := store.DeletePrefix(ctx, SessionPrefix("sess-1")); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}

	if _, err := store.Get(ctx, Key("sess-1", "f1")); !errors.Is(err, ErrNotFound) {
		t.Fatal("sess-1 objects should be gone")
	}
	if _, err := store.Get(ctx, Key("sess-2", "f1")); err != nil {
		t.Fatalf("sess-2 object should survive, got %v", err)
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := []byte("abc")
	if err := store.Put(ctx, "k", original, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	original[0] = 'z'

	data, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "abc" {
		t.Fatalf("stored data mutated: %q", data)
	}
}
