package session

import (
	"context"
	"testing"
	"time"

	"knowledgebase/internal/blocks"
)

func TestMemoryStoreRoundTripAndExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	var _ Store = store
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	if err := store.Save(ctx, "doc_1", "usr_1", blocks.ViewState{Editing: "b1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load(ctx, "doc_1", "usr_1")
	if err != nil || got.Editing != "b1" {
		t.Fatalf("Load = %+v, %v", got, err)
	}

	now = now.Add(2 * time.Hour)
	got, err = store.Load(ctx, "doc_1", "usr_1")
	if err != nil || got.Editing != "" {
		t.Fatalf("expected expired state, got %+v, %v", got, err)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()
	_ = store.Save(ctx, "doc_1", "usr_1", blocks.ViewState{Editing: "b1"})
	if err := store.Clear(ctx, "doc_1", "usr_1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, _ := store.Load(ctx, "doc_1", "usr_1")
	if got.Editing != "" {
		t.Fatalf("expected cleared state, got %+v", got)
	}
}
