package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) (*PostgresStore, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("KB_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("KB_TEST_DATABASE_URL is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	db, err := Open(ctx, dsn, PoolConfig{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if _, err := ApplyMigrations(ctx, db, migrationsDir, nil); err != nil {
		t.Fatalf("ApplyMigrations() error = %v", err)
	}
	return NewPostgresStore(db), ctx
}

func TestDocumentRevisionsPostgres(t *testing.T) {
	s, ctx := openTestStore(t)

	doc := Document{
		ID:         "doc_1",
		Title:      "Onboarding",
		Blocks:     json.RawMessage(`[{"id":"b1","type":"paragraph","content":{"text":"welcome"}}]`),
		SearchText: "welcome",
		CreatedBy:  "avery",
	}
	if err := s.InsertDocument(ctx, doc); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}
	if err := s.InsertDocument(ctx, doc); !errors.Is(err, ErrConflict) {
		t.Fatalf("second InsertDocument() error = %v, want ErrConflict", err)
	}

	got, err := s.GetDocument(ctx, "doc_1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.Revision != 1 || got.UpdatedBy != "avery" {
		t.Fatalf("unexpected document %+v", got)
	}

	got.Title = "Onboarding guide"
	got.UpdatedBy = "blake"
	rev, err := s.UpdateDocument(ctx, got, 1)
	if err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}
	if rev != 2 {
		t.Fatalf("revision = %d, want 2", rev)
	}
	if _, err := s.UpdateDocument(ctx, got, 1); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale UpdateDocument() error = %v, want ErrConflict", err)
	}

	missing := got
	missing.ID = "doc_missing"
	if _, err := s.UpdateDocument(ctx, missing, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateDocument(missing) error = %v, want ErrNotFound", err)
	}

	list, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(list) != 1 || list[0].Title != "Onboarding guide" {
		t.Fatalf("ListDocuments() = %+v", list)
	}

	if err := s.DeleteDocument(ctx, "doc_1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if _, err := s.GetDocument(ctx, "doc_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetDocument() after delete error = %v", err)
	}
}

func TestUsersAndAssetsPostgres(t *testing.T) {
	s, ctx := openTestStore(t)

	user := User{ID: "usr_1", DisplayName: "Avery", Email: "Avery@Example.com", PasswordHash: "hash", Role: "editor"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := s.CreateUser(ctx, user); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate CreateUser() error = %v, want ErrConflict", err)
	}
	got, err := s.GetUserByEmail(ctx, "avery@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != "usr_1" {
		t.Fatalf("GetUserByEmail() = %+v", got)
	}

	asset := Asset{Key: "img/cat.png", FileName: "cat.png", ContentType: "image/png", SizeBytes: 42, UploadedBy: "usr_1"}
	if err := s.InsertAsset(ctx, asset); err != nil {
		t.Fatalf("InsertAsset() error = %v", err)
	}
	stored, err := s.GetAsset(ctx, "img/cat.png")
	if err != nil {
		t.Fatalf("GetAsset() error = %v", err)
	}
	if stored.SizeBytes != 42 || stored.DocumentID != "" {
		t.Fatalf("GetAsset() = %+v", stored)
	}
}
