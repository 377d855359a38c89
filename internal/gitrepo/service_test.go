package gitrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"knowledgebase/internal/blocks"
)

const baselineBlocks = `[
	{"id":"intro","type":"paragraph","content":{"text":"Welcome"}},
	{"id":"cols","type":"columns","content":{"columns":[
		{"id":"c0","width":50,"blocks":[{"id":"left","type":"paragraph","content":{"text":"Left"}}]},
		{"id":"c1","width":50,"blocks":[{"id":"right","type":"paragraph","content":{"text":"Right"}}]}
	]}},
	{"id":"outro","type":"paragraph","content":{"text":"Bye"}}
]`

func TestDocumentRepoLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	initial := Content{Title: "Doc", Blocks: json.RawMessage(baselineBlocks)}
	first, err := svc.EnsureDocumentRepo("doc-1", initial, "Avery")
	if err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "doc-1", contentFile)); err != nil {
		t.Fatalf("content file missing: %v", err)
	}
	again, err := svc.EnsureDocumentRepo("doc-1", initial, "Avery")
	if err != nil {
		t.Fatalf("EnsureDocumentRepo() second call error = %v", err)
	}
	if again.Hash != first.Hash {
		t.Fatalf("EnsureDocumentRepo() is not idempotent: %s != %s", again.Hash, first.Hash)
	}

	updated := initial
	updated.Title = "Doc v2"
	commit, err := svc.CommitContent("doc-1", updated, "Avery", "Rename document")
	if err != nil {
		t.Fatalf("CommitContent() error = %v", err)
	}
	if commit.Hash == "" || commit.Author != "Avery" {
		t.Fatalf("unexpected commit: %+v", commit)
	}

	if _, err := svc.CommitContent("doc-1", updated, "Avery", "Same again"); !errors.Is(err, ErrNoChanges) {
		t.Fatalf("CommitContent() unchanged error = %v, want ErrNoChanges", err)
	}

	history, err := svc.History("doc-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 || history[0].Hash != commit.Hash || history[1].Hash != first.Hash {
		t.Fatalf("unexpected history: %+v", history)
	}
	limited, err := svc.History("doc-1", 1)
	if err != nil {
		t.Fatalf("History(limit) error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("History(limit=1) returned %d entries", len(limited))
	}

	old, info, err := svc.GetContentByHash("doc-1", first.Hash)
	if err != nil {
		t.Fatalf("GetContentByHash() error = %v", err)
	}
	if old.Title != "Doc" || info.Hash != first.Hash {
		t.Fatalf("unexpected content at %s: %+v", first.Hash, old)
	}

	head, headInfo, err := svc.GetHeadContent("doc-1")
	if err != nil {
		t.Fatalf("GetHeadContent() error = %v", err)
	}
	if head.Title != "Doc v2" || headInfo.Hash != commit.Hash {
		t.Fatalf("unexpected head: %+v %+v", head, headInfo)
	}

	if err := svc.RemoveDocumentRepo("doc-1"); err != nil {
		t.Fatalf("RemoveDocumentRepo() error = %v", err)
	}
	if _, _, err := svc.GetHeadContent("doc-1"); err == nil {
		t.Fatal("expected error reading a removed repo")
	}
}

func TestBlocksRoundTripThroughCommit(t *testing.T) {
	svc := New(t.TempDir())
	initial := Content{Title: "Doc", Blocks: json.RawMessage(baselineBlocks)}
	if _, err := svc.EnsureDocumentRepo("doc-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}

	got, _, err := svc.GetHeadContent("doc-1")
	if err != nil {
		t.Fatalf("GetHeadContent() error = %v", err)
	}
	want, err := blocks.Decode(initial.Blocks)
	if err != nil {
		t.Fatalf("Decode(want) error = %v", err)
	}
	have, err := blocks.Decode(got.Blocks)
	if err != nil {
		t.Fatalf("Decode(got) error = %v", err)
	}
	if !reflect.DeepEqual(blocks.CollectIDs(want), blocks.CollectIDs(have)) {
		t.Fatalf("block ids differ after round trip: %v vs %v", blocks.CollectIDs(want), blocks.CollectIDs(have))
	}
	if HasChanges(initial, got) {
		t.Fatal("round trip should not change the snapshot")
	}
}

func TestConcurrentCommitContent(t *testing.T) {
	svc := New(t.TempDir())
	initial := Content{Title: "Doc", Blocks: json.RawMessage(`[]`)}
	if _, err := svc.EnsureDocumentRepo("doc-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsureDocumentRepo() error = %v", err)
	}

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := initial
			next.Title = fmt.Sprintf("title-%02d", idx)
			if _, err := svc.CommitContent("doc-1", next, "Avery", fmt.Sprintf("Commit %02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatalf("CommitContent() concurrent error = %v", err)
	}

	history, err := svc.History("doc-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers+1 {
		t.Fatalf("expected %d commits in history, got %d", writers+1, len(history))
	}
	head, _, err := svc.GetHeadContent("doc-1")
	if err != nil {
		t.Fatalf("GetHeadContent() error = %v", err)
	}
	if !strings.HasPrefix(head.Title, "title-") {
		t.Fatalf("unexpected head content after concurrent commits: %+v", head)
	}
}

func TestSanitizeEmail(t *testing.T) {
	cases := map[string]string{
		"Avery Lee": "Avery.Lee",
		"blake_k":   "blake.k",
		"!!!":       "user",
	}
	for in, want := range cases {
		if got := sanitizeEmail(in); got != want {
			t.Errorf("sanitizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
