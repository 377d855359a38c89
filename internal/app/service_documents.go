package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"knowledgebase/internal/blocks"
	"knowledgebase/internal/export"
	"knowledgebase/internal/gitrepo"
	"knowledgebase/internal/metrics"
	"knowledgebase/internal/search"
	"knowledgebase/internal/store"
	"knowledgebase/internal/util"
)

const defaultHistoryLimit = 50

type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Revision  int64     `json:"revision"`
	UpdatedBy string    `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type DocumentView struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Blocks     []blocks.Block `json:"blocks"`
	BlockCount int            `json:"blockCount"`
	Revision   int64          `json:"revision"`
	HeadHash   string         `json:"headHash"`
	CreatedBy  string         `json:"createdBy"`
	UpdatedBy  string         `json:"updatedBy"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type CreateDocumentInput struct {
	Title  string          `json:"title"`
	Blocks json.RawMessage `json:"blocks"`
}

type ReplaceDocumentInput struct {
	Title    string          `json:"title"`
	Blocks   json.RawMessage `json:"blocks"`
	Revision int64           `json:"revision"`
	Message  string          `json:"message"`
}

// ApplyOpsInput is a batch of operations applied atomically. A non-zero
// Revision must match the stored revision.
type ApplyOpsInput struct {
	Revision int64       `json:"revision"`
	Ops      []blocks.Op `json:"ops"`
	Message  string      `json:"message"`
}

type ApplyOpsResult struct {
	Document DocumentView     `json:"document"`
	Changed  bool             `json:"changed"`
	Created  []string         `json:"created"`
	Editor   blocks.ViewState `json:"editorState"`
}

type VersionView struct {
	Hash      string         `json:"hash"`
	Message   string         `json:"message"`
	Author    string         `json:"author"`
	CreatedAt time.Time      `json:"createdAt"`
	Title     string         `json:"title"`
	Blocks    []blocks.Block `json:"blocks"`
}

type CompareView struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Identical bool            `json:"identical"`
	Changes   gitrepo.Changes `json:"changes"`
}

type GroupsView struct {
	BlockID  string              `json:"blockId"`
	SortMode blocks.SortMode     `json:"sortMode"`
	Groups   []blocks.EntryGroup `json:"groups"`
}

func (s *Service) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	documents, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentSummary, 0, len(documents))
	for _, doc := range documents {
		out = append(out, DocumentSummary{
			ID:        doc.ID,
			Title:     doc.Title,
			Revision:  doc.Revision,
			UpdatedBy: doc.UpdatedBy,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Service) GetDocument(ctx context.Context, documentID string) (DocumentView, error) {
	doc, tree, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return DocumentView{}, err
	}
	return documentView(doc, tree), nil
}

// CreateDocument stores a new document. Empty blocks start the page with one
// paragraph so there is something to type into.
func (s *Service) CreateDocument(ctx context.Context, session Session, in CreateDocumentInput) (DocumentView, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return DocumentView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	tree, err := decodeInputTree(in.Blocks)
	if err != nil {
		return DocumentView{}, err
	}
	if len(tree) == 0 {
		first, err := blocks.NewBlock(blocks.TypeParagraph, s.ids)
		if err != nil {
			return DocumentView{}, err
		}
		tree = []blocks.Block{first}
	}
	return s.createDocument(ctx, session, title, tree)
}

func (s *Service) createDocument(ctx context.Context, session Session, title string, tree []blocks.Block) (DocumentView, error) {
	encoded, err := blocks.Encode(tree)
	if err != nil {
		return DocumentView{}, err
	}

	documentID := util.NewID("doc")
	commit, err := s.git.EnsureDocumentRepo(documentID, gitrepo.Content{Title: title, Blocks: encoded}, session.UserName)
	if err != nil {
		return DocumentView{}, fmt.Errorf("init document history: %w", err)
	}

	doc := store.Document{
		ID:         documentID,
		Title:      title,
		Blocks:     encoded,
		SearchText: blocks.PlainText(tree),
		Revision:   1,
		HeadHash:   commit.Hash,
		CreatedBy:  session.UserName,
		UpdatedBy:  session.UserName,
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		if removeErr := s.git.RemoveDocumentRepo(documentID); removeErr != nil {
			s.log.Warn("remove orphaned document repo", "documentId", documentID, "error", removeErr)
		}
		return DocumentView{}, err
	}
	s.indexDocument(doc)

	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	return documentView(doc, tree), nil
}

// ReplaceDocument overwrites the whole tree, used by clients that edit
// offline and save a full snapshot.
func (s *Service) ReplaceDocument(ctx context.Context, session Session, documentID string, in ReplaceDocumentInput) (DocumentView, error) {
	mu := s.documentLock(documentID)
	mu.Lock()
	defer mu.Unlock()

	doc, _, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return DocumentView{}, err
	}
	if err := checkRevision(doc, in.Revision); err != nil {
		return DocumentView{}, err
	}

	tree, err := decodeInputTree(in.Blocks)
	if err != nil {
		return DocumentView{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = doc.Title
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		message = "Replace document"
	}
	view, _, err := s.saveDocument(ctx, session, doc, title, tree, message)
	return view, err
}

// ApplyOps runs a batch of operations against the stored tree. The batch is
// all or nothing: a rejected operation leaves the document untouched.
func (s *Service) ApplyOps(ctx context.Context, session Session, documentID string, in ApplyOpsInput) (ApplyOpsResult, error) {
	if len(in.Ops) == 0 {
		return ApplyOpsResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "ops must not be empty", nil)
	}

	mu := s.documentLock(documentID)
	mu.Lock()
	defer mu.Unlock()

	doc, tree, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return ApplyOpsResult{}, err
	}
	if err := checkRevision(doc, in.Revision); err != nil {
		return ApplyOpsResult{}, err
	}

	type step struct {
		op  blocks.Op
		res blocks.Result
	}
	var (
		applied []step
		created = []string{}
	)
	for i, op := range in.Ops {
		res, err := blocks.Apply(tree, op, s.ids)
		metrics.RecordOperation(string(op.Kind), res.Changed, err)
		if err != nil {
			status, code, message, _ := mapError(err)
			if status == http.StatusInternalServerError {
				status, code, message = http.StatusUnprocessableEntity, "INVALID_OPERATION", err.Error()
			}
			return ApplyOpsResult{}, domainError(status, code, message, map[string]any{"index": i, "op": op.Kind})
		}
		if !res.Changed {
			continue
		}
		applied = append(applied, step{op: op, res: res})
		tree = res.Tree
		if res.Created != "" {
			created = append(created, res.Created)
		}
	}

	if len(applied) == 0 {
		editor, _ := s.loadEditorState(ctx, session, documentID, tree)
		return ApplyOpsResult{Document: documentView(doc, tree), Changed: false, Created: created, Editor: editor}, nil
	}
	if err := blocks.Validate(tree); err != nil {
		return ApplyOpsResult{}, err
	}

	message := strings.TrimSpace(in.Message)
	if message == "" {
		message = opsMessage(in.Ops)
	}
	view, saved, err := s.saveDocument(ctx, session, doc, doc.Title, tree, message)
	if err != nil {
		return ApplyOpsResult{}, err
	}
	if !saved {
		editor, _ := s.loadEditorState(ctx, session, documentID, tree)
		return ApplyOpsResult{Document: view, Changed: false, Created: []string{}, Editor: editor}, nil
	}

	editor, err := s.loadEditorState(ctx, session, documentID, tree)
	if err != nil {
		s.log.Warn("load editor state", "documentId", documentID, "error", err)
	}
	for _, st := range applied {
		editor = editor.AfterApply(st.op, st.res)
	}
	if err := s.editor.Save(ctx, documentID, session.UserID, editor); err != nil {
		s.log.Warn("save editor state", "documentId", documentID, "error", err)
	}

	return ApplyOpsResult{Document: view, Changed: true, Created: created, Editor: editor}, nil
}

// saveDocument commits tree to history and stores it at the next revision.
// It reports false when the encoded content matches the head commit, in
// which case nothing is written. The caller holds the document lock.
func (s *Service) saveDocument(ctx context.Context, session Session, doc store.Document, title string, tree []blocks.Block, message string) (DocumentView, bool, error) {
	encoded, err := blocks.Encode(tree)
	if err != nil {
		return DocumentView{}, false, err
	}

	commit, err := s.git.CommitContent(doc.ID, gitrepo.Content{Title: title, Blocks: encoded}, session.UserName, message)
	switch {
	case errors.Is(err, gitrepo.ErrNoChanges):
		return documentView(doc, tree), false, nil
	case err != nil:
		return DocumentView{}, false, fmt.Errorf("commit document %s: %w", doc.ID, err)
	}

	next := doc
	next.Title = title
	next.Blocks = encoded
	next.SearchText = blocks.PlainText(tree)
	next.HeadHash = commit.Hash
	next.UpdatedBy = session.UserName
	revision, err := s.store.UpdateDocument(ctx, next, doc.Revision)
	if errors.Is(err, store.ErrConflict) {
		metrics.RevisionConflicts.Inc()
	}
	if err != nil {
		return DocumentView{}, false, err
	}
	next.Revision = revision
	next.UpdatedAt = time.Now().UTC()
	s.indexDocument(next)
	return documentView(next, tree), true, nil
}

func (s *Service) DeleteDocument(ctx context.Context, session Session, documentID string) error {
	mu := s.documentLock(documentID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	defer s.forgetDocumentLock(documentID)
	if err := s.git.RemoveDocumentRepo(documentID); err != nil {
		s.log.Warn("remove document repo", "documentId", documentID, "error", err)
	}
	if err := s.editor.Clear(ctx, documentID, session.UserID); err != nil {
		s.log.Warn("clear editor state", "documentId", documentID, "error", err)
	}
	s.search.DeleteDocument(documentID)
	s.log.Info("document deleted", "documentId", documentID, "by", session.UserID)
	return nil
}

func (s *Service) History(ctx context.Context, documentID string, limit int) ([]gitrepo.CommitInfo, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.git.History(documentID, limit)
}

func (s *Service) Version(ctx context.Context, documentID, hash string) (VersionView, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return VersionView{}, err
	}
	content, info, err := s.git.GetContentByHash(documentID, hash)
	if err != nil {
		return VersionView{}, domainError(http.StatusNotFound, "VERSION_NOT_FOUND", "Version not found", map[string]any{"hash": hash})
	}
	tree, err := blocks.Decode(content.Blocks)
	if err != nil {
		return VersionView{}, fmt.Errorf("decode version %s: %w", hash, err)
	}
	return VersionView{
		Hash:      info.Hash,
		Message:   info.Message,
		Author:    info.Author,
		CreatedAt: info.CreatedAt,
		Title:     content.Title,
		Blocks:    tree,
	}, nil
}

// Compare reports block-level changes between two versions. An empty to
// compares against the current head.
func (s *Service) Compare(ctx context.Context, documentID, from, to string) (CompareView, error) {
	if strings.TrimSpace(from) == "" {
		return CompareView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "from is required", nil)
	}
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return CompareView{}, err
	}

	fromContent, fromInfo, err := s.git.GetContentByHash(documentID, from)
	if err != nil {
		return CompareView{}, domainError(http.StatusNotFound, "VERSION_NOT_FOUND", "Version not found", map[string]any{"hash": from})
	}
	var (
		toContent gitrepo.Content
		toInfo    gitrepo.CommitInfo
	)
	if strings.TrimSpace(to) == "" {
		toContent, toInfo, err = s.git.GetHeadContent(documentID)
	} else {
		toContent, toInfo, err = s.git.GetContentByHash(documentID, to)
	}
	if err != nil {
		return CompareView{}, domainError(http.StatusNotFound, "VERSION_NOT_FOUND", "Version not found", map[string]any{"hash": to})
	}

	changes, err := gitrepo.CompareContent(fromContent, toContent)
	if err != nil {
		return CompareView{}, err
	}
	return CompareView{From: fromInfo.Hash, To: toInfo.Hash, Identical: changes.Empty(), Changes: changes}, nil
}

// Groups returns the entries of an expandable list as they are presented:
// letter groups in alphabetical mode, one unlabeled group otherwise.
func (s *Service) Groups(ctx context.Context, documentID, blockID string) (GroupsView, error) {
	_, tree, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return GroupsView{}, err
	}
	block, _, ok := blocks.Find(tree, blockID)
	if !ok {
		return GroupsView{}, domainError(http.StatusNotFound, "BLOCK_NOT_FOUND", "Block not found", map[string]any{"blockId": blockID})
	}
	list, ok := block.Content.(blocks.EntryListContent)
	if !ok {
		return GroupsView{}, domainError(http.StatusUnprocessableEntity, "NOT_AN_ENTRY_LIST", "Block is not an expandable content list", map[string]any{"blockId": blockID})
	}
	return GroupsView{BlockID: blockID, SortMode: list.SortMode, Groups: blocks.GroupEntries(list)}, nil
}

// Export renders the document, or one version of it, for download.
func (s *Service) Export(ctx context.Context, documentID, version, format string) (*export.Result, error) {
	return export.NewService(s).Export(ctx, export.Request{
		DocumentID: documentID,
		Version:    version,
		Format:     export.Format(format),
	})
}

// LoadSnapshot satisfies export.DataStore.
func (s *Service) LoadSnapshot(ctx context.Context, documentID, version string) (export.Snapshot, error) {
	if strings.TrimSpace(version) == "" {
		doc, tree, err := s.loadDocument(ctx, documentID)
		if err != nil {
			return export.Snapshot{}, err
		}
		return export.Snapshot{
			Title:     doc.Title,
			Blocks:    tree,
			Author:    doc.UpdatedBy,
			UpdatedAt: doc.UpdatedAt,
			Version:   doc.HeadHash,
		}, nil
	}
	v, err := s.Version(ctx, documentID, version)
	if err != nil {
		return export.Snapshot{}, err
	}
	return export.Snapshot{
		Title:     v.Title,
		Blocks:    v.Blocks,
		Author:    v.Author,
		UpdatedAt: v.CreatedAt,
		Version:   v.Hash,
	}, nil
}

func (s *Service) loadDocument(ctx context.Context, documentID string) (store.Document, []blocks.Block, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, nil, err
	}
	tree, err := blocks.Decode(doc.Blocks)
	if err != nil {
		return store.Document{}, nil, fmt.Errorf("decode document %s: %w", documentID, err)
	}
	return doc, tree, nil
}

func (s *Service) indexDocument(doc store.Document) {
	s.search.IndexDocument(search.DocumentRecord{ID: doc.ID, Title: doc.Title, Text: doc.SearchText})
}

func checkRevision(doc store.Document, expected int64) error {
	if expected == 0 || expected == doc.Revision {
		return nil
	}
	metrics.RevisionConflicts.Inc()
	return domainError(http.StatusConflict, "REVISION_CONFLICT", "Document was changed by someone else", map[string]any{
		"revision": doc.Revision,
	})
}

func decodeInputTree(raw json.RawMessage) ([]blocks.Block, error) {
	tree, err := blocks.Decode(raw)
	if err != nil {
		return nil, domainError(http.StatusBadRequest, "INVALID_BLOCKS", err.Error(), nil)
	}
	if err := blocks.Validate(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func documentView(doc store.Document, tree []blocks.Block) DocumentView {
	if tree == nil {
		tree = []blocks.Block{}
	}
	return DocumentView{
		ID:         doc.ID,
		Title:      doc.Title,
		Blocks:     tree,
		BlockCount: blocks.Count(tree),
		Revision:   doc.Revision,
		HeadHash:   doc.HeadHash,
		CreatedBy:  doc.CreatedBy,
		UpdatedBy:  doc.UpdatedBy,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

func opsMessage(ops []blocks.Op) string {
	if len(ops) == 1 {
		return "Apply " + string(ops[0].Kind)
	}
	return fmt.Sprintf("Apply %d operations", len(ops))
}
