package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"knowledgebase/internal/assets"
	"knowledgebase/internal/auth"
	"knowledgebase/internal/authpw"
	"knowledgebase/internal/blocks"
	"knowledgebase/internal/config"
	"knowledgebase/internal/gitrepo"
	"knowledgebase/internal/logging"
	"knowledgebase/internal/rbac"
	"knowledgebase/internal/search"
	"knowledgebase/internal/session"
	"knowledgebase/internal/store"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Role      string
	ExpiresAt time.Time
}

type dataStore interface {
	ListDocuments(context.Context) ([]store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	InsertDocument(context.Context, store.Document) error
	UpdateDocument(context.Context, store.Document, int64) (int64, error)
	DeleteDocument(context.Context, string) error
	CountDocuments(context.Context) (int, error)
	GetUserByID(context.Context, string) (store.User, error)
	Ping(context.Context) error
}

type gitService interface {
	EnsureDocumentRepo(string, gitrepo.Content, string) (gitrepo.CommitInfo, error)
	CommitContent(string, gitrepo.Content, string, string) (gitrepo.CommitInfo, error)
	GetHeadContent(string) (gitrepo.Content, gitrepo.CommitInfo, error)
	GetContentByHash(string, string) (gitrepo.Content, gitrepo.CommitInfo, error)
	History(string, int) ([]gitrepo.CommitInfo, error)
	RemoveDocumentRepo(string) error
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexDocument(search.DocumentRecord)
	DeleteDocument(string)
}

type passwordAuth interface {
	SignIn(context.Context, authpw.SignInRequest) (store.User, error)
	SignUp(context.Context, authpw.SignUpRequest) (store.User, error)
	EnsureUser(context.Context, authpw.SignUpRequest) (store.User, error)
}

type assetService interface {
	Upload(context.Context, assets.Upload) (store.Asset, error)
	URL(context.Context, string) (string, store.Asset, error)
}

// Dependencies are the collaborators wired by the command.
type Dependencies struct {
	Store     dataStore
	Git       gitService
	Search    searchService
	Editor    session.Store
	Assets    assetService
	Passwords passwordAuth
	Log       *logging.Logger
}

type Service struct {
	cfg       config.Config
	store     dataStore
	git       gitService
	search    searchService
	editor    session.Store
	assets    assetService
	passwords passwordAuth
	log       *logging.Logger
	ids       blocks.IDGenerator

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func New(cfg config.Config, deps Dependencies) *Service {
	log := deps.Log
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		cfg:       cfg,
		store:     deps.Store,
		git:       deps.Git,
		search:    deps.Search,
		editor:    deps.Editor,
		assets:    deps.Assets,
		passwords: deps.Passwords,
		log:       log.With("component", "app"),
		ids:       blocks.RandomIDs{},
		locks:     make(map[string]*sync.Mutex),
	}
}

// Bootstrap creates the admin account and, when the database holds no
// documents, a seed page that shows every container kind.
func (s *Service) Bootstrap(ctx context.Context, admin authpw.SignUpRequest) error {
	owner, err := s.passwords.EnsureUser(ctx, admin)
	if err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	count, err := s.store.CountDocuments(ctx)
	if err != nil {
		return err
	}
	if count > 0 || !s.cfg.Seed.Enabled {
		return nil
	}

	tree, err := seedTree(s.ids)
	if err != nil {
		return fmt.Errorf("build seed document: %w", err)
	}
	author := Session{UserID: owner.ID, UserName: owner.DisplayName, Role: owner.Role}
	if _, err := s.createDocument(ctx, author, "Welcome to the knowledge base", tree); err != nil {
		return fmt.Errorf("insert seed document: %w", err)
	}
	s.log.Info("seeded knowledge base", "owner", owner.Email)
	return nil
}

func seedTree(ids blocks.IDGenerator) ([]blocks.Block, error) {
	leaf := func(t blocks.Type, raw string) blocks.Block {
		return blocks.Block{ID: ids.NewID("blk"), Type: t, Content: blocks.LeafContent{Raw: []byte(raw)}}
	}

	columns := blocks.NewColumnsContent(ids, 2)
	columns = blocks.UpdateColumnBlocks(columns, 0, []blocks.Block{
		leaf(blocks.TypeParagraph, `{"text":"Columns hold side-by-side content. Widths always add up to 100."}`),
	})
	columns = blocks.UpdateColumnBlocks(columns, 1, []blocks.Block{
		leaf(blocks.TypeCallout, `{"text":"Drag a block out of a column to extract it.","variant":"info"}`),
	})

	section := blocks.NewSectionContent("How sections work")
	section.Blocks = []blocks.Block{
		leaf(blocks.TypeParagraph, `{"text":"Collapsible sections fold their children away."}`),
	}

	glossary := blocks.EntryListContent{SortMode: blocks.SortAlphabetical}
	for _, term := range []struct{ title, text string }{
		{"Block", "The unit of content in a document."},
		{"Column", "One vertical slot of a columns block."},
		{"Entry", "A titled, expandable item of a content list."},
	} {
		var entry blocks.Entry
		glossary, entry = blocks.AddEntry(glossary, term.title, ids)
		glossary = blocks.UpdateEntryBlocks(glossary, entry.ID, []blocks.Block{
			leaf(blocks.TypeParagraph, `{"text":"`+term.text+`"}`),
		})
	}

	tree := []blocks.Block{
		leaf(blocks.TypeHeading, `{"text":"Welcome","level":1}`),
		leaf(blocks.TypeParagraph, `{"text":"This page demonstrates every container block."}`),
		{ID: ids.NewID("blk"), Type: blocks.TypeColumns, Content: columns},
		{ID: ids.NewID("blk"), Type: blocks.TypeCollapsibleHeading, Content: section},
		{ID: ids.NewID("blk"), Type: blocks.TypeExpandableList, Content: glossary},
	}
	return tree, blocks.Validate(tree)
}

// Login authenticates with email and password and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

// SignUp registers a new account and signs it in.
func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	// Self-service accounts never start as admin.
	if rbac.Normalize(req.Role) == rbac.RoleAdmin {
		req.Role = string(rbac.RoleEditor)
	}
	user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

func (s *Service) issueSession(user store.User) (Session, error) {
	claims := auth.NewClaims(user.ID, user.DisplayName, user.Role, s.cfg.Auth.Issuer, s.cfg.Auth.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.Auth.JWTSecret), claims)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.Auth.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) (search.Response, error) {
	text := strings.TrimSpace(query)
	if text == "" {
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "q is required", nil)
	}
	return s.search.Search(ctx, search.Query{Text: text, Limit: limit, Offset: offset}), nil
}

// UploadAsset stores an image for documentID after checking the document exists.
func (s *Service) UploadAsset(ctx context.Context, session Session, up assets.Upload) (store.Asset, error) {
	if _, err := s.store.GetDocument(ctx, up.DocumentID); err != nil {
		return store.Asset{}, err
	}
	up.UploadedBy = session.UserID
	return s.assets.Upload(ctx, up)
}

func (s *Service) AssetURL(ctx context.Context, key string) (string, store.Asset, error) {
	return s.assets.URL(ctx, key)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingEditorState checks the editor state backend (Redis when configured).
func (s *Service) PingEditorState(ctx context.Context) error {
	return s.editor.Ping(ctx)
}

// documentLock serializes load, apply and save for one document.
func (s *Service) documentLock(documentID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	mu, ok := s.locks[documentID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[documentID] = mu
	}
	return mu
}

// forgetDocumentLock drops the lock entry of a deleted document. Callers
// still waiting on the old mutex find the document gone.
func (s *Service) forgetDocumentLock(documentID string) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	delete(s.locks, documentID)
}
