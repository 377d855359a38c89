package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"knowledgebase/internal/assets"
	"knowledgebase/internal/auth"
	"knowledgebase/internal/authpw"
	"knowledgebase/internal/session"
	"knowledgebase/internal/store"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://assets.test/" + key + "?sig=1", nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func tokenFor(t *testing.T, env testEnv, user store.User) string {
	t.Helper()
	env.store.mu.Lock()
	env.store.users[user.ID] = user
	env.store.mu.Unlock()
	cfg := env.svc.cfg.Auth
	token, err := auth.IssueToken([]byte(cfg.JWTSecret), auth.NewClaims(user.ID, user.DisplayName, user.Role, cfg.Issuer, time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return token
}

func serve(env testEnv, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	NewHTTPServer(env.svc, "*").Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

var (
	editorUser = store.User{ID: "usr-editor", DisplayName: "Avery", Email: "avery@kb.local", Role: "editor"}
	viewerUser = store.User{ID: "usr-viewer", DisplayName: "Blake", Email: "blake@kb.local", Role: "viewer"}
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr := serve(env, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ok := decodeResponse(t, rr)["ok"]; ok != true {
		t.Fatalf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestReadyEndpointReportsDatabase(t *testing.T) {
	env := newTestEnv(t)
	rr := serve(env, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	env.store.pingFn = func(context.Context) error { return errors.New("connection refused") }
	rr = serve(env, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	if status := decodeResponse(t, rr)["status"]; status != "not_ready" {
		t.Fatalf("expected not_ready, got %v", status)
	}
}

type unreachableEditorStore struct {
	*session.MemoryStore
}

func (unreachableEditorStore) Ping(context.Context) error {
	return errors.New("dial tcp: connection refused")
}

func TestReadyReportsEditorStateBackend(t *testing.T) {
	env := newTestEnv(t)
	env.svc.editor = unreachableEditorStore{session.NewMemoryStore(time.Hour)}

	rr := serve(env, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	checks, _ := decodeResponse(t, rr)["checks"].(map[string]any)
	editorCheck, _ := checks["editorState"].(map[string]any)
	if editorCheck["status"] != "error" {
		t.Fatalf("expected editorState error, got %v", checks)
	}
	databaseCheck, _ := checks["database"].(map[string]any)
	if databaseCheck["status"] != "ok" {
		t.Fatalf("expected database ok, got %v", checks)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	serve(env, http.MethodGet, "/api/health", "", nil)
	rr := serve(env, http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "kb_http_request_duration_seconds") {
		t.Fatalf("request histogram missing from metrics output")
	}
}

func TestSessionLoginReturnsToken(t *testing.T) {
	env := newTestEnv(t)
	env.store.users[editorUser.ID] = editorUser
	env.svc.passwords = &fakePasswords{users: env.store, signIn: func(_ context.Context, req authpw.SignInRequest) (store.User, error) {
		if req.Email == editorUser.Email && req.Password == "correct horse" {
			return editorUser, nil
		}
		return store.User{}, authpw.ErrInvalidCredentials
	}}

	rr := serve(env, http.MethodPost, "/api/session/login", "", bytes.NewBufferString(`{"email":"avery@kb.local","password":"nope"}`))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for bad password, got %d", rr.Code)
	}

	rr = serve(env, http.MethodPost, "/api/session/login", "", bytes.NewBufferString(`{"email":"avery@kb.local","password":"correct horse"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	token, _ := decodeResponse(t, rr)["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}

	rr = serve(env, http.MethodGet, "/api/session", token, nil)
	payload := decodeResponse(t, rr)
	if payload["authenticated"] != true || payload["userName"] != "Avery" {
		t.Fatalf("unexpected session payload: %v", payload)
	}
}

func TestSignUpNeverGrantsAdmin(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.svc.SignUp(context.Background(), authpw.SignUpRequest{
		Email: "eve@kb.local", Password: "long enough", DisplayName: "Eve", Role: "admin",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if session.Role != "editor" {
		t.Fatalf("expected editor role, got %q", session.Role)
	}
}

func TestDocumentsRequireSession(t *testing.T) {
	env := newTestEnv(t)
	rr := serve(env, http.MethodGet, "/api/documents", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	rr = serve(env, http.MethodGet, "/api/documents", "not-a-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for garbage token, got %d", rr.Code)
	}
}

func TestViewerCannotWrite(t *testing.T) {
	env := newTestEnv(t)
	token := tokenFor(t, env, viewerUser)

	rr := serve(env, http.MethodPost, "/api/documents", token, bytes.NewBufferString(`{"title":"Nope"}`))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}

	doc := createDoc(t, env.svc, columnsDoc)
	rr = serve(env, http.MethodPost, "/api/documents/"+doc.ID+"/ops", token, bytes.NewBufferString(`{"ops":[{"op":"dissolve_columns","target":"cols"}]}`))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for ops, got %d", rr.Code)
	}

	rr = serve(env, http.MethodGet, "/api/documents/"+doc.ID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("viewer should read documents, got %d", rr.Code)
	}
}

func TestEditorCannotDelete(t *testing.T) {
	env := newTestEnv(t)
	token := tokenFor(t, env, editorUser)
	doc := createDoc(t, env.svc, columnsDoc)

	rr := serve(env, http.MethodDelete, "/api/documents/"+doc.ID, token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestOpsEndpointAppliesBatch(t *testing.T) {
	env := newTestEnv(t)
	token := tokenFor(t, env, editorUser)

	rr := serve(env, http.MethodPost, "/api/documents", token, bytes.NewBufferString(`{"title":"Layout","blocks":`+columnsDoc+`}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	created := decodeResponse(t, rr)["document"].(map[string]any)
	documentID := created["id"].(string)

	body := `{"revision":1,"ops":[
		{"op":"add_column","target":"cols"},
		{"op":"set_column_width","target":"cols","column":0,"width":50}
	]}`
	rr = serve(env, http.MethodPost, "/api/documents/"+documentID+"/ops", token, bytes.NewBufferString(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["changed"] != true {
		t.Fatalf("expected changed=true, got %v", payload["changed"])
	}
	document := payload["document"].(map[string]any)
	if document["revision"].(float64) != 2 {
		t.Fatalf("expected revision 2, got %v", document["revision"])
	}

	rr = serve(env, http.MethodPost, "/api/documents/"+documentID+"/ops", token, bytes.NewBufferString(body))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for stale revision, got %d", rr.Code)
	}

	rr = serve(env, http.MethodPost, "/api/documents/"+documentID+"/ops", token, bytes.NewBufferString(`{"ops":[{"op":"insert","type":"hologram"}]}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown block type, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHistoryAndCompareEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := tokenFor(t, env, editorUser)
	doc := createDoc(t, env.svc, columnsDoc)

	rr := serve(env, http.MethodPost, "/api/documents/"+doc.ID+"/ops", token, bytes.NewBufferString(`{"ops":[{"op":"dissolve_columns","target":"cols"}]}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("ops failed: %d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(env, http.MethodGet, "/api/documents/"+doc.ID+"/history", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	commits := decodeResponse(t, rr)["commits"].([]any)
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}

	rr = serve(env, http.MethodGet, "/api/documents/"+doc.ID+"/compare?from="+doc.HeadHash, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	changes := decodeResponse(t, rr)["changes"].(map[string]any)
	if removed := changes["removed"].([]any); len(removed) != 1 || removed[0] != "cols" {
		t.Fatalf("expected cols removed, got %v", removed)
	}

	rr = serve(env, http.MethodGet, "/api/documents/"+doc.ID+"/compare", token, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 without from, got %d", rr.Code)
	}

	rr = serve(env, http.MethodGet, "/api/documents/"+doc.ID+"/versions/"+doc.HeadHash, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for version, got %d", rr.Code)
	}
}

func TestEditorStateEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := tokenFor(t, env, viewerUser)
	doc := createDoc(t, env.svc, `[{"id":"sec","type":"collapsible_heading","content":{"title":"More","blocks":[]}}]`)

	rr := serve(env, http.MethodPost, "/api/documents/"+doc.ID+"/editor-state/toggle-section", token, bytes.NewBufferString(`{"block":"sec"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = serve(env, http.MethodPut, "/api/documents/"+doc.ID+"/editor-state", token, bytes.NewBufferString(`{"editing":"gone","collapsed":{"sec":true,"ghost":true}}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	state := decodeResponse(t, rr)["editorState"].(map[string]any)
	if _, ok := state["editing"]; ok {
		t.Fatalf("stale editing reference kept: %v", state)
	}
	collapsed := state["collapsed"].(map[string]any)
	if len(collapsed) != 1 || collapsed["sec"] != true {
		t.Fatalf("expected only sec collapsed, got %v", collapsed)
	}
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := tokenFor(t, env, viewerUser)
	doc := createDoc(t, env.svc, `[{"id":"p","type":"paragraph","content":{"text":"Hello"}}]`)

	rr := serve(env, http.MethodGet, "/api/documents/"+doc.ID+"/export?format=markdown", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/markdown") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rr.Body.String(), "Hello") {
		t.Fatalf("export body missing text: %s", rr.Body.String())
	}

	rr = serve(env, http.MethodGet, "/api/documents/"+doc.ID+"/export?format=docx", token, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for docx, got %d", rr.Code)
	}
}

func TestAssetUploadAndURL(t *testing.T) {
	env := newTestEnv(t)
	env.svc.assets = assets.NewService(&fakeObjects{}, env.store)
	token := tokenFor(t, env, editorUser)
	doc := createDoc(t, env.svc, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("documentId", doc.ID); err != nil {
		t.Fatalf("WriteField() error = %v", err)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="diagram.PNG"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	_, _ = part.Write([]byte("\x89PNG fake"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	NewHTTPServer(env.svc, "*").Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	key := decodeResponse(t, rr)["key"].(string)
	if !strings.HasPrefix(key, "img/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}

	rr = serve(env, http.MethodGet, "/api/assets/"+key, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if url := decodeResponse(t, rr)["url"].(string); !strings.Contains(url, key) {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestAssetsUnavailableWithoutObjectStore(t *testing.T) {
	env := newTestEnv(t)
	env.svc.assets = assets.NewService(nil, env.store)
	token := tokenFor(t, env, editorUser)

	rr := serve(env, http.MethodGet, "/api/assets/img/missing.png", token, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := tokenFor(t, env, viewerUser)
	createDoc(t, env.svc, "")

	rr := serve(env, http.MethodGet, "/api/search?q=guide", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	rr = serve(env, http.MethodGet, "/api/search?q=", token, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for empty query, got %d", rr.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/api/health":                              "/api/health",
		"/api/documents/doc_1":                     "/api/documents/{id}",
		"/api/documents/doc_1/ops":                 "/api/documents/{id}/ops",
		"/api/documents/doc_1/versions/abc1234":    "/api/documents/{id}/versions/{ref}",
		"/api/documents/doc_1/blocks/blk_1/groups": "/api/documents/{id}/blocks/{ref}/groups",
		"/api/documents/doc_1/editor-state/edit":   "/api/documents/{id}/editor-state/edit",
		"/api/assets/img/ast_1.png":                "/api/assets/{key}",
	}
	for in, want := range cases {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
