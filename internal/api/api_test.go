package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/coldcases/internal/caseservice"
	"github.com/starford/coldcases/internal/catalog"
	"github.com/starford/coldcases/internal/sse"
	"github.com/starford/coldcases/internal/storage"
	"github.com/starford/coldcases/internal/testutil"
)

type testEnv struct {
	dir    string
	store  *storage.FS
	svc    *caseservice.Service
	router http.Handler
}

// newTestEnv seeds a case tree, loads it and builds the API router.
func newTestEnv(t *testing.T, sseHandler http.Handler) *testEnv {
	t.Helper()
	dir, store := testutil.TestCatalog(t)
	testutil.SeedCases(t, dir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vm := catalog.NewViewModel(
		catalog.NewLoader(store, catalog.WithLoaderLogger(logger)),
		catalog.WithLogger(logger),
		catalog.WithDebounce(20*time.Millisecond),
	)
	t.Cleanup(vm.Dispose)

	svc := caseservice.NewService(vm, testutil.TestDB(t), logger)
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return &testEnv{dir: dir, store: store, svc: svc, router: NewRouter(svc, sseHandler)}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func validBody(name string) map[string]any {
	return map[string]any{
		"name":        name,
		"location":    "Penticton",
		"status":      "Unsolved",
		"description": "Missing since the fair.",
		"date":        map[string]any{"year": 1985, "precision": "year"},
	}
}

func TestListCases(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/cases", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp CaseListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || resp.Cases[0].ID != "john-smith" {
		t.Errorf("resp = %+v", resp)
	}

	w = env.do(t, http.MethodGet, "/cases?q=KELOWNA", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Cases[0].ID != "jane-doe" {
		t.Errorf("filtered resp = %+v", resp)
	}

	w = env.do(t, http.MethodGet, "/cases?q=nowhere", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 0 || resp.Cases == nil {
		t.Errorf("expected empty non-nil list, got %+v", resp)
	}
}

func TestGetCase(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/cases/jane-doe", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var c CaseDetail
	_ = json.Unmarshal(w.Body.Bytes(), &c)
	if c.Name != "Jane Doe" || c.DateLabel != "5/1998" {
		t.Errorf("case = %+v", c)
	}
	if !strings.Contains(c.Narrative, "lakeshore orchard") {
		t.Errorf("narrative = %q", c.Narrative)
	}
}

func TestGetCase_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/cases/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateCase(t *testing.T) {
	env := newTestEnv(t, nil)

	body := validBody("Ann Roe")
	body["references_text"] = "https://example.org/1\n\nhttps://example.org/2"
	w := env.do(t, http.MethodPost, "/cases", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var c CaseDetail
	_ = json.Unmarshal(w.Body.Bytes(), &c)
	if c.ID == "" {
		t.Error("expected generated id")
	}
	if len(c.References) != 2 {
		t.Errorf("references = %v", c.References)
	}

	w = env.do(t, http.MethodGet, "/cases/"+c.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get created = %d", w.Code)
	}
}

func TestCreateCase_ValidationFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	body := validBody("  ")
	body["status"] = "Closed"
	body["references"] = []string{"not a url"}
	w := env.do(t, http.MethodPost, "/cases", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp validationResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	for _, f := range []string{"name", "status", "references.0"} {
		if _, ok := resp.Fields[f]; !ok {
			t.Errorf("missing field error %q in %v", f, resp.Fields)
		}
	}
	if n := len(env.svc.ViewModel().Records()); n != 2 {
		t.Errorf("records = %d, want 2", n)
	}
}

func TestCreateCase_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/cases", strings.NewReader("{"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateCase_PathIDWins(t *testing.T) {
	env := newTestEnv(t, nil)

	body := validBody("John A. Smith")
	body["id"] = "someone-else"
	w := env.do(t, http.MethodPut, "/cases/john-smith", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	records := env.svc.ViewModel().Records()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[1].ID != "john-smith" || records[1].Name != "John A. Smith" {
		t.Errorf("record = %+v", records[1])
	}
}

func TestViewSearchDebounced(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPut, "/view/search", SearchTermRequest{Term: "jane"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	var view ViewResponse
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.State.InputTerm != "jane" {
		t.Errorf("input term = %q", view.State.InputTerm)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		w = env.do(t, http.MethodGet, "/view", nil)
		_ = json.Unmarshal(w.Body.Bytes(), &view)
		if view.State.SearchTerm == "jane" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(view.Cases) != 1 || view.Cases[0].ID != "jane-doe" {
		t.Errorf("view = %+v", view.Cases)
	}
}

func TestAdminEditFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/admin/edit/jane-doe", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("edit outside admin = %d, want 409", w.Code)
	}

	w = env.do(t, http.MethodPost, "/admin/toggle", nil)
	var resp AdminResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.State.Admin {
		t.Fatal("expected admin on")
	}

	w = env.do(t, http.MethodPost, "/admin/edit/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("edit missing = %d, want 404", w.Code)
	}

	w = env.do(t, http.MethodPost, "/admin/edit/jane-doe", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.State.EditTarget == nil || resp.State.EditTarget.ID != "jane-doe" {
		t.Fatalf("edit target = %+v", resp.State.EditTarget)
	}

	w = env.do(t, http.MethodDelete, "/admin/edit", nil)
	resp = AdminResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.State.EditTarget != nil {
		t.Error("expected edit target cleared")
	}
}

func TestReload_FailureKeepsRecords(t *testing.T) {
	env := newTestEnv(t, nil)

	if err := os.RemoveAll(env.dir); err != nil {
		t.Fatal(err)
	}
	w := env.do(t, http.MethodPost, "/reload", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), catalog.LoadErrorMessage) {
		t.Errorf("body = %s", w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/view", nil)
	var view ViewResponse
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.State.LastError != catalog.LoadErrorMessage || len(view.Cases) != 2 {
		t.Errorf("view after failed reload = %+v", view)
	}
}

func TestReload_PicksUpNewCase(t *testing.T) {
	env := newTestEnv(t, nil)
	testutil.WriteCase(t, env.dir, "mary-major", `{"name":"Mary Major","location":"Lumby","status":"Unsolved","description":"d","date":{"year":2001}}`, "")

	w := env.do(t, http.MethodPost, "/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var view ViewResponse
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.State.Total != 3 {
		t.Errorf("total = %d, want 3", view.State.Total)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/search?q=orchard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != "jane-doe" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEventsMounted(t *testing.T) {
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	env := newTestEnv(t, broker)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

func photoRouter(store *storage.FS) http.Handler {
	r := chi.NewRouter()
	r.Get("/photos/{filename}", NewPhotoHandler(store).ServeFile)
	return r
}

func TestServePhoto(t *testing.T) {
	env := newTestEnv(t, nil)
	testutil.WriteFile(t, filepath.Join(env.dir, "photos", "jane.jpg"), "jpeg-bytes")

	w := httptest.NewRecorder()
	photoRouter(env.store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/photos/jane.jpg", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "jpeg-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestServePhoto_Missing(t *testing.T) {
	env := newTestEnv(t, nil)

	w := httptest.NewRecorder()
	photoRouter(env.store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/photos/none.jpg", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestServePhoto_TraversalBlocked(t *testing.T) {
	env := newTestEnv(t, nil)

	w := httptest.NewRecorder()
	photoRouter(env.store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/photos/..%2Fjane-doe%2Fmeta.json", nil))
	if w.Code == http.StatusOK {
		t.Errorf("traversal served with status %d", w.Code)
	}
}
