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

	"github.com/google/go-cmp/cmp"

	"github.com/starford/marketeer/internal/assets"
	"github.com/starford/marketeer/internal/catalog"
	"github.com/starford/marketeer/internal/index"
	"github.com/starford/marketeer/internal/models"
	"github.com/starford/marketeer/internal/session"
	"github.com/starford/marketeer/internal/sse"
	"github.com/starford/marketeer/internal/testutil"
)

type testEnv struct {
	market, traders string
	sess            *session.Session
	db              *index.DB
	router          http.Handler
}

// newTestEnv sets up project folders, a session, an index and a router.
// An empty token means auth is disabled.
func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{market: filepath.Join(root, "Market"), traders: filepath.Join(root, "Traders")}
	types := filepath.Join(root, "types")
	for _, d := range []string{env.market, env.traders, types} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	testutil.WriteFile(t, env.market, "weapons.json", `{"DisplayName":"Weapons","Items":[{"ClassName":"AKM"},{"ClassName":"M4A1"},{"ClassName":"AKM"}]}`)
	testutil.WriteFile(t, env.traders, "gunsmith.json", `{"DisplayName":"Gunsmith","Categories":["weapons"],"Items":{}}`)
	testutil.WriteFile(t, types, "types.xml", `<types><type name="Apple"/><type name="AKM"/></types>`)

	logger := testutil.Logger()
	tpl, err := assets.LoadTemplate("")
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	env.sess = session.New(logger, tpl)
	env.sess.SetProject(session.Project{MarketFolder: env.market, TradersFolder: env.traders, TypesFolder: types})

	env.db, err = index.Open(filepath.Join(root, "index.db"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { env.db.Close() })
	for _, f := range env.sess.Folders() {
		if err := index.Sync(env.db, f, logger); err != nil {
			t.Fatalf("Sync: %v", err)
		}
	}

	events := sse.NewBroker(100 * time.Millisecond)
	t.Cleanup(events.Close)
	env.router = NewRouter(env.sess, env.db, []string{"Ammo", "Rifle"}, events, token != "", token)
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestListAndGetCatalog(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodGet, "/catalogs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if diff := cmp.Diff([]string{"weapons.json"}, decode[FileListResponse](t, w).Files); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	w = env.do(t, http.MethodGet, "/catalogs/weapons", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[CatalogResponse](t, w)
	if got.Name != "weapons.json" || len(got.Document.Items) != 3 {
		t.Errorf("got %+v", got)
	}
	if got.Document.Items[0].QuantityPercent != -1 {
		t.Errorf("defaults not applied: %+v", got.Document.Items[0])
	}
}

func TestGetCatalog_NotFoundAndMalformed(t *testing.T) {
	env := newTestEnv(t, "")
	if w := env.do(t, http.MethodGet, "/catalogs/nope.json", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing = %d", w.Code)
	}
	testutil.WriteFile(t, env.market, "broken.json", "{")
	if w := env.do(t, http.MethodGet, "/catalogs/broken.json", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed = %d", w.Code)
	}
}

func TestPutCatalog(t *testing.T) {
	env := newTestEnv(t, "")
	body := `{"DisplayName":"Food","Color":"ff0000ff","Items":[{"ClassName":"Apple","SellPricePercent":5}]}`
	w := env.do(t, http.MethodPut, "/catalogs/food", body)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[CatalogResponse](t, w)
	if _, ok := resp.Issues["Items[0].SellPricePercent"]; !ok {
		t.Errorf("issues = %v", resp.Issues)
	}

	doc, err := openStore(t, env.market).LoadCatalog("food.json")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if doc.Color != "FF0000FF" {
		t.Errorf("color = %q", doc.Color)
	}
	if w := env.do(t, http.MethodPut, "/catalogs/food", "[1]"); w.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d", w.Code)
	}
}

func TestCreateCatalog(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodPost, "/catalogs", CreateCatalogRequest{Name: "medical"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[CatalogResponse](t, w); got.Name != "medical.json" {
		t.Errorf("name = %q", got.Name)
	}
	if w := env.do(t, http.MethodPost, "/catalogs", CreateCatalogRequest{Name: "medical"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/catalogs", CreateCatalogRequest{Name: "medical", Overwrite: true}); w.Code != http.StatusCreated {
		t.Errorf("overwrite = %d", w.Code)
	}
}

func TestBulkEdit(t *testing.T) {
	env := newTestEnv(t, "")
	pos := 0
	w := env.do(t, http.MethodPost, "/catalogs/weapons/bulk", BulkEditRequest{
		Indices:    []int{0, 1},
		Fields:     map[string]string{models.FieldMaxPriceThreshold: "250"},
		SellSlider: &pos,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[BulkEditResponse](t, w); got.Modified != 2 {
		t.Errorf("got %+v", got)
	}
	doc, _ := openStore(t, env.market).LoadCatalog("weapons.json")
	if doc.Items[1].MaxPriceThreshold != 250 || doc.Items[2].MaxPriceThreshold == 250 {
		t.Errorf("items = %+v", doc.Items)
	}

	w = env.do(t, http.MethodPost, "/catalogs/weapons/bulk", BulkEditRequest{
		Indices: []int{0},
		Fields:  map[string]string{models.FieldClassName: "x"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("disallowed field = %d", w.Code)
	}
}

func TestAddTypesAndTypeNames(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/types?q=a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("types status = %d", w.Code)
	}
	names := decode[TypeNamesResponse](t, w).Names
	if diff := cmp.Diff([]string{"AKM", "Apple"}, names); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	w = env.do(t, http.MethodGet, "/types?file=types.xml", nil)
	if got := decode[TypeNamesResponse](t, w); got.Strategy != "structural" {
		t.Errorf("strategy = %q", got.Strategy)
	}

	w = env.do(t, http.MethodPost, "/catalogs/weapons/types", AddTypesRequest{ClassNames: names})
	if w.Code != http.StatusOK {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[AddTypesResponse](t, w); got != (session.AddResult{Added: 1, Skipped: 1}) {
		t.Errorf("got %+v", got)
	}
}

func TestTraders(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/traders/gunsmith", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	w = env.do(t, http.MethodPut, "/traders/gunsmith",
		`{"DisplayName":"Gunsmith","Categories":["weapons","ammo"],"Items":{"AKM":"-1","M4A1":2}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	doc, _ := openStore(t, env.traders).LoadTrader("gunsmith.json")
	if diff := cmp.Diff([]string{"weapons", "ammo"}, doc.Categories); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	w = env.do(t, http.MethodGet, "/categories", nil)
	if diff := cmp.Diff(map[string][]string{"categories": {"weapons"}}, decode[map[string][]string](t, w)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDuplicatesScanAndRemove(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/duplicates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scan status = %d", w.Code)
	}
	scan := decode[DuplicatesResponse](t, w)
	if scan.Total != 1 || !strings.Contains(scan.Summary, "ClassName: AKM (index 2)") {
		t.Errorf("scan = %+v", scan)
	}

	w = env.do(t, http.MethodPost, "/duplicates/remove", nil)
	if got := decode[RemoveDuplicatesResponse](t, w); got.Removed != 1 || got.FilesSaved != 1 {
		t.Errorf("remove = %+v", got)
	}
	w = env.do(t, http.MethodGet, "/duplicates", nil)
	if got := decode[DuplicatesResponse](t, w); got.Total != 0 {
		t.Errorf("after remove total = %d", got.Total)
	}
}

func TestSearchEndpoints(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/search?q=akm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	if got := decode[SearchResponse](t, w).Results; len(got) != 2 {
		t.Errorf("results = %+v", got)
	}
	w = env.do(t, http.MethodGet, "/search/files?key=weapons", nil)
	want := []index.FileRef{{Kind: models.KindTrader, Name: "gunsmith.json"}}
	if diff := cmp.Diff(want, decode[FilesResponse](t, w).Files); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if w := env.do(t, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d", w.Code)
	}
}

func TestIcons(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/icons", nil)
	if diff := cmp.Diff(map[string][]string{"icons": {"Ammo", "Rifle"}}, decode[map[string][]string](t, w)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestNoFolderIsNotFound(t *testing.T) {
	sess := session.New(slog.New(slog.NewJSONHandler(io.Discard, nil)), nil)
	router := NewRouter(sess, nil, nil, nil, false, "")
	req := httptest.NewRequest(http.MethodGet, "/traders", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/search?q=x", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("search without index = %d", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newTestEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/catalogs", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingOrWrongToken(t *testing.T) {
	env := newTestEnv(t, "secret123")
	for _, header := range []string{"", "Bearer wrong", "secret123"} {
		req := httptest.NewRequest(http.MethodGet, "/catalogs", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q = %d, want 401", header, w.Code)
		}
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := newTestEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	env := newTestEnv(t, "tok")

	// The handler streams until the request context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

func openStore(t *testing.T, dir string) *catalog.Store {
	t.Helper()
	s, _, err := catalog.OpenFile(filepath.Join(dir, "x.json"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}
