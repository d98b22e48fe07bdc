package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/source"
	"github.com/dgallion1/docnav/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const structureDoc = `[
	{"title": "Guides", "kind": "directory", "path": "guides", "children": [
		{"title": "Theming", "kind": "file", "path": "guides/theming", "route": "/docs/guides/theming"},
		{"title": "Forms", "kind": "file", "path": "guides/forms", "route": "/docs/guides/forms"}
	]},
	{"title": "Getting Started", "kind": "file", "path": "getting-started", "route": "/docs/getting-started"}
]`

var discard = slog.New(slog.DiscardHandler)

type fixture struct {
	srv   *Server
	store *store.Store
	doc   *source.Document
	body  atomic.Value
}

func newFixture(t *testing.T, cfg config.Config, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{doc: &source.Document{}}
	f.body.Store(structureDoc)
	require.NoError(t, f.doc.Set([]byte(structureDoc)))
	f.store = store.New(store.FetcherFunc(func(ctx context.Context) ([]byte, error) {
		body := f.body.Load().(string)
		if body == "" {
			return nil, errors.New("upstream down")
		}
		return []byte(body), nil
	}))
	t.Cleanup(f.store.Close)
	f.srv = NewServer(f.store, f.doc, discard, cfg, opts...)
	return f
}

func (f *fixture) do(t *testing.T, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, config.Config{})
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRawStructure(t *testing.T) {
	f := newFixture(t, config.Config{})
	rec := f.do(t, http.MethodGet, "/docs-structure.json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, structureDoc, rec.Body.String())
}

func TestRawStructure_NotBuilt(t *testing.T) {
	f := newFixture(t, config.Config{})
	empty := NewServer(f.store, &source.Document{}, discard, config.Config{})
	rec := httptest.NewRecorder()
	empty.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs-structure.json", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	remote := NewServer(f.store, nil, discard, config.Config{})
	rec = httptest.NewRecorder()
	remote.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs-structure.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueriesBeforeLoad(t *testing.T) {
	f := newFixture(t, config.Config{})

	rec := f.do(t, http.MethodGet, "/api/structure/files", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "idle", decode(t, rec)["status"])

	rec = f.do(t, http.MethodGet, "/api/structure", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "idle", body["status"])
	assert.NotContains(t, body, "tree")
}

func TestStructureAndQueries(t *testing.T) {
	f := newFixture(t, config.Config{})
	require.NoError(t, f.store.Load(context.Background()))

	rec := f.do(t, http.MethodGet, "/api/structure", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ready", body["status"])
	assert.EqualValues(t, 4, body["nodes"])
	tree := body["tree"].([]any)
	require.Len(t, tree, 2)
	assert.Equal(t, "getting-started", tree[0].(map[string]any)["path"], "sorted by priority")

	rec = f.do(t, http.MethodGet, "/api/structure/files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files := decode(t, rec)["files"].([]any)
	require.Len(t, files, 3)
	assert.Equal(t, "guides/forms", files[1].(map[string]any)["path"], "forms sorts before theming")

	rec = f.do(t, http.MethodGet, "/api/structure/node?path=guides", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "directory", decode(t, rec)["kind"])

	rec = f.do(t, http.MethodGet, "/api/structure/node?path=missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/structure/node", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBreadcrumbAndPager(t *testing.T) {
	f := newFixture(t, config.Config{})
	require.NoError(t, f.store.Load(context.Background()))

	rec := f.do(t, http.MethodGet, "/api/breadcrumb?url=/docs/guides/theming/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[
		{"title":"Guides","href":"#"},
		{"title":"Theming","href":"/docs/guides/theming","current":true}
	]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/breadcrumb?url=/docs/nowhere", nil)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/pager?url=/docs/guides/forms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "getting-started", body["prev"].(map[string]any)["path"])
	assert.Equal(t, "guides/theming", body["next"].(map[string]any)["path"])

	rec = f.do(t, http.MethodGet, "/api/pager?url=/docs/getting-started", nil)
	body = decode(t, rec)
	assert.Nil(t, body["prev"])
	assert.NotNil(t, body["next"])

	rec = f.do(t, http.MethodGet, "/api/pager", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelect(t *testing.T) {
	f := newFixture(t, config.Config{})

	rec := f.do(t, http.MethodGet, "/api/structure/select?q=$..[?(@.kind=='file')].path", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	results := decode(t, rec)["results"].([]any)
	assert.ElementsMatch(t, []any{"guides/theming", "guides/forms", "getting-started"}, results)

	rec = f.do(t, http.MethodGet, "/api/structure/select?q=$[", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/structure/select", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefetch(t *testing.T) {
	var rebuilds atomic.Int32
	f := newFixture(t, config.Config{}, WithRebuild(func(ctx context.Context) error {
		rebuilds.Add(1)
		return nil
	}))

	rec := f.do(t, http.MethodPost, "/api/structure/refetch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])
	assert.Equal(t, int32(1), rebuilds.Load())

	f.body.Store(`[{"kind": "file", "path": "a"}]`)
	rec = f.do(t, http.MethodPost, "/api/structure/refetch", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	violations := body["violations"].([]any)
	require.Len(t, violations, 1)
	assert.Equal(t, "[0].title", violations[0].(map[string]any)["field"])

	f.body.Store("")
	rec = f.do(t, http.MethodPost, "/api/structure/refetch", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream down", decode(t, rec)["error"])

	rec = f.do(t, http.MethodGet, "/api/structure/files", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "failed load discards the tree")
}

func TestRefetch_RebuildError(t *testing.T) {
	f := newFixture(t, config.Config{}, WithRebuild(func(ctx context.Context) error {
		return errors.New("disk gone")
	}))
	rec := f.do(t, http.MethodPost, "/api/structure/refetch", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, store.StatusIdle, f.store.State().Status)
}

func TestRefetch_Auth(t *testing.T) {
	f := newFixture(t, config.Config{APIKey: "secret"})

	rec := f.do(t, http.MethodPost, "/api/structure/refetch", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/structure/refetch", http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/structure/refetch", http.Header{"Authorization": {"Bearer secret"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/structure", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads stay public")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	f := newFixture(t, config.Config{}, WithMetrics(reg))
	m.ObserveLoad(time.Now(), store.OutcomeReady)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `docnav_structure_loads_total{outcome="ready"} 1`)

	plain := newFixture(t, config.Config{})
	assert.Equal(t, http.StatusNotFound, plain.do(t, http.MethodGet, "/metrics", nil).Code)
}

func TestEvents(t *testing.T) {
	f := newFixture(t, config.Config{})
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/structure/events", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var first map[string]any
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, "idle", first["status"])

	require.NoError(t, f.store.Load(context.Background()))

	// Loading may or may not be observed before ready.
	for {
		var ev map[string]any
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		if ev["status"] == "ready" {
			assert.EqualValues(t, 4, ev["nodes"])
			break
		}
		assert.Equal(t, "loading", ev["status"])
	}

	f.store.Close()
	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestRequestLogger(t *testing.T) {
	var buf strings.Builder
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "short and stout")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/x"`)
}
