package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/filters"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bitscreen/internal/index"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
	"github.com/MrSnakeDoc/bitscreen/internal/settings"
	"github.com/MrSnakeDoc/bitscreen/internal/store"
)

type env struct {
	handler  http.Handler
	deps     deps.Deps
	nodePath string
}

func newEnv(t *testing.T, opts ...func(*deps.Deps)) *env {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewNop()

	db, err := store.Open(context.Background(), store.NewFileBackend(filepath.Join(dir, "local_database")), log)
	require.NoError(t, err)

	nodePath := filepath.Join(dir, "config")
	start := time.Unix(1_700_000_000, 0)
	d := deps.Deps{
		Logger:           log,
		StartTime:        start,
		Version:          "test",
		TimeNow:          func() time.Time { return start.Add(90 * time.Second) },
		SharedRateBurst:  100,
		SharedRatePerMin: 100,
		Filters:          filters.New(store.NewFilterStore(db), log),
		Settings:         settings.New(store.NewConfigStore(db), nodePath, log),
		Database:         db,
		SyncIndex:        index.NewSyncIndex(),
		SyncInterval:     time.Hour,
		SyncTrigger:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return &env{handler: httpserver.NewRouter(d), deps: d, nodePath: nodePath}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type envelope struct {
	Success bool   `json:"success"`
	ID      int    `json:"_id"`
	Error   string `json:"error"`
}

func (e *env) create(t *testing.T, f domain.FilterList) int {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/filters", f)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody[envelope](t, rec)
	require.True(t, out.Success)
	return out.ID
}

func (e *env) get(t *testing.T, id int) domain.FilterList {
	t.Helper()
	rec := e.do(t, http.MethodGet, fmt.Sprintf("/filters/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[domain.FilterList](t, rec)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 90, body["uptime_seconds"], 0.001)
}

func TestFilterLifecycle(t *testing.T) {
	e := newEnv(t)

	id := e.create(t, domain.FilterList{
		Name:       "spam",
		Visibility: domain.VisibilityPrivate,
		Enabled:    true,
		CIDs:       []domain.CidItem{{CID: "bafyA"}},
	})
	assert.Equal(t, 1, id)

	got := e.get(t, id)
	assert.Equal(t, "spam", got.Name)
	assert.NotEmpty(t, got.CryptID)
	require.Len(t, got.CIDs, 1)
	assert.NotEmpty(t, got.CIDs[0].ID)

	got.Description = "updated"
	rec := e.do(t, http.MethodPut, "/filters", got)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "updated", e.get(t, id).Description)

	rec = e.do(t, http.MethodGet, "/filters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.FilterList](t, rec), 1)

	rec = e.do(t, http.MethodGet, "/search-filters?search=SPA", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.FilterList](t, rec), 1)

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/filters/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/filters/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decodeBody[envelope](t, rec).Error)

	// ids are never reused
	assert.Equal(t, 2, e.create(t, domain.FilterList{Name: "next"}))
}

func TestShareIDIsServerOwned(t *testing.T) {
	e := newEnv(t)

	a := e.get(t, e.create(t, domain.FilterList{Name: "a", CryptID: "same"}))
	b := e.get(t, e.create(t, domain.FilterList{Name: "b", CryptID: "same"}))
	assert.NotEqual(t, a.CryptID, b.CryptID)

	rec := e.do(t, http.MethodPut, "/filters", map[string]any{"id": a.ID, "name": "a", "_cryptId": "changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, a.CryptID, e.get(t, a.ID).CryptID)

	rec = e.do(t, http.MethodGet, "/filters/shared/changed", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/filters", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeBody[envelope](t, rec).Success)

	rec = e.do(t, http.MethodPost, "/filters", domain.FilterList{Name: "x", Override: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/filters/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/filters?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSharedEndpoints(t *testing.T) {
	e := newEnv(t)

	pubID := e.create(t, domain.FilterList{Name: "pub", Visibility: domain.VisibilityPublic, CIDs: []domain.CidItem{{CID: "bafyA"}}})
	privID := e.create(t, domain.FilterList{Name: "priv", Visibility: domain.VisibilityPrivate})
	pub, priv := e.get(t, pubID), e.get(t, privID)

	rec := e.do(t, http.MethodGet, "/filters/shared/"+pub.CryptID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shared := decodeBody[domain.FilterList](t, rec)
	require.Len(t, shared.CIDs, 1)
	assert.Equal(t, filters.HashCID("bafyA"), shared.CIDs[0].CID)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))

	rec = e.do(t, http.MethodGet, "/filters/shared/"+pub.CryptID+"/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeBody[domain.VersionDescriptor](t, rec)
	assert.Equal(t, pub.CryptID, v.CryptID)
	assert.Equal(t, pub.LastUpdatedAt, v.LastUpdatedAt)

	rec = e.do(t, http.MethodGet, "/filters/shared/"+priv.CryptID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/filters/shared/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConflictEndpoints(t *testing.T) {
	e := newEnv(t)

	privID := e.create(t, domain.FilterList{Name: "A", Visibility: domain.VisibilityPrivate, CIDs: []domain.CidItem{{CID: "c1"}, {CID: "c2"}}})
	excID := e.create(t, domain.FilterList{Name: "B", Visibility: domain.VisibilityException})

	rec := e.do(t, http.MethodPost, "/filters/conflicts", map[string]any{"cids": []string{"c1"}, "filterId": excID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detected := decodeBody[struct {
		Conflicts []domain.Conflict `json:"conflicts"`
		Kind      string            `json:"kind"`
	}](t, rec)
	require.Len(t, detected.Conflicts, 1)
	assert.Equal(t, "single", detected.Kind)
	assert.Equal(t, privID, detected.Conflicts[0].FilterID)

	rec = e.do(t, http.MethodPost, "/filters/conflicts/resolve", map[string]any{"conflicts": detected.Conflicts})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decodeBody[struct {
		Success  bool              `json:"success"`
		Resolved []domain.Conflict `json:"resolved"`
		Pending  []domain.Conflict `json:"pending"`
	}](t, rec)
	assert.True(t, resolved.Success)
	assert.Len(t, resolved.Resolved, 1)
	assert.Empty(t, resolved.Pending)

	a := e.get(t, privID)
	require.Len(t, a.CIDs, 1)
	assert.Equal(t, "c2", a.CIDs[0].CID)
}

func TestResolveReportsPartialFailure(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/filters/conflicts/resolve", map[string]any{
		"conflicts": []domain.Conflict{{ID: "gone", FilterID: 42, CID: "c1"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[envelope](t, rec)
	assert.False(t, out.Success)
	assert.Equal(t, filters.PartialFailureMessage, out.Error)
}

func TestBulkEndpoints(t *testing.T) {
	e := newEnv(t)
	a := e.create(t, domain.FilterList{Name: "a"})
	b := e.create(t, domain.FilterList{Name: "b"})

	rec := e.do(t, http.MethodPost, "/filters/bulk/enabled", map[string]any{"ids": []int{a, b}, "enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[envelope](t, rec).Success)
	assert.True(t, e.get(t, a).Enabled)
	assert.True(t, e.get(t, b).Enabled)

	rec = e.do(t, http.MethodPost, "/filters/bulk/delete", map[string]any{"ids": []int{a, 99}})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[envelope](t, rec)
	assert.False(t, out.Success)
	assert.Equal(t, filters.PartialFailureMessage, out.Error)

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/filters/%d", a), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMoveAndImport(t *testing.T) {
	e := newEnv(t)
	from := e.create(t, domain.FilterList{Name: "from", CIDs: []domain.CidItem{{CID: "c1"}}})
	to := e.create(t, domain.FilterList{Name: "to"})

	rec := e.do(t, http.MethodPost, "/filters/move", map[string]any{"fromId": from, "toId": to, "cidId": e.get(t, from).CIDs[0].ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, e.get(t, from).CIDs)
	require.Len(t, e.get(t, to).CIDs, 1)

	rec = e.do(t, http.MethodPost, "/filters/move", map[string]any{"fromId": from, "toId": to, "cidId": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/filters/%d/cids/import", from), "c2\nc3,https://example.org/ticket\nc2\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	imported := decodeBody[struct {
		Added      int `json:"added"`
		Duplicates int `json:"duplicates"`
	}](t, rec)
	assert.Equal(t, 2, imported.Added)
	assert.Equal(t, 1, imported.Duplicates)
	assert.Len(t, e.get(t, from).CIDs, 2)
}

func TestConfigEndpoints(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = e.do(t, http.MethodPut, "/config", map[string]any{"bitscreen": true, "theme": "dark"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPut, "/config", map[string]any{"share": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bitscreen":true,"theme":"dark","share":true}`, rec.Body.String())

	data, err := os.ReadFile(e.nodePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"share": true`)

	rec = e.do(t, http.MethodPut, "/config", map[string]any{"bitscreen": "yes"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncTrigger(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/sync", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = e.do(t, http.MethodPost, "/sync", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	<-e.deps.SyncTrigger
	rec = e.do(t, http.MethodPost, "/sync", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestInfra(t *testing.T) {
	e := newEnv(t)
	e.create(t, domain.FilterList{Name: "a"})
	e.deps.SyncIndex.MarkFailed(7, "http://peer/x", time.Now(), fmt.Errorf("network error"))

	rec := e.do(t, http.MethodGet, "/infra", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[struct {
		Mode       string `json:"mode"`
		Components map[string]struct {
			OK      bool   `json:"ok"`
			Backend string `json:"backend"`
			Filters *int   `json:"filters"`
		} `json:"components"`
		Sync struct {
			LastCycle string `json:"last_cycle"`
			Lists     []any  `json:"lists"`
		} `json:"sync"`
	}](t, rec)

	assert.Equal(t, "degraded", body.Mode)
	assert.Equal(t, "file", body.Components["store"].Backend)
	require.NotNil(t, body.Components["store"].Filters)
	assert.Equal(t, 1, *body.Components["store"].Filters)
	assert.Equal(t, "never", body.Sync.LastCycle)
	assert.Len(t, body.Sync.Lists, 1)
}

func TestInfraReportsStoreRevision(t *testing.T) {
	type storeComponent struct {
		Revision *int64 `json:"revision"`
	}
	type infra struct {
		Components map[string]storeComponent `json:"components"`
	}

	rec := newEnv(t).do(t, http.MethodGet, "/infra", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody[infra](t, rec).Components["store"].Revision)

	e := newEnv(t, func(d *deps.Deps) {
		d.StoreRevision = func(context.Context) (int64, error) { return 42, nil }
	})
	rec = e.do(t, http.MethodGet, "/infra", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rev := decodeBody[infra](t, rec).Components["store"].Revision
	require.NotNil(t, rev)
	assert.Equal(t, int64(42), *rev)
}

func TestReadyzReportsStoreOutage(t *testing.T) {
	e := newEnv(t, func(d *deps.Deps) {
		d.StorePing = func(context.Context) error { return fmt.Errorf("connection refused") }
	})

	assert.Equal(t, http.StatusServiceUnavailable, e.do(t, http.MethodGet, "/readyz", nil).Code)
	assert.Equal(t, http.StatusOK, newEnv(t).do(t, http.MethodGet, "/readyz", nil).Code)
}

func TestAccessRestrictions(t *testing.T) {
	e := newEnv(t, func(d *deps.Deps) {
		d.AllowedHosts = []string{"bitscreen.local"}
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	// httptest requests come from 192.0.2.1 with Host example.com
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/filters", nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/infra", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/filters/shared/unknown", nil).Code)
}
