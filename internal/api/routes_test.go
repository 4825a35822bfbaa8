package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketplace-sync-service/internal/config"
	"marketplace-sync-service/internal/logger"
	"marketplace-sync-service/internal/marketplace"
	"marketplace-sync-service/internal/store"
	"marketplace-sync-service/internal/sync"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type stubFetcher struct{}

func (stubFetcher) FetchPage(ctx context.Context, kind marketplace.Kind, apiKey string, pageNumber, pageSize int) (*marketplace.Page, error) {
	return &marketplace.Page{
		Items:      []map[string]any{{"sku": "SKU-1"}, {"sku": "SKU-2"}},
		TotalCount: 2,
		PageSize:   pageSize,
	}, nil
}

func newTestHandler(authToken string) *Handler {
	st := store.NewMemoryStore()
	orch := sync.NewOrchestrator(stubFetcher{}, sync.NewResolver(st), sync.NewWriter(st),
		sync.OrchestratorConfig{PageSize: 100})
	manager := sync.NewManager(st, orch)
	return NewHandler(manager, config.ServerConfig{AuthToken: authToken})
}

func TestHealthCheck(t *testing.T) {
	router := newTestHandler("").Routes()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerSyncRunsAndReportsResult(t *testing.T) {
	router := newTestHandler("").Routes()
	body := strings.NewReader(`{"tenant_id": "t1", "api_key": "k"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/products", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"totalItemsFetched":2`)
}

func TestTriggerSyncUnknownKind(t *testing.T) {
	router := newTestHandler("").Routes()
	body := strings.NewReader(`{"tenant_id": "t1", "api_key": "k"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerSyncMissingFields(t *testing.T) {
	router := newTestHandler("").Routes()
	body := strings.NewReader(`{"tenant_id": "t1"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/products", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerCleanup(t *testing.T) {
	router := newTestHandler("").Routes()
	body := strings.NewReader(`{"tenant_id": "t1"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cleanup/products", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"duplicatesRemoved":0`)
}

func TestAuthMiddleware(t *testing.T) {
	router := newTestHandler("sekrit").Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListRuns(t *testing.T) {
	h := newTestHandler("")
	router := h.Routes()

	body := strings.NewReader(`{"tenant_id": "t1", "api_key": "k"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sync/products", body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Status":"completed"`)
}
