package echo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishu3131/civisync/internal/syncer"
	"github.com/vishu3131/civisync/log"
)

func newTestAPI() (*echo.Echo, *SyncAPI) {
	logger := log.NewZerologAdapter(zerolog.Disabled, false)
	trigger := syncer.NewTriggerManager(nil, nil, syncer.DefaultOptions(), logger)
	api := NewSyncAPI(nil, trigger, logger)
	e := echo.New()
	api.RegisterRoutes(e)
	return e, api
}

func TestForceSyncRequiresIdentityHeader(t *testing.T) {
	e, _ := newTestAPI()

	req := httptest.NewRequest(http.MethodPost, "/v1/sync/me", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_authenticated", body["error"])
}

func TestStatusHandlerReportsIdleManager(t *testing.T) {
	e, _ := newTestAPI()

	req := httptest.NewRequest(http.MethodGet, "/v1/sync/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status syncer.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 0, status.ActiveListeners)
	assert.Equal(t, 0, status.QueueSize)
	assert.False(t, status.IsProcessing)
}
