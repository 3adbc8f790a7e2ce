package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	syncerrors "github.com/vishu3131/civisync/errors"
	"github.com/vishu3131/civisync/internal/syncer"
	"github.com/vishu3131/civisync/log"
)

// firebaseUIDHeader carries the caller's identity, set by the application's
// session middleware upstream of this engine.
const firebaseUIDHeader = "X-Firebase-UID"

// SyncAPI exposes the sync engine over HTTP.
type SyncAPI struct {
	svc     *syncer.Service
	trigger *syncer.TriggerManager
	logger  log.Logger
}

// NewSyncAPI initializes the sync API.
func NewSyncAPI(svc *syncer.Service, trigger *syncer.TriggerManager, logger log.Logger) *SyncAPI {
	return &SyncAPI{
		svc:     svc,
		trigger: trigger,
		logger:  logger,
	}
}

// RegisterRoutes registers the sync routes.
func (a *SyncAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/sync/users/:uid", a.SyncUserHandler)
	e.POST("/v1/sync/all", a.SyncAllHandler)
	e.POST("/v1/sync/me", a.ForceSyncHandler)
	e.GET("/v1/sync/stats", a.StatsHandler)
	e.GET("/v1/sync/status", a.StatusHandler)
}

// SyncUserHandler runs the pipeline synchronously for one user.
func (a *SyncAPI) SyncUserHandler(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, syncerrors.NewInvalidRequest("uid is required"))
	}

	result := a.svc.SyncUser(c.Request().Context(), uid)
	if !result.Success {
		return c.JSON(http.StatusBadGateway, result)
	}
	return c.JSON(http.StatusOK, result)
}

// SyncAllHandler starts a full sweep, rejecting a concurrent one.
func (a *SyncAPI) SyncAllHandler(c echo.Context) error {
	result, err := a.svc.SyncAllUsers(c.Request().Context())
	if err != nil {
		if errors.Is(err, syncerrors.ErrBatchInProgress) {
			return c.JSON(http.StatusConflict, syncerrors.NewBatchInProgress())
		}
		a.logger.Error(c.Request().Context(), "Batch sync failed to start", err)
		return c.JSON(http.StatusInternalServerError, syncerrors.NewServerError("failed to run batch sync"))
	}
	return c.JSON(http.StatusOK, result)
}

// ForceSyncHandler is the "sync me now" entry point: non-debounced,
// bypasses the queue, for the currently authenticated user.
func (a *SyncAPI) ForceSyncHandler(c echo.Context) error {
	uid := c.Request().Header.Get(firebaseUIDHeader)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, syncerrors.NewNotAuthenticated("missing "+firebaseUIDHeader+" header"))
	}
	synced := a.svc.ForceSync(c.Request().Context(), uid)
	return c.JSON(http.StatusOK, map[string]bool{"synced": synced})
}

// StatsHandler returns the aggregate sync counters.
func (a *SyncAPI) StatsHandler(c echo.Context) error {
	stats, err := a.svc.Stats(c.Request().Context())
	if err != nil {
		a.logger.Error(c.Request().Context(), "Failed to compute sync stats", err)
		return c.JSON(http.StatusInternalServerError, syncerrors.NewServerError("failed to compute stats"))
	}
	return c.JSON(http.StatusOK, stats)
}

// StatusHandler reports trigger manager state.
func (a *SyncAPI) StatusHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, a.trigger.Status())
}
