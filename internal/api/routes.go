// routes.go - Route registration helpers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/serial-plotter/backend/internal/source"
	"github.com/serial-plotter/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Uploads          storage.Store
	Exports          storage.Store
	Sessions         SessionManager
	Replay           ReplayManager
	Metrics          http.Handler // nil disables /metrics
	Simulator        source.SimulatorConfig
	SnapshotInterval time.Duration
	SnapshotTail     int
	MaxMessageSize   int64
	Version          string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Session   SessionHandler
	Replay    ReplayHandler
	Export    ExportHandler
	WebSocket *WebSocketHandler
	Metrics   http.Handler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Sessions),
		Session:   NewSessionHandler(deps.Sessions, deps.Simulator, deps.SnapshotTail),
		Replay:    NewReplayHandler(deps.Uploads, deps.Sessions, deps.Replay),
		Export:    NewExportHandler(deps.Exports, deps.Sessions),
		WebSocket: NewWebSocketHandler(deps.Sessions, deps.SnapshotInterval, deps.SnapshotTail, deps.MaxMessageSize),
		Metrics:   deps.Metrics,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	if handlers.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(handlers.Metrics))
	}

	// Session lifecycle
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.GET("", handlers.Session.HandleListSessions)
	sessionGroup.GET("/:id", handlers.Session.HandleGetSession)
	sessionGroup.DELETE("/:id", handlers.Session.HandleDeleteSession)
	sessionGroup.POST("/:id/keepalive", handlers.Session.HandleSessionKeepAlive)

	// Ingestion
	sessionGroup.POST("/:id/lines", handlers.Session.HandleFeedLines)
	sessionGroup.POST("/:id/reset", handlers.Session.HandleReset)
	sessionGroup.PUT("/:id/auto-update", handlers.Session.HandleSetAutoUpdate)
	sessionGroup.PUT("/:id/parse-mode", handlers.Session.HandleSetParseMode)

	// Observation
	sessionGroup.GET("/:id/variables", handlers.Session.HandleGetVariables)
	sessionGroup.GET("/:id/series", handlers.Session.HandleGetSeries)
	sessionGroup.GET("/:id/series/msgpack", handlers.Session.HandleGetSeriesMsgpack)
	sessionGroup.GET("/:id/stats", handlers.Session.HandleGetStats)
	sessionGroup.GET("/:id/raw", handlers.Session.HandleGetRaw)
	sessionGroup.GET("/:id/archive", handlers.Session.HandleGetArchiveInfo)
	sessionGroup.GET("/:id/archive/:name", handlers.Session.HandleGetArchive)

	// User overrides
	sessionGroup.PUT("/:id/variables/:name", handlers.Session.HandleUpdateVariable)
	sessionGroup.DELETE("/:id/variables/:name", handlers.Session.HandleDeleteVariable)
	sessionGroup.POST("/:id/preset", handlers.Session.HandleApplyPreset)

	// Sources
	sessionGroup.POST("/:id/source/simulate", handlers.Session.HandleStartSimulator)
	sessionGroup.POST("/:id/source/stop", handlers.Session.HandleStopSource)
	sessionGroup.POST("/:id/replay", handlers.Replay.HandleStartReplay)
	apiGroup.GET("/replay/:jobId", handlers.Replay.HandleGetReplayJob)

	// Exports
	sessionGroup.POST("/:id/export/raw", handlers.Export.HandleExportRaw)
	sessionGroup.POST("/:id/export/series", handlers.Export.HandleExportSeries)
	apiGroup.GET("/exports", handlers.Export.HandleListExports)
	apiGroup.GET("/exports/:id", handlers.Export.HandleDownloadExport)

	// Live feed
	sessionGroup.GET("/:id/ws", handlers.WebSocket.HandleSessionSocket)
}

// SetupMiddleware configures the error handler and recovery
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))
}
