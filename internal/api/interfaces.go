// interfaces.go - Handler interface definitions
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/serial-plotter/backend/internal/archive"
	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/session"
	"github.com/serial-plotter/backend/internal/source"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionHandler handles session lifecycle, ingestion and observation
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleFeedLines(c echo.Context) error
	HandleReset(c echo.Context) error
	HandleSetAutoUpdate(c echo.Context) error
	HandleSetParseMode(c echo.Context) error
	HandleGetVariables(c echo.Context) error
	HandleUpdateVariable(c echo.Context) error
	HandleDeleteVariable(c echo.Context) error
	HandleApplyPreset(c echo.Context) error
	HandleGetSeries(c echo.Context) error
	HandleGetSeriesMsgpack(c echo.Context) error
	HandleGetStats(c echo.Context) error
	HandleGetRaw(c echo.Context) error
	HandleGetArchive(c echo.Context) error
	HandleGetArchiveInfo(c echo.Context) error
	HandleStartSimulator(c echo.Context) error
	HandleStopSource(c echo.Context) error
}

// ReplayHandler handles capture replays
type ReplayHandler interface {
	HandleStartReplay(c echo.Context) error
	HandleGetReplayJob(c echo.Context) error
}

// ExportHandler handles CSV exports
type ExportHandler interface {
	HandleExportRaw(c echo.Context) error
	HandleExportSeries(c echo.Context) error
	HandleListExports(c echo.Context) error
	HandleDownloadExport(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create(name string) (*models.MonitorSession, error)
	Get(id string) (*models.MonitorSession, error)
	List() []*models.MonitorSession
	Delete(id string) error
	Touch(id string) bool
	Feed(id, text string) (int, error)
	Reset(id string) error
	Variables(id string) ([]models.Variable, error)
	Snapshot(id string, tail int) (models.SeriesSnapshot, error)
	Aligned(id string) (models.AlignedSnapshot, error)
	Stats(id string, window int) ([]models.SeriesStats, error)
	RawLines(id string, limit int) ([]string, error)
	Counters(id string) (ingest.Counters, error)
	SetDisplayName(id, name, displayName string) error
	SetColor(id, name, color string) error
	DeleteVariable(id, name string) error
	SetAutoVariableUpdate(id string, enabled bool) error
	SetParseMode(id, mode string) error
	ApplyPreset(id string, preset *models.Preset) error
	ArchiveQuery(ctx context.Context, id, variable string, limit int) ([]archive.Sample, error)
	ArchiveInfo(ctx context.Context, id string) (*session.ArchiveSummary, error)
	StartSource(id string, src source.Source) error
	StopSource(id string) error
}

// ReplayManager starts and tracks replay jobs
type ReplayManager interface {
	StartJob(sessionID, fileID string) (*models.ReplayJob, error)
	GetJob(id string) (*models.ReplayJob, bool)
}
