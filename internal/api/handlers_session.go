// handlers_session.go - Monitor session handlers
package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/serial-plotter/backend/internal/parser"
	"github.com/serial-plotter/backend/internal/source"
	"github.com/vmihailenco/msgpack/v5"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions     SessionManager
	simulator    source.SimulatorConfig
	snapshotTail int
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionManager, simulator source.SimulatorConfig, snapshotTail int) SessionHandler {
	return &SessionHandlerImpl{
		sessions:     sessions,
		simulator:    simulator,
		snapshotTail: snapshotTail,
	}
}

type createSessionRequest struct {
	Name string `json:"name"`
}

// HandleCreateSession opens a new monitoring session
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	sess, err := h.sessions.Create(strings.TrimSpace(req.Name))
	if err != nil {
		return fromDomainError(err, "")
	}
	return c.JSON(http.StatusCreated, sess)
}

// HandleListSessions returns every open session
func (h *SessionHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessions.List())
}

// HandleGetSession returns one session with its counters
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("id")
	sess, err := h.sessions.Get(id)
	if err != nil {
		return fromDomainError(err, id)
	}
	counters, err := h.sessions.Counters(id)
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session":  sess,
		"counters": counters,
	})
}

// HandleDeleteSession closes a session
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessions.Delete(id); err != nil {
		return fromDomainError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if ok := h.sessions.Touch(id); !ok {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleFeedLines ingests a text/plain body, one line per row
func (h *SessionHandlerImpl) HandleFeedLines(c echo.Context) error {
	id := c.Param("id")
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read body", err)
	}

	n, err := h.sessions.Feed(id, string(body))
	if err != nil {
		return fromDomainError(err, id)
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"lines":   n,
		"session": sess,
	})
}

// HandleReset clears variables, series and raw lines
func (h *SessionHandlerImpl) HandleReset(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessions.Reset(id); err != nil {
		return fromDomainError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

type autoUpdateRequest struct {
	Enabled *bool `json:"enabled"`
}

// HandleSetAutoUpdate opens or closes the variable creation gate
func (h *SessionHandlerImpl) HandleSetAutoUpdate(c echo.Context) error {
	id := c.Param("id")
	var req autoUpdateRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Enabled == nil {
		return NewValidationError("enabled")
	}
	if err := h.sessions.SetAutoVariableUpdate(id, *req.Enabled); err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

type parseModeRequest struct {
	Mode string `json:"mode"`
}

// HandleSetParseMode switches between the heuristic and strict tokenizers
func (h *SessionHandlerImpl) HandleSetParseMode(c echo.Context) error {
	id := c.Param("id")
	var req parseModeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Mode == "" {
		return NewValidationError("mode")
	}
	if _, err := h.sessions.Get(id); err != nil {
		return fromDomainError(err, id)
	}
	if err := h.sessions.SetParseMode(id, req.Mode); err != nil {
		return NewBadRequestError("unknown parse mode", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"mode": strings.ToLower(req.Mode)})
}

// HandleGetVariables returns the variable configuration in insertion order
func (h *SessionHandlerImpl) HandleGetVariables(c echo.Context) error {
	id := c.Param("id")
	vars, err := h.sessions.Variables(id)
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, vars)
}

type updateVariableRequest struct {
	DisplayName *string `json:"displayName"`
	Color       *string `json:"color"`
}

// HandleUpdateVariable overrides a variable's display name and/or colour
func (h *SessionHandlerImpl) HandleUpdateVariable(c echo.Context) error {
	id := c.Param("id")
	name := c.Param("name")

	var req updateVariableRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.DisplayName == nil && req.Color == nil {
		return NewValidationError("displayName or color")
	}

	if req.DisplayName != nil {
		if err := h.sessions.SetDisplayName(id, name, *req.DisplayName); err != nil {
			return fromDomainError(err, id)
		}
	}
	if req.Color != nil {
		if err := h.sessions.SetColor(id, name, *req.Color); err != nil {
			return fromDomainError(err, id)
		}
	}

	vars, err := h.sessions.Variables(id)
	if err != nil {
		return fromDomainError(err, id)
	}
	for _, v := range vars {
		if v.Name == name {
			return c.JSON(http.StatusOK, v)
		}
	}
	return NewNotFoundError("variable", name)
}

// HandleDeleteVariable removes a variable and its series
func (h *SessionHandlerImpl) HandleDeleteVariable(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessions.DeleteVariable(id, c.Param("name")); err != nil {
		return fromDomainError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleApplyPreset applies a YAML preset from the request body or a
// multipart "file" field
func (h *SessionHandlerImpl) HandleApplyPreset(c echo.Context) error {
	id := c.Param("id")

	var r io.Reader = c.Request().Body
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		file, err := c.FormFile("file")
		if err != nil {
			return NewBadRequestError("no file provided", err)
		}
		src, err := file.Open()
		if err != nil {
			return NewInternalError("failed to open uploaded file", err)
		}
		defer src.Close()
		r = src
	}

	preset, err := parser.ParsePresetFromReader(r)
	if err != nil {
		return NewBadRequestError("invalid preset", err)
	}
	if err := h.sessions.ApplyPreset(id, preset); err != nil {
		if _, getErr := h.sessions.Get(id); getErr != nil {
			return fromDomainError(getErr, id)
		}
		return NewBadRequestError("invalid preset", err)
	}

	vars, err := h.sessions.Variables(id)
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, vars)
}

// HandleGetSeries returns the series, front-padded when aligned=true
func (h *SessionHandlerImpl) HandleGetSeries(c echo.Context) error {
	id := c.Param("id")
	if c.QueryParam("aligned") == "true" {
		snap, err := h.sessions.Aligned(id)
		if err != nil {
			return fromDomainError(err, id)
		}
		return c.JSON(http.StatusOK, snap)
	}

	snap, err := h.sessions.Snapshot(id, queryInt(c, "tail", 0))
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleGetSeriesMsgpack returns the snapshot encoded as MessagePack
func (h *SessionHandlerImpl) HandleGetSeriesMsgpack(c echo.Context) error {
	id := c.Param("id")
	snap, err := h.sessions.Snapshot(id, queryInt(c, "tail", h.snapshotTail))
	if err != nil {
		return fromDomainError(err, id)
	}

	data, err := msgpack.Marshal(snap)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleGetStats returns per-variable statistics over ?window=N samples
func (h *SessionHandlerImpl) HandleGetStats(c echo.Context) error {
	id := c.Param("id")
	stats, err := h.sessions.Stats(id, queryInt(c, "window", 0))
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, stats)
}

// HandleGetRaw returns the newest raw lines
func (h *SessionHandlerImpl) HandleGetRaw(c echo.Context) error {
	id := c.Param("id")
	lines, err := h.sessions.RawLines(id, queryInt(c, "limit", 0))
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"lines": lines,
		"count": len(lines),
	})
}

// HandleGetArchiveInfo returns the archive's sample count and stored schema
func (h *SessionHandlerImpl) HandleGetArchiveInfo(c echo.Context) error {
	id := c.Param("id")
	info, err := h.sessions.ArchiveInfo(c.Request().Context(), id)
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleGetArchive returns archived samples of one variable
func (h *SessionHandlerImpl) HandleGetArchive(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.sessions.Get(id); err != nil {
		return fromDomainError(err, id)
	}
	samples, err := h.sessions.ArchiveQuery(c.Request().Context(), id, c.Param("name"), queryInt(c, "limit", 1000))
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, samples)
}

type simulateRequest struct {
	Lines       int     `json:"lines"`
	IntervalMs  int     `json:"intervalMs"`
	HeaderEvery *int    `json:"headerEvery"`
	Step        float64 `json:"step"`
}

// HandleStartSimulator starts the simulated sine device on a session
func (h *SessionHandlerImpl) HandleStartSimulator(c echo.Context) error {
	id := c.Param("id")
	var req simulateRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Lines < 0 {
		return NewValidationError("lines")
	}

	cfg := h.simulator
	cfg.Lines = req.Lines
	if req.IntervalMs > 0 {
		cfg.Interval = time.Duration(req.IntervalMs) * time.Millisecond
	}
	if req.HeaderEvery != nil {
		cfg.HeaderEvery = *req.HeaderEvery
	}
	if req.Step != 0 {
		cfg.Step = req.Step
	}

	if err := h.sessions.StartSource(id, source.NewSimulator(cfg)); err != nil {
		return fromDomainError(err, id)
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusAccepted, sess)
}

// HandleStopSource stops whatever source feeds the session
func (h *SessionHandlerImpl) HandleStopSource(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessions.StopSource(id); err != nil {
		return fromDomainError(err, id)
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, sess)
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
