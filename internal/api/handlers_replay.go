// handlers_replay.go - Capture replay handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/serial-plotter/backend/internal/storage"
)

// ReplayHandlerImpl implements the ReplayHandler interface
type ReplayHandlerImpl struct {
	uploads  storage.Store
	sessions SessionManager
	replay   ReplayManager
}

// NewReplayHandler creates a new replay handler
func NewReplayHandler(uploads storage.Store, sessions SessionManager, replay ReplayManager) ReplayHandler {
	return &ReplayHandlerImpl{
		uploads:  uploads,
		sessions: sessions,
		replay:   replay,
	}
}

// HandleStartReplay stores a multipart capture file and replays it into the
// session. A "fileId" form value replays a previously uploaded file instead.
func (h *ReplayHandlerImpl) HandleStartReplay(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.sessions.Get(id); err != nil {
		return fromDomainError(err, id)
	}

	fileID := c.FormValue("fileId")
	if fileID == "" {
		file, err := c.FormFile("file")
		if err != nil {
			return NewBadRequestError("no file provided", err)
		}
		src, err := file.Open()
		if err != nil {
			return NewInternalError("failed to open uploaded file", err)
		}
		defer src.Close()

		info, err := h.uploads.Save(file.Filename, src)
		if err != nil {
			return NewInternalError("failed to save file", err)
		}
		fileID = info.ID
	}

	job, err := h.replay.StartJob(id, fileID)
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusAccepted, job)
}

// HandleGetReplayJob returns the progress of a replay job
func (h *ReplayHandlerImpl) HandleGetReplayJob(c echo.Context) error {
	jobID := c.Param("jobId")
	job, ok := h.replay.GetJob(jobID)
	if !ok {
		return NewNotFoundError("replay job", jobID)
	}
	return c.JSON(http.StatusOK, job)
}
