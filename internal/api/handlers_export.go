// handlers_export.go - CSV export handlers
package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/serial-plotter/backend/internal/export"
	"github.com/serial-plotter/backend/internal/storage"
)

// ExportHandlerImpl implements the ExportHandler interface
type ExportHandlerImpl struct {
	exports  storage.Store
	sessions SessionManager
	now      func() time.Time
}

// NewExportHandler creates a new export handler
func NewExportHandler(exports storage.Store, sessions SessionManager) ExportHandler {
	return &ExportHandlerImpl{
		exports:  exports,
		sessions: sessions,
		now:      time.Now,
	}
}

// HandleExportRaw saves the raw line buffer as a CSV dump
func (h *ExportHandlerImpl) HandleExportRaw(c echo.Context) error {
	id := c.Param("id")
	lines, err := h.sessions.RawLines(id, 0)
	if err != nil {
		return fromDomainError(err, id)
	}

	info, err := h.exports.SaveBytes(export.FileName(h.now()), []byte(export.RawCSV(lines)))
	if err != nil {
		return NewInternalError("failed to save export", err)
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleExportSeries saves the aligned series as a CSV table
func (h *ExportHandlerImpl) HandleExportSeries(c echo.Context) error {
	id := c.Param("id")
	snap, err := h.sessions.Aligned(id)
	if err != nil {
		return fromDomainError(err, id)
	}

	var buf bytes.Buffer
	if err := export.SeriesCSV(&buf, snap); err != nil {
		return NewInternalError("failed to render export", err)
	}
	info, err := h.exports.SaveBytes(export.SeriesFileName(h.now()), buf.Bytes())
	if err != nil {
		return NewInternalError("failed to save export", err)
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleListExports returns the most recent exports
func (h *ExportHandlerImpl) HandleListExports(c echo.Context) error {
	files, err := h.exports.List(queryInt(c, "limit", 50))
	if err != nil {
		return NewInternalError("failed to list exports", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleDownloadExport streams an export as an attachment
func (h *ExportHandlerImpl) HandleDownloadExport(c echo.Context) error {
	id := c.Param("id")
	info, err := h.exports.Get(id)
	if err != nil {
		return fromDomainError(err, "")
	}
	path, err := h.exports.GetFilePath(id)
	if err != nil {
		return fromDomainError(err, "")
	}
	return c.Attachment(path, info.Name)
}
