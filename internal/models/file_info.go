package models

import "time"

// FileInfo represents metadata about a stored file (capture upload or export).
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Kind       string    `json:"kind"` // "upload", "export"
}
