package models

import "time"

// ReplayStatus is the state of a capture replay job.
type ReplayStatus string

const (
	ReplayStatusProcessing ReplayStatus = "processing"
	ReplayStatusComplete   ReplayStatus = "complete"
	ReplayStatusError      ReplayStatus = "error"
)

// ReplayJob tracks a capture file being fed into a session.
type ReplayJob struct {
	ID        string       `json:"id"`
	SessionID string       `json:"sessionId"`
	FileID    string       `json:"fileId"`
	FileName  string       `json:"fileName"`
	Status    ReplayStatus `json:"status"`
	Progress  float64      `json:"progress"` // 0-100
	Lines     int64        `json:"lines"`
	Error     string       `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
