package models

// SessionStatus represents the state of a monitoring session.
type SessionStatus string

const (
	SessionStatusIdle    SessionStatus = "idle"
	SessionStatusRunning SessionStatus = "running"
	SessionStatusStopped SessionStatus = "stopped"
	SessionStatusError   SessionStatus = "error"
)

// MonitorSession is the externally visible state of a monitoring session.
type MonitorSession struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name,omitempty"`
	Status             SessionStatus `json:"status"`
	Source             string        `json:"source,omitempty"` // "simulator", "reader", "replay"
	ParseMode          string        `json:"parseMode"`
	AutoVariableUpdate bool          `json:"autoVariableUpdate"`
	LineCount          int64         `json:"lineCount"`
	VariableCount      int           `json:"variableCount"`
	SampleCount        int           `json:"sampleCount"`
	SamplesExceeded    bool          `json:"samplesExceeded"`
	StartTime          int64         `json:"startTime"` // Unix ms
	LastActivity       int64         `json:"lastActivity,omitempty"`
	Error              string        `json:"error,omitempty"`
}

// NewMonitorSession creates a MonitorSession in idle status.
func NewMonitorSession(id, name string) *MonitorSession {
	return &MonitorSession{
		ID:                 id,
		Name:               name,
		Status:             SessionStatusIdle,
		ParseMode:          "heuristic",
		AutoVariableUpdate: true,
	}
}
