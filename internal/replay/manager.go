// Package replay feeds stored capture files into sessions as background jobs.
package replay

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/serial-plotter/backend/internal/metrics"
	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/source"
	"github.com/serial-plotter/backend/internal/storage"
)

// Sessions is the part of the session manager replay needs.
type Sessions interface {
	StartSource(id string, src source.Source) error
	Wait(ctx context.Context, id string) error
	Get(id string) (*models.MonitorSession, error)
}

// Manager runs replay jobs.
type Manager struct {
	jobs     map[string]*models.ReplayJob
	mu       sync.RWMutex
	store    storage.Store
	sessions Sessions
	metrics  *metrics.Collector
}

// NewManager creates a replay manager. collector may be nil.
func NewManager(store storage.Store, sessions Sessions, collector *metrics.Collector) *Manager {
	return &Manager{
		jobs:     make(map[string]*models.ReplayJob),
		store:    store,
		sessions: sessions,
		metrics:  collector,
	}
}

// StartJob replays a stored file into a session. The session must not have
// a running source.
func (m *Manager) StartJob(sessionID, fileID string) (*models.ReplayJob, error) {
	info, err := m.store.Get(fileID)
	if err != nil {
		return nil, err
	}
	path, err := m.store.GetFilePath(fileID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}

	r, err := sniffCapture(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	job := &models.ReplayJob{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		FileID:    fileID,
		FileName:  info.Name,
		Status:    models.ReplayStatusProcessing,
		CreatedAt: time.Now(),
	}

	counter := &countingReader{r: f}
	src := source.NewReaderSource(info.Name, r.withBase(counter))
	src.OnProgress = func(lines, _ int64) {
		m.progress(job, lines, counter.n.Load(), info.Size)
	}

	if err := m.sessions.StartSource(sessionID, src); err != nil {
		f.Close()
		return nil, err
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	fmt.Printf("[ReplayJob %s] Replaying %s into session %s\n", job.ID[:8], info.Name, sessionID[:min(8, len(sessionID))])
	go m.await(job, f)

	cp := *job
	return &cp, nil
}

func (m *Manager) await(job *models.ReplayJob, f *os.File) {
	defer f.Close()

	err := m.sessions.Wait(context.Background(), job.SessionID)
	if err == nil {
		var sess *models.MonitorSession
		if sess, err = m.sessions.Get(job.SessionID); err == nil && sess.Status == models.SessionStatusError {
			err = fmt.Errorf("%s", sess.Error)
		}
	}

	m.mu.Lock()
	now := time.Now()
	job.CompletedAt = &now
	if err != nil {
		job.Status = models.ReplayStatusError
		job.Error = err.Error()
	} else {
		job.Status = models.ReplayStatusComplete
		job.Progress = 100
	}
	status, lines := job.Status, job.Lines
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ReplayFinished(status)
	}
	fmt.Printf("[ReplayJob %s] Finished: %s (%d lines)\n", job.ID[:8], status, lines)
}

func (m *Manager) progress(job *models.ReplayJob, lines, read, total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Lines = lines
	if total > 0 {
		p := float64(read) / float64(total) * 100
		if p > 99 {
			p = 99
		}
		job.Progress = p
	}
}

// GetJob returns a copy of a job.
func (m *Manager) GetJob(id string) (*models.ReplayJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	cp := *job
	return &cp, true
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// capture describes how to decode a file once the byte counter is in place.
type capture struct {
	gzipped bool
}

func (c capture) withBase(base io.Reader) io.Reader {
	if !c.gzipped {
		return base
	}
	zr, err := gzip.NewReader(base)
	if err != nil {
		return errReader{err}
	}
	return zr
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// sniffCapture sniffs the gzip magic and rewinds the file.
func sniffCapture(f *os.File) (capture, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return capture{}, fmt.Errorf("read capture: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return capture{}, fmt.Errorf("rewind capture: %w", err)
	}
	return capture{gzipped: len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b}, nil
}
