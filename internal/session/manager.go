// Package session manages live monitoring sessions. Each session owns one
// ingestion pipeline, an optional archive and at most one running source.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serial-plotter/backend/internal/archive"
	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/metrics"
	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/parser"
	"github.com/serial-plotter/backend/internal/source"
)

// SessionKeepAliveWindow is how long a recently touched session is protected
// from cleanup regardless of maxAge.
const SessionKeepAliveWindow = 5 * time.Minute

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
	ErrSourceRunning   = errors.New("a source is already running")
	ErrNoSource        = errors.New("no source is running")
	ErrArchiveDisabled = errors.New("archiving is disabled")
)

// Options configures new sessions.
type Options struct {
	MaxSessions int
	Pipeline    ingest.Options
	ParseMode   string
	ArchiveDir  string // empty disables archiving
	Archive     archive.Options
}

// DefaultOptions returns options for an in-memory manager.
func DefaultOptions() Options {
	return Options{
		MaxSessions: 16,
		Pipeline:    ingest.DefaultOptions(),
		ParseMode:   parser.ModeHeuristic,
		Archive:     archive.DefaultOptions(),
	}
}

// Manager handles active monitoring sessions.
type Manager struct {
	opts       Options
	sessions   map[string]*SessionState
	mu         sync.RWMutex
	tokenizers *parser.Registry
	metrics    *metrics.Collector
}

// SessionState holds the session metadata and its pipeline. The pipeline
// is guarded by mu; sources and API calls serialise on it.
type SessionState struct {
	mu           sync.Mutex
	Session      *models.MonitorSession
	pipeline     *ingest.Pipeline
	archive      *archive.Archive
	cancel       context.CancelFunc
	done         chan struct{}
	LastAccessed time.Time
}

// NewManager creates a session manager. collector may be nil.
func NewManager(opts Options, collector *metrics.Collector) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultOptions().MaxSessions
	}
	return &Manager{
		opts:       opts,
		sessions:   make(map[string]*SessionState),
		tokenizers: parser.GetGlobalRegistry(),
		metrics:    collector,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Create opens a new idle session.
func (m *Manager) Create(name string) (*models.MonitorSession, error) {
	tk, err := m.tokenizers.GetTokenizerByName(m.opts.ParseMode)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w (max %d)", ErrTooManySessions, m.opts.MaxSessions)
	}
	m.mu.Unlock()

	id := uuid.New().String()
	popts := m.opts.Pipeline
	popts.Tokenizer = tk
	p := ingest.New(popts)
	if m.metrics != nil {
		p.AddObserver(m.metrics)
	}

	var arc *archive.Archive
	if m.opts.ArchiveDir != "" {
		arc, err = archive.Open(m.opts.ArchiveDir, id, m.opts.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		p.AddObserver(arc)
	}

	now := time.Now()
	sess := models.NewMonitorSession(id, name)
	sess.ParseMode = tk.Name()
	sess.AutoVariableUpdate = popts.AutoVariableUpdate
	sess.StartTime = now.UnixMilli()

	state := &SessionState{
		Session:      sess,
		pipeline:     p,
		archive:      arc,
		LastAccessed: now,
	}

	// The limit is checked again here: concurrent creates may all have
	// passed the first check.
	m.mu.Lock()
	if len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		if arc != nil {
			discardArchive(arc)
		}
		return nil, fmt.Errorf("%w (max %d)", ErrTooManySessions, m.opts.MaxSessions)
	}
	m.sessions[id] = state
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetSessions(count)
	}
	fmt.Printf("[Session %s] Created (mode=%s, archive=%t)\n", shortID(id), sess.ParseMode, arc != nil)
	return m.Get(id)
}

func discardArchive(arc *archive.Archive) {
	if err := arc.Close(); err != nil {
		fmt.Printf("[Archive] close error: %v\n", err)
	}
	if path := arc.Path(); path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			fmt.Printf("[Archive] remove %s: %v\n", path, err)
		}
	}
}

func (m *Manager) state(id string) (*SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return st, nil
}

// with runs fn under the session lock and refreshes the session summary.
func (m *Manager) with(id string, fn func(st *SessionState) error) error {
	st, err := m.state(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.LastAccessed = time.Now()
	err = fn(st)
	st.refresh()
	return err
}

func (st *SessionState) refresh() {
	p := st.pipeline
	st.Session.ParseMode = p.Mode()
	st.Session.AutoVariableUpdate = p.AutoVariableUpdate()
	st.Session.LineCount = p.Counters().Lines
	st.Session.VariableCount = p.VariableCount()
	st.Session.SampleCount = p.SampleCount()
	st.Session.SamplesExceeded = p.SamplesExceeded()
}

// Get returns a copy of the session summary.
func (m *Manager) Get(id string) (*models.MonitorSession, error) {
	st, err := m.state(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.refresh()
	cp := *st.Session
	return &cp, nil
}

// List returns all sessions, oldest first.
func (m *Manager) List() []*models.MonitorSession {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	out := make([]*models.MonitorSession, 0, len(ids))
	for _, id := range ids {
		if s, err := m.Get(id); err == nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Touch refreshes the keep-alive timestamp.
func (m *Manager) Touch(id string) bool {
	st, err := m.state(id)
	if err != nil {
		return false
	}
	st.mu.Lock()
	st.LastAccessed = time.Now()
	st.mu.Unlock()
	return true
}

// Delete stops the session's source, closes its archive and forgets it.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	st, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	m.shutdown(st)
	if m.metrics != nil {
		m.metrics.SetSessions(count)
	}
	fmt.Printf("[Session %s] Deleted\n", shortID(id))
	return nil
}

func (m *Manager) shutdown(st *SessionState) {
	st.mu.Lock()
	cancel, done := st.cancel, st.done
	st.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	if st.archive != nil {
		if err := st.archive.Finalize(); err != nil {
			fmt.Printf("[Session %s] archive finalize error: %v\n", shortID(st.Session.ID), err)
		}
		if err := st.archive.Close(); err != nil {
			fmt.Printf("[Session %s] archive close error: %v\n", shortID(st.Session.ID), err)
		}
	}
}

// Feed processes a chunk of text. Returns the number of lines consumed.
func (m *Manager) Feed(id, text string) (int, error) {
	var n int
	err := m.with(id, func(st *SessionState) error {
		n = st.pipeline.ProcessText(text)
		if n > 0 {
			st.Session.LastActivity = time.Now().UnixMilli()
		}
		return nil
	})
	return n, err
}

// Reset clears variables, series and raw lines.
func (m *Manager) Reset(id string) error {
	return m.with(id, func(st *SessionState) error {
		st.pipeline.ResetAll()
		return nil
	})
}

// Variables returns the variable configuration in insertion order.
func (m *Manager) Variables(id string) ([]models.Variable, error) {
	var vars []models.Variable
	err := m.with(id, func(st *SessionState) error {
		vars = st.pipeline.VariableConfig()
		return nil
	})
	return vars, err
}

// Snapshot returns variables plus the last tail samples of every series.
func (m *Manager) Snapshot(id string, tail int) (models.SeriesSnapshot, error) {
	var snap models.SeriesSnapshot
	err := m.with(id, func(st *SessionState) error {
		snap = st.pipeline.Snapshot(tail)
		return nil
	})
	return snap, err
}

// Aligned returns every series padded at the front to a common length.
func (m *Manager) Aligned(id string) (models.AlignedSnapshot, error) {
	var snap models.AlignedSnapshot
	err := m.with(id, func(st *SessionState) error {
		snap = st.pipeline.AlignedSnapshot()
		return nil
	})
	return snap, err
}

// Stats summarises every series over its last window samples.
func (m *Manager) Stats(id string, window int) ([]models.SeriesStats, error) {
	var stats []models.SeriesStats
	err := m.with(id, func(st *SessionState) error {
		stats = st.pipeline.Stats(window)
		return nil
	})
	return stats, err
}

// RawLines returns up to limit of the newest raw lines.
func (m *Manager) RawLines(id string, limit int) ([]string, error) {
	var lines []string
	err := m.with(id, func(st *SessionState) error {
		lines = st.pipeline.RawLines(limit)
		return nil
	})
	return lines, err
}

// Counters returns the pipeline totals.
func (m *Manager) Counters(id string) (ingest.Counters, error) {
	var c ingest.Counters
	err := m.with(id, func(st *SessionState) error {
		c = st.pipeline.Counters()
		return nil
	})
	return c, err
}

// SetDisplayName overrides a variable's label.
func (m *Manager) SetDisplayName(id, name, displayName string) error {
	return m.with(id, func(st *SessionState) error {
		return st.pipeline.SetDisplayName(name, displayName)
	})
}

// SetColor overrides a variable's colour.
func (m *Manager) SetColor(id, name, color string) error {
	return m.with(id, func(st *SessionState) error {
		return st.pipeline.SetColor(name, color)
	})
}

// DeleteVariable removes a variable and its series.
func (m *Manager) DeleteVariable(id, name string) error {
	return m.with(id, func(st *SessionState) error {
		return st.pipeline.DeleteVariable(name)
	})
}

// SetAutoVariableUpdate opens or closes the variable creation gate.
func (m *Manager) SetAutoVariableUpdate(id string, enabled bool) error {
	return m.with(id, func(st *SessionState) error {
		st.pipeline.SetAutoVariableUpdate(enabled)
		return nil
	})
}

// SetParseMode switches the tokenizer for subsequent lines.
func (m *Manager) SetParseMode(id, mode string) error {
	tk, err := m.tokenizers.GetTokenizerByName(mode)
	if err != nil {
		return err
	}
	return m.with(id, func(st *SessionState) error {
		st.pipeline.SetTokenizer(tk)
		return nil
	})
}

// ApplyPreset replaces the variable list with the preset's declarations.
func (m *Manager) ApplyPreset(id string, preset *models.Preset) error {
	entries := parser.PresetEntries(preset)
	if len(entries) == 0 {
		return fmt.Errorf("preset %q declares no variables", preset.Name)
	}
	return m.with(id, func(st *SessionState) error {
		st.pipeline.ApplyPreset(entries)
		return nil
	})
}

// ArchiveQuery reads archived samples of one variable.
func (m *Manager) ArchiveQuery(ctx context.Context, id, variable string, limit int) ([]archive.Sample, error) {
	st, err := m.state(id)
	if err != nil {
		return nil, err
	}
	if st.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return st.archive.Query(ctx, variable, limit)
}

// ArchiveSummary describes a session's archive.
type ArchiveSummary struct {
	Path      string            `json:"path"`
	Samples   int64             `json:"samples"`
	Indexed   bool              `json:"indexed"`
	Variables []models.Variable `json:"variables"`
}

// ArchiveInfo returns the archived sample count and the schema last stored
// in the archive.
func (m *Manager) ArchiveInfo(ctx context.Context, id string) (*ArchiveSummary, error) {
	st, err := m.state(id)
	if err != nil {
		return nil, err
	}
	if st.archive == nil {
		return nil, ErrArchiveDisabled
	}
	vars, err := st.archive.Variables(ctx)
	if err != nil {
		return nil, err
	}
	if vars == nil {
		vars = []models.Variable{}
	}
	indexed, err := st.archive.Indexed(ctx)
	if err != nil {
		return nil, err
	}
	return &ArchiveSummary{
		Path:      st.archive.Path(),
		Samples:   st.archive.Count(),
		Indexed:   indexed,
		Variables: vars,
	}, nil
}

// StartSource runs src in the background, feeding every line it emits.
func (m *Manager) StartSource(id string, src source.Source) error {
	st, err := m.state(id)
	if err != nil {
		return err
	}

	st.mu.Lock()
	if st.cancel != nil {
		st.mu.Unlock()
		return ErrSourceRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	st.cancel, st.done = cancel, done
	st.Session.Status = models.SessionStatusRunning
	st.Session.Source = src.Name()
	st.Session.Error = ""
	st.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SourceStarted()
	}
	fmt.Printf("[Session %s] Source %s started\n", shortID(id), src.Name())

	go m.runSource(ctx, st, src, done)
	return nil
}

func (m *Manager) runSource(ctx context.Context, st *SessionState, src source.Source, done chan struct{}) {
	var runErr error
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("source panicked: %v", r)
		}

		st.mu.Lock()
		st.cancel, st.done = nil, nil
		if runErr != nil {
			st.Session.Status = models.SessionStatusError
			st.Session.Error = runErr.Error()
			fmt.Printf("[Session %s] Source %s failed: %v\n", shortID(st.Session.ID), src.Name(), runErr)
		} else {
			st.Session.Status = models.SessionStatusStopped
			fmt.Printf("[Session %s] Source %s stopped\n", shortID(st.Session.ID), src.Name())
		}
		st.mu.Unlock()

		if m.metrics != nil {
			m.metrics.SourceStopped()
		}
		close(done)
	}()

	runErr = src.Run(ctx, func(line string) {
		st.mu.Lock()
		st.pipeline.ProcessLine(line)
		st.Session.LastActivity = time.Now().UnixMilli()
		st.mu.Unlock()
	})
}

// StopSource cancels the running source and waits for it to exit.
func (m *Manager) StopSource(id string) error {
	st, err := m.state(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	cancel, done := st.cancel, st.done
	st.mu.Unlock()
	if cancel == nil {
		return ErrNoSource
	}
	cancel()
	<-done
	return nil
}

// Wait blocks until the running source exits or ctx ends.
func (m *Manager) Wait(ctx context.Context, id string) error {
	st, err := m.state(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	done := st.done
	st.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge. Sessions
// with a running source or touched within SessionKeepAliveWindow are kept.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	m.mu.Lock()
	var expired []*SessionState
	for id, st := range m.sessions {
		st.mu.Lock()
		running := st.cancel != nil
		last := st.LastAccessed
		st.mu.Unlock()

		if running || last.After(keepAliveCutoff) || !last.Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		expired = append(expired, st)
		fmt.Printf("[Manager] Cleaned up aged session %s (last accessed: %s ago)\n",
			shortID(id), now.Sub(last).Round(time.Second))
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, st := range expired {
		m.shutdown(st)
	}
	if m.metrics != nil && len(expired) > 0 {
		m.metrics.SetSessions(count)
	}
	return len(expired)
}

// Close stops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	states := make([]*SessionState, 0, len(m.sessions))
	for id, st := range m.sessions {
		states = append(states, st)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, st := range states {
		m.shutdown(st)
	}
	if m.metrics != nil {
		m.metrics.SetSessions(0)
	}
}
