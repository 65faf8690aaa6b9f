package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorObservesPipeline(t *testing.T) {
	c := NewCollector()
	p := ingest.New(ingest.DefaultOptions())
	p.AddObserver(c)

	p.ProcessText("a:1 b:2\n\nheader x y\nConnecting\n3 4\n")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.lines.WithLabelValues("data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lines.WithLabelValues("header")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lines.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lines.WithLabelValues("ignored")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.samples))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.variablesCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.schemaChanges))
}

func TestCollectorDropped(t *testing.T) {
	c := NewCollector()
	p := ingest.New(ingest.Options{MaxBytes: ingest.DefaultMaxBytes, MaxRawLines: 10})
	p.AddObserver(c)

	p.ProcessLine("a:1 b:2")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.dropped))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.samples))
}

func TestGauges(t *testing.T) {
	c := NewCollector()
	c.SetSessions(3)
	c.SourceStarted()
	c.SourceStarted()
	c.SourceStopped()
	c.ReplayFinished(models.ReplayStatusComplete)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.sessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sourcesRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.replayJobs.WithLabelValues("complete")))
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.SetSessions(1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "serialplot_sessions_active 1")
	assert.Contains(t, string(body), "go_goroutines")
}
