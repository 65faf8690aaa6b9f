package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 12, 34, 56, 789_000_000, time.UTC)
}

func TestSimulatorLines(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{HeaderEvery: 2, Step: 0.05, Now: fixedClock})
	lines := sim.Lines(3)

	require.Len(t, lines, 6)
	assert.Equal(t, "Connecting ...", lines[0])
	assert.Equal(t, "[12:34:56.789] header   sin1:'"+palette.Color(0)+"' sin2:'"+palette.Color(1)+"' sin3:'"+palette.Color(2)+"'", lines[1])
	assert.Equal(t, "[12:34:56.789] 0.0000\t1.0000\t0.0000", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "[12:34:56.789] 0.0500\t0.9988\t-0.0500"), lines[3])
	assert.Contains(t, lines[4], "header")
	assert.NotContains(t, lines[5], "header")
}

func TestSimulatorFeedsPipeline(t *testing.T) {
	p := ingest.New(ingest.DefaultOptions())
	sim := NewSimulator(SimulatorConfig{HeaderEvery: 100, Now: fixedClock})
	for _, line := range sim.Lines(50) {
		p.ProcessLine(line)
	}

	vars := p.VariableConfig()
	require.Len(t, vars, 3)
	assert.Equal(t, "sin1", vars[0].Name)
	assert.Equal(t, palette.Color(2), vars[2].Color)
	assert.Len(t, p.SeriesSnapshot()["sin3"], 50)
}

func TestSimulatorRunStopsAfterLines(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{Interval: time.Millisecond, Lines: 5, Now: fixedClock})
	var got []string
	err := sim.Run(context.Background(), func(line string) { got = append(got, line) })
	require.NoError(t, err)
	assert.Len(t, got, 7) // banner, header, 5 samples
}

func TestSimulatorRunCancel(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- sim.Run(ctx, func(string) {})
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not stop on cancel")
	}
}

func TestReaderSource(t *testing.T) {
	src := NewReaderSource("capture.log", strings.NewReader("a:1\r\nb:2\n\nc:3"))
	var progress []int64
	src.OnProgress = func(lines, _ int64) { progress = append(progress, lines) }

	var got []string
	require.NoError(t, src.Run(context.Background(), func(line string) { got = append(got, line) }))
	assert.Equal(t, []string{"a:1", "b:2", "", "c:3"}, got)
	assert.Equal(t, []int64{1, 2, 3, 4}, progress)
	assert.Equal(t, "capture.log", src.Name())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device unplugged") }

func TestReaderSourceError(t *testing.T) {
	src := NewReaderSource("tty", failingReader{})
	err := src.Run(context.Background(), func(string) {})
	assert.ErrorContains(t, err, "device unplugged")
}

func TestReaderSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewReaderSource("r", io.MultiReader(strings.NewReader("a:1\nb:2\n")))
	var got []string
	require.NoError(t, src.Run(ctx, func(line string) { got = append(got, line) }))
	assert.Empty(t, got)
}
