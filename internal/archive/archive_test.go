package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T, batch int) *Archive {
	t.Helper()
	a, err := Open(t.TempDir(), "test", Options{Threads: 1, MemoryLimit: "128MB", BatchSize: batch})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir, "abc", DefaultOptions())
	require.NoError(t, err)
	defer a.Close()

	_, err = os.Stat(filepath.Join(dir, "session_abc.duckdb"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session_abc.duckdb"), a.Path())
}

func TestArchiveFromPipeline(t *testing.T) {
	a := newTestArchive(t, 2)
	p := ingest.New(ingest.DefaultOptions())
	p.AddObserver(a)

	p.ProcessText("temp:20 hum:40\ntemp:21\nnoise\ntemp:22 hum:41\n")

	assert.Equal(t, int64(5), a.Count())

	temps, err := a.Query(context.Background(), "temp", 0)
	require.NoError(t, err)
	require.Len(t, temps, 3)
	assert.Equal(t, []float64{20, 21, 22}, []float64{temps[0].Value, temps[1].Value, temps[2].Value})
	assert.Equal(t, int64(1), temps[0].Line)
	assert.Equal(t, int64(4), temps[2].Line)

	limited, err := a.Query(context.Background(), "hum", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, 41.0, limited[0].Value)

	vars, err := a.Variables(context.Background())
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "temp", vars[0].Name)
	assert.Equal(t, "hum", vars[1].Name)
	assert.NoError(t, a.LastError())
}

func TestArchiveKeepsHistoryAcrossHeader(t *testing.T) {
	a := newTestArchive(t, 100)
	p := ingest.New(ingest.DefaultOptions())
	p.AddObserver(a)

	p.ProcessLine("x:1")
	p.ProcessLine("header y")
	p.ProcessLine("5")

	xs, err := a.Query(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Len(t, xs, 1)
	ys, err := a.Query(context.Background(), "y", 0)
	require.NoError(t, err)
	require.Len(t, ys, 1)
	assert.Equal(t, 5.0, ys[0].Value)
}

func TestSchemaChanged(t *testing.T) {
	a := newTestArchive(t, 10)
	a.SchemaChanged([]models.Variable{{Name: "a", DisplayName: "A", Color: "#fff", InsertionIndex: 0}})
	a.SchemaChanged([]models.Variable{{Name: "b", DisplayName: "b", Color: "#000", InsertionIndex: 0}})

	vars, err := a.Variables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Variable{{Name: "b", DisplayName: "b", Color: "#000", InsertionIndex: 0}}, vars)
}

func TestFinalize(t *testing.T) {
	a := newTestArchive(t, 1000)
	a.LineProcessed(ingest.LineEvent{Line: 1, Samples: []models.ParsedToken{{Name: "v", Value: 1.5}}})
	indexed, err := a.Indexed(context.Background())
	require.NoError(t, err)
	assert.False(t, indexed)

	require.NoError(t, a.Finalize())
	indexed, err = a.Indexed(context.Background())
	require.NoError(t, err)
	assert.True(t, indexed)

	got, err := a.Query(context.Background(), "v", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.5, got[0].Value)
}

func TestInMemoryArchive(t *testing.T) {
	a, err := OpenAtPath("", DefaultOptions())
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "", a.Path())

	a.LineProcessed(ingest.LineEvent{Line: 3, Samples: []models.ParsedToken{{Name: "z", Value: -2}}})
	got, err := a.Query(context.Background(), "z", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
