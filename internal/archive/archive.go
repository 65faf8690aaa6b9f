// Package archive persists every accepted sample of a session to a DuckDB
// file so history outlives the in-memory series ceiling.
package archive

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/models"
)

// Options tunes the DuckDB connection.
type Options struct {
	Threads     int
	MemoryLimit string
	BatchSize   int
}

// DefaultOptions returns conservative settings for a single session.
func DefaultOptions() Options {
	return Options{Threads: 2, MemoryLimit: "512MB", BatchSize: 10000}
}

// Sample is one archived value.
type Sample struct {
	Line       int64   `json:"line"`
	Variable   string  `json:"variable"`
	Value      float64 `json:"value"`
	RecordedAt int64   `json:"recordedAt"`
}

type row struct {
	line     int64
	variable string
	value    float64
	at       int64
}

// Archive implements ingest.Observer. Samples are batched and written with
// the DuckDB appender.
type Archive struct {
	mu        sync.Mutex
	db        *sql.DB
	dbPath    string
	batchSize int
	batch     []row
	count     int64
	lastError error
	now       func() time.Time
}

var _ ingest.Observer = (*Archive)(nil)

// Open creates an archive file session_<id>.duckdb in dir.
func Open(dir, sessionID string, opts Options) (*Archive, error) {
	return OpenAtPath(filepath.Join(dir, fmt.Sprintf("session_%s.duckdb", sessionID)), opts)
}

// OpenAtPath creates an archive at dbPath. An empty path keeps it in memory.
func OpenAtPath(dbPath string, opts Options) (*Archive, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA enable_progress_bar=false",
		}
		if opts.MemoryLimit != "" {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit))
		}
		if opts.Threads > 0 {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			line        BIGINT NOT NULL,
			variable    VARCHAR NOT NULL,
			value       DOUBLE NOT NULL,
			recorded_at BIGINT NOT NULL
		)
	`)
	if err == nil {
		_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS variables (
				name            VARCHAR NOT NULL,
				display_name    VARCHAR NOT NULL,
				color           VARCHAR NOT NULL,
				insertion_index INTEGER NOT NULL
			)
		`)
	}
	if err != nil {
		db.Close()
		if dbPath != "" {
			os.Remove(dbPath)
		}
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	fmt.Printf("[Archive] Opened %s\n", displayPath(dbPath))
	return &Archive{
		db:        db,
		dbPath:    dbPath,
		batchSize: opts.BatchSize,
		batch:     make([]row, 0, opts.BatchSize),
		now:       time.Now,
	}, nil
}

func displayPath(p string) string {
	if p == "" {
		return ":memory:"
	}
	return p
}

// LineProcessed queues the samples of a data line.
func (a *Archive) LineProcessed(ev ingest.LineEvent) {
	if len(ev.Samples) == 0 {
		return
	}
	at := a.now().UnixMilli()

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range ev.Samples {
		a.batch = append(a.batch, row{line: ev.Line, variable: s.Name, value: s.Value, at: at})
	}
	a.count += int64(len(ev.Samples))
	if len(a.batch) >= a.batchSize {
		if err := a.flushLocked(); err != nil {
			a.lastError = err
			fmt.Printf("[Archive] flush error: %v\n", err)
		}
	}
}

// SchemaChanged stores the latest variable list.
func (a *Archive) SchemaChanged(vars []models.Variable) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.Begin()
	if err != nil {
		a.lastError = err
		return
	}
	if _, err := tx.Exec("DELETE FROM variables"); err != nil {
		tx.Rollback()
		a.lastError = err
		return
	}
	for _, v := range vars {
		if _, err := tx.Exec("INSERT INTO variables VALUES (?, ?, ?, ?)",
			v.Name, v.DisplayName, v.Color, v.InsertionIndex); err != nil {
			tx.Rollback()
			a.lastError = err
			return
		}
	}
	if err := tx.Commit(); err != nil {
		a.lastError = err
	}
}

func (a *Archive) flushLocked() error {
	if len(a.batch) == 0 {
		return nil
	}

	conn, err := a.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "samples")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, r := range a.batch {
			if err := appender.AppendRow(r.line, r.variable, r.value, r.at); err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	a.batch = a.batch[:0]
	return nil
}

// Flush writes queued samples.
func (a *Archive) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked()
}

// Count is the number of samples accepted, flushed or not.
func (a *Archive) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// LastError returns the last background write error.
func (a *Archive) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastError
}

// Query returns the newest limit archived samples of one variable in line
// order. limit <= 0 returns everything.
func (a *Archive) Query(ctx context.Context, variable string, limit int) ([]Sample, error) {
	if err := a.Flush(); err != nil {
		return nil, err
	}

	q := "SELECT line, variable, value, recorded_at FROM samples WHERE variable = ? ORDER BY line"
	args := []interface{}{variable}
	if limit > 0 {
		q = `SELECT * FROM (
			SELECT line, variable, value, recorded_at FROM samples
			WHERE variable = ? ORDER BY line DESC LIMIT ?
		) ORDER BY line`
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	out := make([]Sample, 0)
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.Line, &s.Variable, &s.Value, &s.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Variables returns the last stored schema.
func (a *Archive) Variables(ctx context.Context) ([]models.Variable, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT name, display_name, color, insertion_index FROM variables ORDER BY insertion_index")
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer rows.Close()

	var out []models.Variable
	for rows.Next() {
		var v models.Variable
		if err := rows.Scan(&v.Name, &v.DisplayName, &v.Color, &v.InsertionIndex); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Finalize flushes pending samples and indexes the table for queries.
func (a *Archive) Finalize() error {
	if err := a.Flush(); err != nil {
		return err
	}
	start := time.Now()
	if _, err := a.db.Exec("CREATE INDEX IF NOT EXISTS idx_variable_line ON samples(variable, line)"); err != nil {
		return fmt.Errorf("idx_variable_line creation failed: %w", err)
	}
	fmt.Printf("[Archive] Indexed %d samples in %v\n", a.Count(), time.Since(start))
	return nil
}

// Indexed reports whether Finalize has built the query index.
func (a *Archive) Indexed(ctx context.Context) (bool, error) {
	var n int
	err := a.db.QueryRowContext(ctx,
		"SELECT count(*) FROM duckdb_indexes() WHERE index_name = 'idx_variable_line'").Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query indexes: %w", err)
	}
	return n > 0, nil
}

// Close flushes, closes the database and keeps the file on disk.
func (a *Archive) Close() error {
	flushErr := a.Flush()
	if err := a.db.Close(); err != nil {
		return err
	}
	return flushErr
}

// Path is the database file, empty for in-memory archives.
func (a *Archive) Path() string {
	return a.dbPath
}
