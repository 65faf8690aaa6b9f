// Package export renders session contents as downloadable CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/serial-plotter/backend/internal/models"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes SGR colour sequences.
func StripANSI(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	return ansiRegex.ReplaceAllString(s, "")
}

// RawCSV is the raw line dump: lines joined by "\n" with colour codes removed.
func RawCSV(lines []string) string {
	return StripANSI(strings.Join(lines, "\n"))
}

// FileName is the dump name for t, e.g. 2026-01-02-serial-data_dump.csv.
func FileName(t time.Time) string {
	return t.Format("2006-01-02") + "-serial-data_dump.csv"
}

// SeriesFileName names a structured series export.
func SeriesFileName(t time.Time) string {
	return t.Format("2006-01-02") + "-serial-series.csv"
}

// SeriesCSV writes one column per variable, headed by its display name.
// Shorter series are padded at the front with empty cells.
func SeriesCSV(w io.Writer, snap models.AlignedSnapshot) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(snap.Variables))
	for i, v := range snap.Variables {
		header[i] = v.DisplayName
		if header[i] == "" {
			header[i] = v.Name
		}
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(snap.Variables))
	for row := 0; row < snap.Length; row++ {
		for i, v := range snap.Variables {
			record[i] = ""
			col := snap.Series[v.Name]
			if row < len(col) && col[row] != nil {
				record[i] = strconv.FormatFloat(*col[row], 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
