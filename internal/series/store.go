// Package series stores the numeric samples of every variable in a session.
package series

import (
	"math"

	"github.com/serial-plotter/backend/internal/models"
)

// BytesPerSample is the fixed accounting width of one sample.
const BytesPerSample = 8

// Store keeps one float64 column per variable name. Columns grow
// independently: a variable missing from a line does not receive a
// placeholder. Not safe for concurrent use.
type Store struct {
	columns  map[string][]float64
	samples  int
	exceeded bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		columns: make(map[string][]float64),
	}
}

// Append pushes one sample, creating the column on first use.
func (s *Store) Append(name string, v float64) {
	s.columns[name] = append(s.columns[name], v)
	s.samples++
}

// Len returns the number of samples held for name.
func (s *Store) Len(name string) int {
	return len(s.columns[name])
}

// Values returns a copy of the samples held for name.
func (s *Store) Values(name string) []float64 {
	col, ok := s.columns[name]
	if !ok {
		return nil
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out
}

// SeriesCount returns the number of columns.
func (s *Store) SeriesCount() int {
	return len(s.columns)
}

// SampleCount returns the total number of samples across columns.
func (s *Store) SampleCount() int {
	return s.samples
}

// CurrentByteSize is the accounted memory use of all samples.
func (s *Store) CurrentByteSize() int {
	return s.samples * BytesPerSample
}

// Exceeded reports whether a trim has discarded samples since the last Clear.
func (s *Store) Exceeded() bool {
	return s.exceeded
}

// EnforceLimit trims the oldest samples when the store is over maxBytes.
// Every non-empty column loses ceil(excess / BytesPerSample / columns)
// samples from the front; passes repeat only when short columns could not
// give their full share. Returns the number of samples removed. maxBytes <= 0
// disables the limit.
func (s *Store) EnforceLimit(maxBytes int) int {
	if maxBytes <= 0 {
		return 0
	}

	removed := 0
	for s.CurrentByteSize() > maxBytes {
		nonEmpty := 0
		for _, col := range s.columns {
			if len(col) > 0 {
				nonEmpty++
			}
		}
		if nonEmpty == 0 {
			break
		}

		excess := s.CurrentByteSize() - maxBytes
		share := nonEmpty * BytesPerSample
		perColumn := (excess + share - 1) / share

		for name, col := range s.columns {
			n := min(perColumn, len(col))
			if n == 0 {
				continue
			}
			// Reslicing drops the head; the backing array is released on the
			// next growth of the column.
			s.columns[name] = col[n:]
			s.samples -= n
			removed += n
		}
	}

	if removed > 0 {
		s.exceeded = true
	}
	return removed
}

// Remove drops a column.
func (s *Store) Remove(name string) {
	s.samples -= len(s.columns[name])
	delete(s.columns, name)
}

// Clear drops every column and clears the exceeded flag.
func (s *Store) Clear() {
	s.columns = make(map[string][]float64)
	s.samples = 0
	s.exceeded = false
}

// Snapshot copies every column.
func (s *Store) Snapshot() map[string][]float64 {
	out := make(map[string][]float64, len(s.columns))
	for name, col := range s.columns {
		cp := make([]float64, len(col))
		copy(cp, col)
		out[name] = cp
	}
	return out
}

// Tail copies at most the last n samples of every column. n <= 0 copies all.
func (s *Store) Tail(n int) map[string][]float64 {
	if n <= 0 {
		return s.Snapshot()
	}
	out := make(map[string][]float64, len(s.columns))
	for name, col := range s.columns {
		start := max(len(col)-n, 0)
		cp := make([]float64, len(col)-start)
		copy(cp, col[start:])
		out[name] = cp
	}
	return out
}

// Stats summarises the last window samples of name (window <= 0 uses the
// whole column). ok is false for a missing or empty column.
func (s *Store) Stats(name string, window int) (models.SeriesStats, bool) {
	col := s.columns[name]
	if len(col) == 0 {
		return models.SeriesStats{Name: name}, false
	}
	if window > 0 && window < len(col) {
		col = col[len(col)-window:]
	}

	st := models.SeriesStats{
		Name:    name,
		Count:   len(col),
		Min:     math.Inf(1),
		Max:     math.Inf(-1),
		Current: col[len(col)-1],
	}
	sum := 0.0
	for _, v := range col {
		st.Min = min(st.Min, v)
		st.Max = max(st.Max, v)
		sum += v
	}
	st.Mean = sum / float64(len(col))
	return st, true
}

// Aligned pads the named columns at the front with nulls so they all match
// the longest one. Unknown names come back as all-null columns.
func (s *Store) Aligned(names []string) (map[string][]*float64, int) {
	length := 0
	for _, name := range names {
		length = max(length, len(s.columns[name]))
	}
	out := make(map[string][]*float64, len(names))
	for _, name := range names {
		out[name] = PadFront(s.columns[name], length)
	}
	return out, length
}

// PadFront returns values as a nullable slice of the given length, with
// nulls prepended. Values longer than length keep their most recent part.
func PadFront(values []float64, length int) []*float64 {
	if len(values) > length {
		values = values[len(values)-length:]
	}
	out := make([]*float64, length)
	offset := length - len(values)
	for i := range values {
		v := values[i]
		out[offset+i] = &v
	}
	return out
}
