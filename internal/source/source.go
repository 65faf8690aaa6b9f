// Package source produces raw text lines for a session: a simulated device
// or any newline delimited reader (file, tty, stdin, upload).
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Source emits lines until it is exhausted or ctx is cancelled.
// Run returns nil on exhaustion and on cancellation.
type Source interface {
	Name() string
	Run(ctx context.Context, emit func(line string)) error
}

// MaxLineSize is the longest line a ReaderSource accepts.
const MaxLineSize = 1024 * 1024

// ReaderSource reads newline delimited lines from an io.Reader.
type ReaderSource struct {
	name string
	r    io.Reader
	// OnProgress, when set, is called with the number of bytes consumed
	// after every line.
	OnProgress func(lines int64, bytes int64)
}

// NewReaderSource wraps r. name labels the source ("reader", a file name).
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

func (s *ReaderSource) Name() string { return s.name }

func (s *ReaderSource) Run(ctx context.Context, emit func(line string)) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	var lines, consumed int64
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		consumed += int64(len(line)) + 1
		lines++
		emit(strings.TrimSuffix(line, "\r"))
		if s.OnProgress != nil {
			s.OnProgress(lines, consumed)
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("reading %s: %w", s.name, err)
	}
	return nil
}
