package ingest

import "strings"

// LineAssembler rebuilds lines from a chunked stream. A chunk may end in
// the middle of a line; that tail is held until a later chunk completes it.
type LineAssembler struct {
	tail strings.Builder
}

// Push adds a chunk and returns the lines it completed, without their
// terminators.
func (a *LineAssembler) Push(chunk string) []string {
	var lines []string
	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			break
		}
		a.tail.WriteString(chunk[:i])
		lines = append(lines, strings.TrimSuffix(a.tail.String(), "\r"))
		a.tail.Reset()
		chunk = chunk[i+1:]
	}
	a.tail.WriteString(chunk)
	return lines
}

// Pending reports whether an unterminated line is held.
func (a *LineAssembler) Pending() bool {
	return a.tail.Len() > 0
}

// Flush returns the held tail as a final line and clears it.
func (a *LineAssembler) Flush() (string, bool) {
	if a.tail.Len() == 0 {
		return "", false
	}
	line := a.tail.String()
	a.tail.Reset()
	return line, true
}

// Discard drops the held tail.
func (a *LineAssembler) Discard() {
	a.tail.Reset()
}
