package ingest

// lineBuffer keeps the most recent raw lines in a fixed-size ring.
type lineBuffer struct {
	lines []string
	start int
	count int
}

func newLineBuffer(capacity int) *lineBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &lineBuffer{lines: make([]string, capacity)}
}

func (b *lineBuffer) push(line string) {
	if len(b.lines) == 0 {
		return
	}
	idx := (b.start + b.count) % len(b.lines)
	b.lines[idx] = line
	if b.count < len(b.lines) {
		b.count++
		return
	}
	b.start = (b.start + 1) % len(b.lines)
}

// last returns up to n of the newest lines, oldest first. n <= 0 returns all.
func (b *lineBuffer) last(n int) []string {
	if n <= 0 || n > b.count {
		n = b.count
	}
	out := make([]string, n)
	first := b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.lines[(b.start+first+i)%len(b.lines)]
	}
	return out
}

func (b *lineBuffer) len() int {
	return b.count
}

func (b *lineBuffer) clear() {
	for i := range b.lines {
		b.lines[i] = ""
	}
	b.start = 0
	b.count = 0
}
