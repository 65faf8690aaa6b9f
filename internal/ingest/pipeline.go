// Package ingest runs raw serial lines through classification, tokenizing,
// the variable registry and the series store.
package ingest

import (
	"strconv"
	"strings"

	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/parser"
	"github.com/serial-plotter/backend/internal/series"
	"github.com/serial-plotter/backend/internal/variables"
)

// DefaultMaxBytes matches a ceiling of 100M samples.
const DefaultMaxBytes = 100_000_000 * series.BytesPerSample

// DefaultMaxRawLines is the default size of the raw line buffer.
const DefaultMaxRawLines = 10000

// Observer is notified after pipeline steps. Calls happen synchronously on
// the goroutine that feeds the pipeline, after the step is fully applied.
type Observer interface {
	// SchemaChanged receives the full variable list whenever it changed:
	// header, preset, reset, user override, delete, or new variables.
	SchemaChanged(vars []models.Variable)
	// LineProcessed is called once per line, including skipped ones.
	LineProcessed(ev LineEvent)
}

// LineEvent describes what one line did to the session.
type LineEvent struct {
	Line    int64
	Kind    models.LineKind
	Samples []models.ParsedToken // one per variable, last value wins
	Dropped int                  // values dropped by a closed auto update gate
	Created int                  // variables created by this line
	Trimmed int                  // samples removed by the memory ceiling
}

// Counters are running totals since the pipeline was created.
type Counters struct {
	Lines        int64 `json:"lines"`
	DataLines    int64 `json:"dataLines"`
	HeaderLines  int64 `json:"headerLines"`
	IgnoredLines int64 `json:"ignoredLines"`
	EmptyLines   int64 `json:"emptyLines"`
	Samples      int64 `json:"samples"`
	Dropped      int64 `json:"dropped"`
	Trimmed      int64 `json:"trimmed"`
	Resets       int64 `json:"resets"`
}

// Options configures a Pipeline.
type Options struct {
	MaxBytes           int
	MaxRawLines        int
	AutoVariableUpdate bool
	Tokenizer          parser.Tokenizer // nil selects the default tokenizer
}

// DefaultOptions returns the standard ingestion settings.
func DefaultOptions() Options {
	return Options{
		MaxBytes:           DefaultMaxBytes,
		MaxRawLines:        DefaultMaxRawLines,
		AutoVariableUpdate: true,
	}
}

// Pipeline owns one session's registry and store. It is single threaded:
// callers feed one line at a time and must serialise access themselves.
type Pipeline struct {
	opts      Options
	tokenizer parser.Tokenizer
	registry  *variables.Registry
	store     *series.Store
	raw       *lineBuffer
	observers []Observer
	counters  Counters
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	tk := opts.Tokenizer
	if tk == nil {
		tk = parser.GetGlobalRegistry().Default()
	}
	reg := variables.New()
	reg.SetAutoUpdate(opts.AutoVariableUpdate)

	return &Pipeline{
		opts:      opts,
		tokenizer: tk,
		registry:  reg,
		store:     series.NewStore(),
		raw:       newLineBuffer(opts.MaxRawLines),
	}
}

// AddObserver registers an observer.
func (p *Pipeline) AddObserver(o Observer) {
	p.observers = append(p.observers, o)
}

// SetTokenizer switches the parse mode for subsequent lines.
func (p *Pipeline) SetTokenizer(t parser.Tokenizer) {
	if t != nil {
		p.tokenizer = t
	}
}

// Mode returns the name of the active tokenizer.
func (p *Pipeline) Mode() string {
	return p.tokenizer.Name()
}

// ProcessText feeds every line of a text chunk. Returns the number of lines.
func (p *Pipeline) ProcessText(text string) int {
	if text == "" {
		return 0
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for _, line := range lines {
		p.ProcessLine(line)
	}
	return len(lines)
}

// ProcessLine ingests one raw line. It never fails: anything it cannot use
// is skipped.
func (p *Pipeline) ProcessLine(raw string) {
	p.counters.Lines++
	p.raw.push(strings.TrimRight(raw, "\r\n"))

	kind, line := parser.Classify(raw)
	ev := LineEvent{Line: p.counters.Lines, Kind: kind}

	switch kind {
	case models.LineKindHeader:
		if entries, ok := parser.ParseHeader(line); ok {
			p.replaceSchema(entries)
		} else {
			ev.Kind = models.LineKindIgnored
		}
	case models.LineKindData:
		p.ingest(line, &ev)
	}

	p.count(ev)
	for _, o := range p.observers {
		o.LineProcessed(ev)
	}
}

func (p *Pipeline) ingest(line string, ev *LineEvent) {
	pending := p.resolve(line)
	if len(pending) == 0 {
		return
	}

	for _, tok := range pending {
		_, created, ok := p.registry.Ensure(tok.Name, p.registry.NextIndex())
		if !ok {
			ev.Dropped++
			continue
		}
		if created {
			ev.Created++
		}
		p.store.Append(tok.Name, tok.Value)
		ev.Samples = append(ev.Samples, tok)
	}

	ev.Trimmed = p.store.EnforceLimit(p.opts.MaxBytes)

	if ev.Created > 0 {
		p.notifySchema()
	}
}

// resolve turns a data line into one pair per variable name, first position
// kept and last value winning. Lines made only of numbers are named by
// column position.
func (p *Pipeline) resolve(line string) []models.ParsedToken {
	var tokens []models.ParsedToken
	if values, ok := parser.BareValues(line); ok {
		tokens = make([]models.ParsedToken, len(values))
		for i, v := range values {
			name, ok := p.registry.NameAt(i)
			if !ok {
				name = "line" + strconv.Itoa(i+1)
			}
			tokens[i] = models.ParsedToken{Name: name, Value: v}
		}
	} else {
		tokens = p.tokenizer.Tokenize(line)
	}

	if len(tokens) < 2 {
		return tokens
	}
	pos := make(map[string]int, len(tokens))
	merged := tokens[:0]
	for _, tok := range tokens {
		if i, dup := pos[tok.Name]; dup {
			merged[i].Value = tok.Value
			continue
		}
		pos[tok.Name] = len(merged)
		merged = append(merged, tok)
	}
	return merged
}

func (p *Pipeline) count(ev LineEvent) {
	switch ev.Kind {
	case models.LineKindData:
		p.counters.DataLines++
	case models.LineKindHeader:
		p.counters.HeaderLines++
	case models.LineKindIgnored:
		p.counters.IgnoredLines++
	case models.LineKindEmpty:
		p.counters.EmptyLines++
	}
	p.counters.Samples += int64(len(ev.Samples))
	p.counters.Dropped += int64(ev.Dropped)
	p.counters.Trimmed += int64(ev.Trimmed)
}

func (p *Pipeline) replaceSchema(entries []models.HeaderEntry) {
	p.registry.Replace(entries)
	p.store.Clear()
	p.counters.Resets++
	p.notifySchema()
}

func (p *Pipeline) notifySchema() {
	if len(p.observers) == 0 {
		return
	}
	vars := p.registry.List()
	for _, o := range p.observers {
		o.SchemaChanged(vars)
	}
}

// ApplyPreset replaces the schema with declared entries, exactly like a
// header directive.
func (p *Pipeline) ApplyPreset(entries []models.HeaderEntry) {
	p.replaceSchema(entries)
}

// ResetAll clears variables, samples and the raw line buffer. The auto
// update gate and parse mode are kept.
func (p *Pipeline) ResetAll() {
	p.registry.Reset()
	p.store.Clear()
	p.raw.clear()
	p.counters.Resets++
	p.notifySchema()
}

// VariableConfig returns the variables in insertion order.
func (p *Pipeline) VariableConfig() []models.Variable {
	return p.registry.List()
}

// SeriesSnapshot returns copies of every series.
func (p *Pipeline) SeriesSnapshot() map[string][]float64 {
	return p.store.Snapshot()
}

// Snapshot returns variables and the last tail samples of every series
// (tail <= 0 for everything) as one consistent value.
func (p *Pipeline) Snapshot(tail int) models.SeriesSnapshot {
	return models.SeriesSnapshot{
		Variables:       p.registry.List(),
		Series:          p.store.Tail(tail),
		SamplesExceeded: p.store.Exceeded(),
		ByteSize:        p.store.CurrentByteSize(),
		LineCount:       p.counters.Lines,
	}
}

// AlignedSnapshot pads every series at the front to the longest length.
func (p *Pipeline) AlignedSnapshot() models.AlignedSnapshot {
	vars := p.registry.List()
	cols, length := p.store.Aligned(p.registry.Names())
	return models.AlignedSnapshot{Variables: vars, Length: length, Series: cols}
}

// Stats summarises every variable over its last window samples.
// Variables without samples are omitted.
func (p *Pipeline) Stats(window int) []models.SeriesStats {
	out := make([]models.SeriesStats, 0, p.registry.Len())
	for _, name := range p.registry.Names() {
		if st, ok := p.store.Stats(name, window); ok {
			out = append(out, st)
		}
	}
	return out
}

// SetDisplayName overrides how a variable is labelled.
func (p *Pipeline) SetDisplayName(name, displayName string) error {
	if err := p.registry.Rename(name, displayName); err != nil {
		return err
	}
	p.notifySchema()
	return nil
}

// SetColor overrides a variable's colour.
func (p *Pipeline) SetColor(name, color string) error {
	if err := p.registry.Recolor(name, color); err != nil {
		return err
	}
	p.notifySchema()
	return nil
}

// DeleteVariable removes a variable and its series.
func (p *Pipeline) DeleteVariable(name string) error {
	if err := p.registry.Remove(name); err != nil {
		return err
	}
	p.store.Remove(name)
	p.notifySchema()
	return nil
}

// SetAutoVariableUpdate opens or closes the gate for creating variables.
func (p *Pipeline) SetAutoVariableUpdate(enabled bool) {
	p.registry.SetAutoUpdate(enabled)
}

// AutoVariableUpdate reports the gate state.
func (p *Pipeline) AutoVariableUpdate() bool {
	return p.registry.AutoUpdate()
}

// SamplesExceeded reports whether the memory ceiling has discarded samples.
func (p *Pipeline) SamplesExceeded() bool {
	return p.store.Exceeded()
}

// CurrentByteSize is the accounted size of all samples.
func (p *Pipeline) CurrentByteSize() int {
	return p.store.CurrentByteSize()
}

// SampleCount is the number of samples held.
func (p *Pipeline) SampleCount() int {
	return p.store.SampleCount()
}

// VariableCount is the number of variables.
func (p *Pipeline) VariableCount() int {
	return p.registry.Len()
}

// RawLines returns up to limit of the newest raw lines, oldest first.
func (p *Pipeline) RawLines(limit int) []string {
	return p.raw.last(limit)
}

// Counters returns the running totals.
func (p *Pipeline) Counters() Counters {
	return p.counters
}
