package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/serial-plotter/backend/internal/palette"
	"golang.org/x/time/rate"
)

// SimulatorConfig configures the simulated device.
type SimulatorConfig struct {
	Interval    time.Duration // time between lines
	HeaderEvery int           // a header line precedes every n-th sample line; 0 sends one header only
	Step        float64       // phase advance per line
	Lines       int           // sample lines to send; 0 runs until cancelled
	Now         func() time.Time
}

// DefaultSimulatorConfig matches the classic three sine demo stream.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Interval:    30 * time.Millisecond,
		HeaderEvery: 100,
		Step:        0.05,
	}
}

// Simulator emits a "Connecting" banner, then header lines declaring
// sin1..sin3 and tab separated sine samples with 90° and 180° phase shifts.
type Simulator struct {
	cfg     SimulatorConfig
	limiter *rate.Limiter
	tick    int
	t       float64
}

// NewSimulator creates a simulator paced at cfg.Interval.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSimulatorConfig().Interval
	}
	if cfg.Step == 0 {
		cfg.Step = DefaultSimulatorConfig().Step
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Simulator{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
	}
}

func (s *Simulator) Name() string { return "simulator" }

// Next returns the lines for one tick: an optional header, then a sample.
func (s *Simulator) Next() []string {
	ts := s.timestamp()
	out := make([]string, 0, 2)
	if s.tick == 0 || (s.cfg.HeaderEvery > 0 && s.tick%s.cfg.HeaderEvery == 0) {
		out = append(out, fmt.Sprintf("%s header   sin1:'%s' sin2:'%s' sin3:'%s'",
			ts, palette.Color(0), palette.Color(1), palette.Color(2)))
	}
	out = append(out, fmt.Sprintf("%s %.4f\t%.4f\t%.4f",
		ts, math.Sin(s.t), math.Sin(s.t+math.Pi/2), math.Sin(s.t+math.Pi)))
	s.tick++
	s.t += s.cfg.Step
	return out
}

// Lines generates n ticks without pacing, banner included.
func (s *Simulator) Lines(n int) []string {
	out := []string{"Connecting ..."}
	for i := 0; i < n; i++ {
		out = append(out, s.Next()...)
	}
	return out
}

func (s *Simulator) Run(ctx context.Context, emit func(line string)) error {
	emit("Connecting ...")
	for i := 0; s.cfg.Lines == 0 || i < s.cfg.Lines; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("simulator pacing: %w", err)
		}
		for _, line := range s.Next() {
			emit(line)
		}
	}
	return nil
}

func (s *Simulator) timestamp() string {
	return "[" + s.cfg.Now().Format("15:04:05.000") + "]"
}
