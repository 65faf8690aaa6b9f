package series

import (
	"testing"

	"github.com/serial-plotter/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndSize(t *testing.T) {
	s := NewStore()
	s.Append("a", 1)
	s.Append("a", 2)
	s.Append("b", 3)

	assert.Equal(t, 2, s.Len("a"))
	assert.Equal(t, 1, s.Len("b"))
	assert.Equal(t, 0, s.Len("c"))
	assert.Equal(t, 3, s.SampleCount())
	assert.Equal(t, 24, s.CurrentByteSize())
	assert.Equal(t, 2, s.SeriesCount())
	assert.Equal(t, []float64{1, 2}, s.Values("a"))
	assert.Nil(t, s.Values("c"))
}

func TestEnforceLimitUnderCeiling(t *testing.T) {
	s := NewStore()
	s.Append("a", 1)
	assert.Equal(t, 0, s.EnforceLimit(8))
	assert.Equal(t, 0, s.EnforceLimit(0))
	assert.False(t, s.Exceeded())
}

func TestEnforceLimitTrimsFrontUniformly(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		s.Append("a", float64(i))
		s.Append("b", float64(100+i))
	}

	// 20 samples = 160 bytes; ceiling 120 => excess 40 bytes => ceil(40/8/2) = 3 per series.
	removed := s.EnforceLimit(120)
	assert.Equal(t, 6, removed)
	assert.True(t, s.Exceeded())
	assert.Equal(t, []float64{3, 4, 5, 6, 7, 8, 9}, s.Values("a"))
	assert.Equal(t, []float64{103, 104, 105, 106, 107, 108, 109}, s.Values("b"))
	assert.LessOrEqual(t, s.CurrentByteSize(), 120)
}

func TestEnforceLimitProperty(t *testing.T) {
	cases := []struct {
		name    string
		lengths map[string]int
		ceiling int
	}{
		{"even", map[string]int{"a": 100, "b": 100, "c": 100}, 800},
		{"uneven", map[string]int{"a": 500, "b": 40, "c": 3}, 1000},
		{"tiny ceiling", map[string]int{"a": 50, "b": 50}, 8},
		{"single", map[string]int{"a": 1000}, 4000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			for name, n := range tc.lengths {
				for i := 0; i < n; i++ {
					s.Append(name, float64(i))
				}
			}
			s.EnforceLimit(tc.ceiling)
			assert.LessOrEqual(t, s.CurrentByteSize(), tc.ceiling)

			// Columns at least as long as their fair share survive.
			total := 0
			for _, n := range tc.lengths {
				total += n
			}
			share := (total*BytesPerSample - tc.ceiling + len(tc.lengths)*BytesPerSample - 1) / (len(tc.lengths) * BytesPerSample)
			for name, n := range tc.lengths {
				if n > share {
					assert.NotZero(t, s.Len(name), name)
				}
			}
		})
	}
}

func TestEnforceLimitKeepsNewestSamples(t *testing.T) {
	s := NewStore()
	for i := 0; i < 1000; i++ {
		s.Append("a", float64(i))
	}
	s.EnforceLimit(80)
	vals := s.Values("a")
	require.Len(t, vals, 10)
	assert.Equal(t, 999.0, vals[len(vals)-1])
}

func TestRemoveAndClear(t *testing.T) {
	s := NewStore()
	s.Append("a", 1)
	s.Append("b", 2)
	s.Append("b", 3)
	s.Remove("b")
	assert.Equal(t, 1, s.SampleCount())
	s.Remove("missing")
	assert.Equal(t, 1, s.SampleCount())

	s.EnforceLimit(1)
	assert.True(t, s.Exceeded())
	s.Clear()
	assert.False(t, s.Exceeded())
	assert.Equal(t, 0, s.SampleCount())
	assert.Equal(t, 0, s.SeriesCount())
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.Append("a", 1)
	snap := s.Snapshot()
	snap["a"][0] = 42
	assert.Equal(t, []float64{1}, s.Values("a"))
}

func TestTail(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		s.Append("a", float64(i))
	}
	s.Append("b", 9)
	tail := s.Tail(2)
	assert.Equal(t, []float64{3, 4}, tail["a"])
	assert.Equal(t, []float64{9}, tail["b"])
	assert.Len(t, s.Tail(0)["a"], 5)
}

func TestStats(t *testing.T) {
	s := NewStore()
	for _, v := range []float64{5, -1, 3, 10, 2} {
		s.Append("a", v)
	}

	st, ok := s.Stats("a", 0)
	require.True(t, ok)
	assert.Equal(t, models.SeriesStats{Name: "a", Count: 5, Min: -1, Max: 10, Mean: 3.8, Current: 2}, st)

	st, ok = s.Stats("a", 2)
	require.True(t, ok)
	assert.Equal(t, models.SeriesStats{Name: "a", Count: 2, Min: 2, Max: 10, Mean: 6, Current: 2}, st)

	_, ok = s.Stats("missing", 0)
	assert.False(t, ok)
}

func TestAligned(t *testing.T) {
	s := NewStore()
	s.Append("a", 1)
	s.Append("a", 2)
	s.Append("a", 3)
	s.Append("b", 7)

	cols, length := s.Aligned([]string{"a", "b", "c"})
	assert.Equal(t, 3, length)
	require.Len(t, cols["b"], 3)
	assert.Nil(t, cols["b"][0])
	assert.Nil(t, cols["b"][1])
	assert.Equal(t, 7.0, *cols["b"][2])
	assert.Equal(t, 1.0, *cols["a"][0])
	assert.Equal(t, []*float64{nil, nil, nil}, cols["c"])
}

func TestPadFront(t *testing.T) {
	out := PadFront([]float64{1, 2, 3}, 2)
	require.Len(t, out, 2)
	assert.Equal(t, 2.0, *out[0])
	assert.Equal(t, 3.0, *out[1])
	assert.Empty(t, PadFront(nil, 0))
}
