package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/palette"
	"github.com/stretchr/testify/assert"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []models.HeaderEntry
	}{
		{"quoted colours", "header a:'red' b:'#00ff00'",
			[]models.HeaderEntry{{Name: "a", Color: "red"}, {Name: "b", Color: "#00ff00"}}},
		{"all colour forms", `header a:'green' b:green c:"#4d5e4d" d:#123456 e:rgb(0, 255, 0) f:RGBA(1,2,3,0.5)`,
			[]models.HeaderEntry{
				{Name: "a", Color: "green"},
				{Name: "b", Color: "green"},
				{Name: "c", Color: "#4d5e4d"},
				{Name: "d", Color: "#123456"},
				{Name: "e", Color: "rgb(0,255,0)"},
				{Name: "f", Color: "rgba(1,2,3,0.5)"},
			}},
		{"bare names use palette", "header x y z",
			[]models.HeaderEntry{
				{Name: "x", Color: palette.Color(0)},
				{Name: "y", Color: palette.Color(1)},
				{Name: "z", Color: palette.Color(2)},
			}},
		{"malformed colours fall back", "header a:rgb(1,2) b:123 c:''",
			[]models.HeaderEntry{
				{Name: "a", Color: palette.Color(0)},
				{Name: "b", Color: palette.Color(1)},
				{Name: "c", Color: palette.Color(2)},
			}},
		{"timestamp and spacing", "[12:00:00.000] header   sin1:'#f92672' sin2:'#a6e22e'\r",
			[]models.HeaderEntry{{Name: "sin1", Color: "#f92672"}, {Name: "sin2", Color: "#a6e22e"}}},
		{"case kept", "HEADER Temp:Red",
			[]models.HeaderEntry{{Name: "Temp", Color: "Red"}}},
		{"dangling colon", "header a: b:red",
			[]models.HeaderEntry{{Name: "a", Color: palette.Color(0)}, {Name: "b", Color: "red"}}},
		{"bare word colour after spaces", "header x:   y z:#00ff00",
			[]models.HeaderEntry{
				{Name: "x", Color: "y"},
				{Name: "z", Color: "#00ff00"},
			}},
		{"trailing colon", "header a:'red' b:",
			[]models.HeaderEntry{{Name: "a", Color: "red"}, {Name: "b", Color: palette.Color(1)}}},
		{"duplicate keeps first", "header a:red a:blue b",
			[]models.HeaderEntry{{Name: "a", Color: "red"}, {Name: "b", Color: palette.Color(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseHeader(tt.line)
			assert.True(t, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseHeader(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParseHeaderRejectsNonDirectives(t *testing.T) {
	for _, line := range []string{
		"header: temperature, pressure",
		"header",
		"the header a:red",
		"header ,,,",
	} {
		_, ok := ParseHeader(line)
		assert.False(t, ok, line)
	}
	assert.False(t, IsHeaderDirective("header: a"))
	assert.True(t, IsHeaderDirective("  header a"))
}
