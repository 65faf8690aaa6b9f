package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreset(t *testing.T) {
	content := `
name: weather station
variables:
  - name: temp
    color: "#ff0000"
    display_name: Temperature
  - name: hum
    color: "rgb( 0, 0 ,255 )"
  - name: pressure
`
	path := filepath.Join(t.TempDir(), "station.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	preset, err := ParsePreset(path)
	require.NoError(t, err)
	assert.Equal(t, "weather station", preset.Name)
	require.Len(t, preset.Variables, 3)

	entries := PresetEntries(preset)
	assert.Equal(t, []models.HeaderEntry{
		{Name: "temp", Color: "#ff0000", DisplayName: "Temperature"},
		{Name: "hum", Color: "rgb(0,0,255)"},
		{Name: "pressure", Color: palette.Color(2)},
	}, entries)
}

func TestParsePresetErrors(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParsePresetFromReader(strings.NewReader("variables: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("no variables", func(t *testing.T) {
		_, err := ParsePresetFromReader(strings.NewReader("name: empty\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ParsePreset(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestPresetEntriesSkipsBlankAndDuplicates(t *testing.T) {
	p := &models.Preset{Variables: []models.PresetVariable{
		{Name: " a "}, {Name: ""}, {Name: "a", Color: "red"}, {Name: "b"},
	}}
	assert.Equal(t, []models.HeaderEntry{
		{Name: "a", Color: palette.Color(0)},
		{Name: "b", Color: palette.Color(1)},
	}, PresetEntries(p))
	assert.Nil(t, PresetEntries(nil))
}
