package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/palette"
	"gopkg.in/yaml.v3"
)

// ParsePreset parses a YAML preset file declaring variables and colours.
func ParsePreset(filePath string) (*models.Preset, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParsePresetFromReader(file)
}

// ParsePresetFromReader parses a preset from an io.Reader.
func ParsePresetFromReader(r io.Reader) (*models.Preset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var preset models.Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("invalid preset: %w", err)
	}
	if len(preset.Variables) == 0 {
		return nil, fmt.Errorf("invalid preset: no variables declared")
	}

	return &preset, nil
}

// PresetEntries resolves a preset into header declarations. Blank names are
// skipped, repeated names keep their first declaration, and colours are
// normalised with the palette as fallback.
func PresetEntries(p *models.Preset) []models.HeaderEntry {
	if p == nil {
		return nil
	}
	entries := make([]models.HeaderEntry, 0, len(p.Variables))
	seen := make(map[string]struct{}, len(p.Variables))
	for _, v := range p.Variables {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, models.HeaderEntry{
			Name:        name,
			Color:       palette.Normalize(v.Color, palette.Color(len(entries))),
			DisplayName: strings.TrimSpace(v.DisplayName),
		})
	}
	return entries
}
