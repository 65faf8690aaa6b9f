package models

// Preset is a YAML declared schema, applied the same way a header line is.
type Preset struct {
	Name      string           `json:"name" yaml:"name"`
	Variables []PresetVariable `json:"variables" yaml:"variables"`
}

// PresetVariable declares one variable of a preset.
type PresetVariable struct {
	Name        string `json:"name" yaml:"name"`
	Color       string `json:"color,omitempty" yaml:"color,omitempty"`
	DisplayName string `json:"displayName,omitempty" yaml:"display_name,omitempty"`
}
