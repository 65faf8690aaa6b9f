// Package config provides XML-based configuration for the serial plotter server.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"SerialPlotter"`

	Server     ServerConfig     `xml:"Server"`
	Storage    StorageConfig    `xml:"Storage"`
	Ingest     IngestConfig     `xml:"Ingest"`
	Processing ProcessingConfig `xml:"Processing"`
	Simulator  SimulatorConfig  `xml:"Simulator"`
	Advanced   AdvancedConfig   `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory    string `xml:"DataDirectory"`
	UploadsDirectory string `xml:"UploadsDirectory"`
	ExportsDirectory string `xml:"ExportsDirectory"`
	ArchiveDirectory string `xml:"ArchiveDirectory"`
	EnableArchive    bool   `xml:"EnableArchive"`
}

// IngestConfig controls the per-session ingestion pipeline
type IngestConfig struct {
	MaxSeriesBytes     int    `xml:"MaxSeriesBytes"`
	MaxRawLines        int    `xml:"MaxRawLines"`
	AutoVariableUpdate bool   `xml:"AutoVariableUpdate"`
	ParseMode          string `xml:"ParseMode"` // "heuristic" or "strict"
	SnapshotIntervalMs int    `xml:"SnapshotIntervalMs"`
	SnapshotTail       int    `xml:"SnapshotTailSamples"`
}

// ProcessingConfig contains session lifecycle settings
type ProcessingConfig struct {
	MaxSessions            int  `xml:"MaxSessions"`
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	EnableCompression      bool `xml:"EnableCompression"`
	CompressionLevel       int  `xml:"CompressionLevel"`
}

// SimulatorConfig controls the built-in simulated device
type SimulatorConfig struct {
	IntervalMs  int     `xml:"IntervalMs"`
	HeaderEvery int     `xml:"HeaderEvery"`
	Step        float64 `xml:"Step"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	DuckDBThreads           int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit       string `xml:"DuckDBMemoryLimit"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "256M",
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			ExportsDirectory: "./data/exports",
			ArchiveDirectory: "./data/archive",
			EnableArchive:    false,
		},
		Ingest: IngestConfig{
			MaxSeriesBytes:     800_000_000,
			MaxRawLines:        10000,
			AutoVariableUpdate: true,
			ParseMode:          "heuristic",
			SnapshotIntervalMs: 50,
			SnapshotTail:       2000,
		},
		Processing: ProcessingConfig{
			MaxSessions:            16,
			SessionTimeoutMinutes:  60,
			CleanupIntervalMinutes: 5,
			EnableCompression:      true,
			CompressionLevel:       5,
		},
		Simulator: SimulatorConfig{
			IntervalMs:  30,
			HeaderEvery: 100,
			Step:        0.05,
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			EnableRequestLogging:    true,
			DuckDBThreads:           2,
			DuckDBMemoryLimit:       "512MB",
			WebSocketMaxMessageSize: 1024,
		},
	}
}

// LoadConfig loads configuration from an XML file, writing the defaults
// there first if the file does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	var config *AppConfig

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config = DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config = DefaultConfig()
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Serial Plotter Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the server cannot run with
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Ingest.ParseMode) {
	case "", "heuristic", "strict":
	default:
		return fmt.Errorf("invalid parse mode: %q", c.Ingest.ParseMode)
	}
	if c.Ingest.MaxSeriesBytes < 0 {
		return fmt.Errorf("invalid max series bytes: %d", c.Ingest.MaxSeriesBytes)
	}
	if c.Simulator.IntervalMs <= 0 {
		return fmt.Errorf("invalid simulator interval: %dms", c.Simulator.IntervalMs)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
		c.Storage.ExportsDirectory = filepath.Join(dataDir, "exports")
		c.Storage.ArchiveDirectory = filepath.Join(dataDir, "archive")
	}

	if maxBytes := os.Getenv("MAX_SERIES_BYTES"); maxBytes != "" {
		if n, err := strconv.Atoi(maxBytes); err == nil {
			c.Ingest.MaxSeriesBytes = n
		}
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.UploadsDirectory,
		&c.Storage.ExportsDirectory,
		&c.Storage.ArchiveDirectory,
	} {
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SnapshotInterval returns the WebSocket snapshot period
func (c *AppConfig) SnapshotInterval() time.Duration {
	if c.Ingest.SnapshotIntervalMs <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.Ingest.SnapshotIntervalMs) * time.Millisecond
}

// SessionTimeout returns the idle time after which sessions are dropped
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Processing.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns the period of the session cleanup loop
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Processing.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Processing.CleanupIntervalMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
		c.Storage.ExportsDirectory,
	}
	if c.Storage.EnableArchive {
		dirs = append(dirs, c.Storage.ArchiveDirectory)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
