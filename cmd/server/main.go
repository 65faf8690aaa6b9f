package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/serial-plotter/backend/internal/api"
	"github.com/serial-plotter/backend/internal/archive"
	"github.com/serial-plotter/backend/internal/config"
	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/metrics"
	"github.com/serial-plotter/backend/internal/replay"
	"github.com/serial-plotter/backend/internal/session"
	"github.com/serial-plotter/backend/internal/source"
	"github.com/serial-plotter/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(filepath.Dir(exePath), "SerialPlotter.config")
	if p := os.Getenv("SERIALPLOT_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}
	api.ShowErrorDetails = strings.EqualFold(cfg.Advanced.LogLevel, "debug")

	uploads, err := storage.NewLocalStore(cfg.Storage.UploadsDirectory, "upload")
	if err != nil {
		fmt.Printf("Failed to initialize upload storage: %v\n", err)
		os.Exit(1)
	}
	exports, err := storage.NewLocalStore(cfg.Storage.ExportsDirectory, "export")
	if err != nil {
		fmt.Printf("Failed to initialize export storage: %v\n", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()

	sessionOpts := session.Options{
		MaxSessions: cfg.Processing.MaxSessions,
		Pipeline: ingest.Options{
			MaxBytes:           cfg.Ingest.MaxSeriesBytes,
			MaxRawLines:        cfg.Ingest.MaxRawLines,
			AutoVariableUpdate: cfg.Ingest.AutoVariableUpdate,
		},
		ParseMode: cfg.Ingest.ParseMode,
		Archive: archive.Options{
			Threads:     cfg.Advanced.DuckDBThreads,
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
			BatchSize:   archive.DefaultOptions().BatchSize,
		},
	}
	if cfg.Storage.EnableArchive {
		sessionOpts.ArchiveDir = cfg.Storage.ArchiveDirectory
	}
	sessionMgr := session.NewManager(sessionOpts, collector)

	// Start background session cleanup
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sessionMgr.CleanupOldSessions(cfg.SessionTimeout())
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	replayMgr := replay.NewManager(uploads, sessionMgr, collector)

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e)

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/keepalive") ||
				strings.HasSuffix(path, "/ws") ||
				path == "/api/health" ||
				path == "/metrics"
		},
	}))

	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Processing.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasSuffix(c.Request().URL.Path, "/ws")
			},
		}))
	}

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Uploads:  uploads,
		Exports:  exports,
		Sessions: sessionMgr,
		Replay:   replayMgr,
		Metrics:  collector.Handler(),
		Simulator: source.SimulatorConfig{
			Interval:    time.Duration(cfg.Simulator.IntervalMs) * time.Millisecond,
			HeaderEvery: cfg.Simulator.HeaderEvery,
			Step:        cfg.Simulator.Step,
		},
		SnapshotInterval: cfg.SnapshotInterval(),
		SnapshotTail:     cfg.Ingest.SnapshotTail,
		MaxMessageSize:   int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024,
		Version:          Version,
	}))

	// WebSocket connections are long lived, so no WriteTimeout on them is
	// possible; the configured value applies to plain requests only.
	s := &http.Server{
		Addr:        cfg.GetServerAddr(),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Serial Plotter Server                           ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Parse Mode: %-45s║\n", cfg.Ingest.ParseMode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down...")
	stopCleanup()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}
	sessionMgr.Close()
}
