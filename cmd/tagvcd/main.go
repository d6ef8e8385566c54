// Command tagvcd serves the tag version-control engine over MCP stdio.
//
// Usage:
//
//	tagvcd -config tagvc.yaml               # run with config file
//	tagvcd -storage-dir ./state             # run with defaults
//	tagvcd -storage-dir ./state -summary    # print storage summary and exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	_ "modernc.org/sqlite"

	"github.com/meridianworks/tagvc/dbopen"
	"github.com/meridianworks/tagvc/observability"
	"github.com/meridianworks/tagvc/revision"
)

var impl = &mcp.Implementation{Name: "tagvc", Version: "0.1.0"}

func main() {
	configPath := flag.String("config", "", "path to tagvc.yaml config file")
	storageDir := flag.String("storage-dir", "", "directory for version_state.json (empty = in-memory)")
	eventsDB := flag.String("events-db", "", "path to SQLite event log (empty = no event log)")
	showSummary := flag.Bool("summary", false, "print storage summary and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	// MCP owns stdout; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *storageDir, *eventsDB, *showSummary); err != nil {
		logger.Error("tagvcd: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, storageDir, eventsDB string, showSummary bool) error {
	cfg, err := resolveConfig(configPath, storageDir)
	if err != nil {
		return err
	}

	var opts []revision.EngineOption
	if eventsDB != "" {
		db, err := dbopen.Open(eventsDB, dbopen.WithSchema(observability.Schema))
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer db.Close()
		opts = append(opts, revision.WithEventLogger(observability.NewEventLogger(db)))
	}

	engine, err := revision.New(cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	if showSummary {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(engine.GetStorageSummary())
	}

	srv := mcp.NewServer(impl, nil)
	engine.RegisterMCP(srv)

	logger.Info("tagvcd: serving MCP over stdio", "storage_dir", cfg.StorageDir)
	err = srv.Run(ctx, &mcp.StdioTransport{})

	// Flush state on the way out so a restart resumes where we stopped.
	if cfg.StorageDir != "" {
		if saveErr := engine.SaveToDisk(context.Background()); saveErr != nil {
			logger.Error("tagvcd: final save failed", "error", saveErr)
		}
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("tagvcd: shutting down")
	return nil
}

func resolveConfig(configPath, storageDir string) (*revision.Config, error) {
	if configPath != "" {
		return revision.LoadConfigFile(configPath)
	}

	cfg := &revision.Config{StorageDir: storageDir}
	return cfg, nil
}
