package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	// Global loggers
	mainLogger    = slog.Default()
	queriesLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	resultsLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

	logLevelMap = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

// initLogging sets up the file loggers. Compiled SQL goes to a dedicated
// queries log, echoed to stderr when logQueries is set.
func initLogging(logLevel string, logQueries bool) error {
	level, ok := logLevelMap[strings.ToLower(logLevel)]
	if !ok {
		level = slog.LevelWarn
	}

	logDir := getXDGCacheDir()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "projectquery.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	mainLogger = slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}))
	slog.SetDefault(mainLogger)

	queriesLogPath := filepath.Join(logDir, "projectquery-queries.log")
	queriesLogFile, err := os.OpenFile(queriesLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open queries log file: %w", err)
	}
	var queriesHandler slog.Handler = slog.NewJSONHandler(queriesLogFile, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	// stdout carries command output, so the echo goes to stderr
	if logQueries {
		queriesHandler = &multiHandler{
			handlers: []slog.Handler{queriesHandler, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})},
		}
	}
	queriesLogger = slog.New(queriesHandler).With("logger", "queries")

	resultsLogPath := filepath.Join(logDir, "projectquery-results.log")
	resultsLogFile, err := os.OpenFile(resultsLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results log file: %w", err)
	}
	resultsLogger = slog.New(slog.NewJSONHandler(resultsLogFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With("logger", "results")

	mainLogger.Debug("logging initialized",
		"level", level.String(),
		"log_file", logPath,
		"queries_file", queriesLogPath,
		"results_file", resultsLogPath,
		"log_queries_stderr", logQueries)

	return nil
}

// getXDGCacheDir returns the XDG cache directory for projectquery
func getXDGCacheDir() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "projectquery")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "projectquery")
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(homeDir, "Library", "Caches", "projectquery")
	}
	return filepath.Join(homeDir, ".cache", "projectquery")
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// logOperation records the outcome of a command
func logOperation(operation string, attrs ...any) {
	resultsLogger.Info("operation", append([]any{"operation", operation}, attrs...)...)
}
