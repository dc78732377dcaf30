// Package logger provides the structured loggers used across multiwallet.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	Store   zerolog.Logger
	Config  zerolog.Logger
	Watcher zerolog.Logger
	RPC     zerolog.Logger
	Server  zerolog.Logger
	TUI     zerolog.Logger
)

var logFile *os.File

func init() {
	Logger = NewConsoleLogger(os.Stderr, "info")
	initComponentLoggers()
}

// Init configures console logging at the given level. DEBUG in the
// environment forces debug level.
func Init(level string) {
	Logger = NewConsoleLogger(os.Stderr, level)
	initComponentLoggers()
}

// InitFileOnly writes JSON logs to path only. Used while the TUI owns the
// terminal. An empty path picks a timestamped file under ~/.multiwallet/logs.
func InitFileOnly(path, level string) (string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, ".multiwallet", "logs",
			fmt.Sprintf("multiwallet_%s.log", time.Now().Format("2006-01-02_15-04-05")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}
	Close()
	logFile = f

	Logger = NewJSONLogger(f, level)
	initComponentLoggers()
	Logger.Info().Str("path", path).Msg("Logger initialized in file-only mode")
	return path, nil
}

// Close closes the log file if one is open.
func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// NewConsoleLogger creates a human readable console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(output).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// NewJSONLogger creates a JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// SetOutput redirects all loggers to w. Mainly for tests.
func SetOutput(w io.Writer) {
	Logger = Logger.Output(w)
	initComponentLoggers()
}

func initComponentLoggers() {
	Store = Logger.With().Str("component", "store").Logger()
	Config = Logger.With().Str("component", "config").Logger()
	Watcher = Logger.With().Str("component", "watcher").Logger()
	RPC = Logger.With().Str("component", "rpc").Logger()
	Server = Logger.With().Str("component", "server").Logger()
	TUI = Logger.With().Str("component", "tui").Logger()
}

func parseLevel(level string) zerolog.Level {
	if _, ok := os.LookupEnv("DEBUG"); ok {
		return zerolog.DebugLevel
	}
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
