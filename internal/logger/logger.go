// Package logger provides leveled, structured logging for fileupload.
// Messages go through log/slog. In verbose mode (--verbose) debug messages
// describing each pipeline stage are printed as well.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format selects the slog handler.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	level   = slog.LevelWarn
	format  = FormatText
	output  io.Writer = os.Stderr
	base    = build()
)

// build creates the root logger from the current settings (caller must hold mu).
func build() *slog.Logger {
	opts := &slog.HandlerOptions{Level: effectiveLevel()}
	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = slog.NewTextHandler(output, opts)
	}
	return slog.New(h.WithAttrs([]slog.Attr{slog.String("service", "fileupload")}))
}

func effectiveLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return level
}

func rebuild() {
	base = build()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level logged when verbose mode is off.
func SetLevel(l slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
	rebuild()
}

// ParseLevel converts a level name to a slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetFormat selects text or JSON output.
func SetFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()
	format = f
	rebuild()
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// Get returns the root logger.
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// For returns a logger tagged with a module name.
// The returned logger does not follow later SetVerbose or SetOutput calls.
func For(module string) *slog.Logger {
	return Get().With(slog.String("module", module))
}

func logf(l slog.Level, format string, args ...any) {
	lg := Get()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(format, args...))
}

// Debug logs a formatted message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(slog.LevelDebug, format, args...)
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	Get().Debug("=== "+name+" ===", slog.String("section", name))
}

// Info logs an informational message.
func Info(format string, args ...any) {
	logf(slog.LevelInfo, format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	logf(slog.LevelWarn, format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	logf(slog.LevelError, format, args...)
}
