package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu       sync.Mutex
	levelVar = new(slog.LevelVar)
	logFile  *os.File
	log      = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
)

// SetLevel sets the minimum level by name: debug, info, warn, error.
// Unknown names fall back to info.
func SetLevel(name string) {
	switch name {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// SetDebug toggles debug-level logging.
func SetDebug(enabled bool) {
	if enabled {
		SetLevel("debug")
	} else {
		SetLevel("info")
	}
}

// InitFile redirects log output to the given file, appending. Without it,
// logs go to stderr.
func InitFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", path, err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	setOutput(f)
	return nil
}

// Close flushes and closes the log file, if one was opened.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
		setOutput(os.Stderr)
	}
}

func setOutput(w io.Writer) {
	log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

func Debug(msg string, args ...any) { log.Debug(msg, args...) }
func Info(msg string, args ...any)  { log.Info(msg, args...) }
func Warn(msg string, args ...any)  { log.Warn(msg, args...) }
func Error(msg string, args ...any) { log.Error(msg, args...) }
