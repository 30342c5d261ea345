package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const filePermission = 0o644

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	jsonFormat   bool
	logFile      *os.File
	logger       = stdlog.New(os.Stdout, "", 0)
	jsonLogger   = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// SetFormat selects "text" (default) or "json" output.
func SetFormat(format string) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(format) {
	case "", "text":
		jsonFormat = false
	case "json":
		jsonFormat = true
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// SetOutput redirects log lines to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	setWriter(w)
	closeFile()
}

// SetOutputPath sends logs to "stdout", "stderr" or the file at path,
// which is opened in append mode.
func SetOutputPath(path string) error {
	switch strings.ToLower(path) {
	case "", "stdout":
		SetOutput(os.Stdout)
		return nil
	case "stderr":
		SetOutput(os.Stderr)
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermission)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	closeFile()
	setWriter(zerolog.SyncWriter(f))
	logFile = f
	return nil
}

// Configure applies level, format and output in one call.
func Configure(level, format, out string) error {
	SetLevel(level)
	if err := SetFormat(format); err != nil {
		return err
	}
	return SetOutputPath(out)
}

// Close releases the log file opened by SetOutputPath, if any, and falls back
// to stdout.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		setWriter(os.Stdout)
		closeFile()
	}
}

// must hold mu
func setWriter(w io.Writer) {
	logger = stdlog.New(w, "", 0)
	jsonLogger = zerolog.New(w).With().Timestamp().Logger()
}

// must hold mu
func closeFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func log(level Level, format string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if level < currentLevel {
		return
	}

	message := fmt.Sprintf(format, v...)
	if jsonFormat {
		jsonLogger.WithLevel(level.zerolog()).Msg(message)
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	logger.Println(prefix + message)
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
