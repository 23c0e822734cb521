package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	// DEBUG level for per-frame detail (loudness, volume reads)
	DEBUG Level = iota
	// INFO level for triggers, volume changes and lifecycle events
	INFO
	// WARN level for recoverable problems such as backend fallback
	WARN
	// ERROR level for failures
	ERROR
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %q", s)
	}
}

// filePrefix names the daily log files: micwatch-YYYYMMDD.log
const filePrefix = "micwatch"

// Logger writes leveled messages to a daily log file and optionally to a console
type Logger struct {
	mu            sync.RWMutex
	level         Level
	file          *os.File
	console       io.Writer
	loggers       map[Level]*log.Logger
	logDir        string
	currentDay    string
	retentionDays int
}

// Config holds logger configuration
type Config struct {
	LogDir        string    // Empty disables the log file
	Level         Level
	RetentionDays int
	Console       io.Writer // Optional mirror, typically os.Stderr
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}

	logDir := filepath.Join(configDir, "micwatch", "logs")

	return Config{
		LogDir:        logDir,
		Level:         INFO,
		RetentionDays: 7,
	}
}

// New creates a new logger
func New(config Config) (*Logger, error) {
	l := &Logger{
		level:         config.Level,
		console:       config.Console,
		logDir:        config.LogDir,
		retentionDays: config.RetentionDays,
	}

	if l.logDir == "" {
		l.setOutput(l.console)
		return l, nil
	}

	if err := l.rotateLog(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return l, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	l := &Logger{level: ERROR + 1}
	l.setOutput(nil)
	return l
}

// setOutput points every level at w. Callers hold mu or own l exclusively.
func (l *Logger) setOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.loggers = map[Level]*log.Logger{
		DEBUG: log.New(w, "[DEBUG] ", log.LstdFlags),
		INFO:  log.New(w, "[INFO] ", log.LstdFlags),
		WARN:  log.New(w, "[WARN] ", log.LstdFlags),
		ERROR: log.New(w, "[ERROR] ", log.LstdFlags),
	}
}

// rotateLog rotates the log file if necessary
func (l *Logger) rotateLog() error {
	l.mu.Lock()

	today := time.Now().Format("20060102")

	// Check if we need to rotate (new day)
	if l.currentDay == today && l.file != nil {
		l.mu.Unlock()
		return nil
	}

	// Close existing file
	if l.file != nil {
		l.file.Close()
	}

	// Create log directory if not exists
	if err := os.MkdirAll(l.logDir, 0755); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.log", filePrefix, today)
	filePath := filepath.Join(l.logDir, filename)

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.file = file
	l.currentDay = today

	var out io.Writer = file
	if l.console != nil {
		out = io.MultiWriter(file, l.console)
	}
	l.setOutput(out)
	l.mu.Unlock()

	// Clean old logs
	if err := l.cleanOldLogs(); err != nil {
		// Log error but don't fail
		l.Warn("Failed to clean old logs: %v", err)
	}

	return nil
}

// cleanOldLogs deletes log files older than retentionDays
func (l *Logger) cleanOldLogs() error {
	cutoffDate := time.Now().AddDate(0, 0, -l.retentionDays)

	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if filepath.Ext(name) != ".log" || !strings.HasPrefix(name, filePrefix+"-") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffDate) {
			// Continue even if we can't delete a file
			_ = os.Remove(filepath.Join(l.logDir, name))
		}
	}

	return nil
}

// checkRotation checks if log rotation is needed and performs it
func (l *Logger) checkRotation() {
	l.mu.RLock()
	currentDay := l.currentDay
	hasFile := l.logDir != ""
	l.mu.RUnlock()

	if !hasFile {
		return
	}

	today := time.Now().Format("20060102")
	if currentDay != today {
		if err := l.rotateLog(); err != nil {
			// Can't log this error since logging is failing
			fmt.Fprintf(os.Stderr, "Failed to rotate log: %v\n", err)
		}
	}
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if l == nil {
		return
	}

	l.mu.RLock()
	enabled := l.level <= level
	l.mu.RUnlock()

	if !enabled {
		return
	}

	l.checkRotation()

	l.mu.RLock()
	out := l.loggers[level]
	l.mu.RUnlock()
	if out != nil {
		out.Printf(format, v...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.logf(DEBUG, format, v...)
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.logf(INFO, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.logf(WARN, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.logf(ERROR, format, v...)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.setOutput(l.console)
		return err
	}
	return nil
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.level
}
