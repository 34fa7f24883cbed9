package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the level of logging
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
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

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

const redactedMessage = "[REDACTED: contains sensitive data]"

// Logger provides structured logging functionality
type Logger struct {
	base   *logrus.Logger
	prefix string
}

// defaultLogger is the package-level logger instance
var defaultLogger *Logger

func init() {
	defaultLogger = New(LevelInfo, os.Stderr, "ghboard")
}

// New creates a new logger instance
func New(level LogLevel, output io.Writer, prefix string) *Logger {
	base := logrus.New()
	base.SetOutput(output)
	base.SetLevel(level.logrus())
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02T15:04:05",
		DisableColors:    true,
		DisableQuote:     true,
		QuoteEmptyFields: true,
	})
	base.AddHook(redactHook{})
	return &Logger{base: base, prefix: prefix}
}

// SetLevel sets the logging level for the default logger
func SetLevel(level LogLevel) {
	defaultLogger.base.SetLevel(level.logrus())
}

// SetOutput redirects the default logger, e.g. away from the terminal while the TUI owns it.
func SetOutput(w io.Writer) {
	defaultLogger.base.SetOutput(w)
}

// SetVerbose enables verbose logging (DEBUG level) to stderr
func SetVerbose(verbose bool) {
	if verbose {
		defaultLogger.base.SetLevel(logrus.DebugLevel)
		// In verbose mode, also log to file for debugging
		logFile := getDebugLogFile()
		if logFile != nil {
			defaultLogger.base.SetOutput(io.MultiWriter(os.Stderr, logFile))
		}
	} else {
		defaultLogger.base.SetLevel(logrus.InfoLevel)
		defaultLogger.base.SetOutput(os.Stderr)
	}
}

// DebugLogPath is where verbose runs tee their log output.
func DebugLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ghboard", "debug.log")
}

func getDebugLogFile() *os.File {
	logPath := DebugLogPath()
	if logPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}

	return file
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.base.WithField("component", l.prefix).Log(level.logrus(), fmt.Sprintf(format, args...))
}

// redactHook filters out secrets - never log tokens, passwords, or auth headers
type redactHook struct{}

func (redactHook) Levels() []logrus.Level { return logrus.AllLevels }

func (redactHook) Fire(entry *logrus.Entry) error {
	if containsSensitive(entry.Message) {
		entry.Message = redactedMessage
	}
	return nil
}

func containsSensitive(message string) bool {
	lower := strings.ToLower(message)
	sensitiveWords := []string{
		"token", "password", "apikey", "api_key", "auth", "credential",
		"secret", "key=", "authorization:", "basic ", "bearer ", "ghp_", "github_pat_",
	}

	for _, word := range sensitiveWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// Package-level logging functions

// Debug logs debug information (only shown with --verbose)
func Debug(format string, args ...interface{}) {
	defaultLogger.log(LevelDebug, format, args...)
}

// Info logs informational messages
func Info(format string, args ...interface{}) {
	defaultLogger.log(LevelInfo, format, args...)
}

// Warn logs warning messages
func Warn(format string, args ...interface{}) {
	defaultLogger.log(LevelWarn, format, args...)
}

// Error logs error messages
func Error(format string, args ...interface{}) {
	defaultLogger.log(LevelError, format, args...)
}

// HTTP logs HTTP request/response information (debug level)
func HTTP(method, url string) {
	Debug("HTTP %s %s", method, url)
}

// HTTPResponse logs HTTP response information (debug level)
func HTTPResponse(status int, duration time.Duration) {
	Debug("HTTP response: %d (%v)", status, duration)
}

// Config logs configuration-related information (debug level)
func Config(format string, args ...interface{}) {
	Debug("CONFIG: "+format, args...)
}

// TUI logs TUI-related information (debug level)
func TUI(format string, args ...interface{}) {
	Debug("TUI: "+format, args...)
}

// GitHub logs GitHub API-related information (debug level)
func GitHub(format string, args ...interface{}) {
	Debug("GITHUB: "+format, args...)
}

// Storage logs board persistence information (debug level)
func Storage(format string, args ...interface{}) {
	Debug("STORAGE: "+format, args...)
}
