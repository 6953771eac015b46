// Package logger provides leveled, module-tagged logging for the
// dashboard server and the operator console.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level is the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	SILENT
)

var levelNames = map[Level]string{
	DEBUG:  "DEBUG",
	INFO:   "INFO",
	WARN:   "WARN",
	ERROR:  "ERROR",
	SILENT: "SILENT",
}

var levelColors = map[Level]string{
	DEBUG: "\033[36m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

const resetColor = "\033[0m"

// Logger writes leveled messages tagged with the emitting module.
type Logger struct {
	mu       sync.Mutex
	level    Level
	useColor bool
	out      *log.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init sets up the global logger. Call once at startup.
func Init(level Level, output io.Writer, useColor bool) {
	once.Do(func() {
		defaultLogger = New(level, output, useColor)
	})
}

// New creates a Logger writing to output at the given level.
func New(level Level, output io.Writer, useColor bool) *Logger {
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		level:    level,
		useColor: useColor,
		out:      log.New(output, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
}

// SetLevel changes the minimum level that is emitted.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, module, format string, args ...any) {
	l.mu.Lock()
	current := l.level
	l.mu.Unlock()
	if level < current || level >= SILENT {
		return
	}

	prefix := "[" + levelNames[level] + "]"
	if l.useColor {
		prefix = levelColors[level] + prefix + resetColor
	}
	if module != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, module)
	}
	l.out.Printf("%s %s", prefix, fmt.Sprintf(format, args...))
}

// Debug logs a debug message.
func (l *Logger) Debug(module, format string, args ...any) { l.log(DEBUG, module, format, args...) }

// Info logs an info message.
func (l *Logger) Info(module, format string, args ...any) { l.log(INFO, module, format, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(module, format string, args ...any) { l.log(WARN, module, format, args...) }

// Error logs an error message.
func (l *Logger) Error(module, format string, args ...any) { l.log(ERROR, module, format, args...) }

// Debug logs through the global logger.
func Debug(module, format string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Debug(module, format, args...)
	}
}

// Info logs through the global logger.
func Info(module, format string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Info(module, format, args...)
	}
}

// Warn logs through the global logger.
func Warn(module, format string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Warn(module, format, args...)
	}
}

// Error logs through the global logger.
func Error(module, format string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Error(module, format, args...)
	}
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug", "DEBUG":
		return DEBUG, nil
	case "info", "INFO":
		return INFO, nil
	case "warn", "WARN", "warning", "WARNING":
		return WARN, nil
	case "error", "ERROR":
		return ERROR, nil
	case "silent", "SILENT", "none", "NONE":
		return SILENT, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s", s)
	}
}

// String returns the level's name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}
