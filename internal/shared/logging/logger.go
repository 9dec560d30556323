// Package logging provides the minimal printf-style logging contract used
// across the orchestration core, plus a concrete component logger that
// writes timestamped lines to an optional file and stdout.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"
)

// Logger defines a minimal, printf-style logging contract.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func levelString(level Level) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

var (
	sharedFile     *os.File
	sharedFileOnce sync.Once
)

// logFile lazily opens ~/conclave-debug.log shared by all component loggers.
func logFile() *os.File {
	sharedFileOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		file, err := os.OpenFile(filepath.Join(home, "conclave-debug.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Printf("open log file: %v", err)
			return
		}
		sharedFile = file
	})
	return sharedFile
}

// componentLogger writes formatted lines tagged with a component name.
type componentLogger struct {
	mu        sync.Mutex
	component string
	level     Level
	file      *os.File
	stdout    bool
}

// NewComponentLogger returns the default application logger scoped to a
// component. Output goes to the shared debug log file and stdout.
func NewComponentLogger(component string) Logger {
	return &componentLogger{
		component: component,
		level:     LevelDebug,
		file:      logFile(),
		stdout:    true,
	}
}

func (l *componentLogger) write(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// Format: 2025-09-30 12:34:56 [INFO] [component] message
	line := fmt.Sprintf("%s [%s] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		levelString(level),
		l.component,
		fmt.Sprintf(format, args...))
	if l.file != nil {
		_, _ = l.file.WriteString(line)
	}
	if l.stdout {
		fmt.Print(line)
	}
}

// NewFileLogger returns a logger scoped to a component that writes to the
// shared debug log file only, keeping stdout free for program output.
func NewFileLogger(component string, level Level) Logger {
	return &componentLogger{
		component: component,
		level:     level,
		file:      logFile(),
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *componentLogger) Debug(format string, args ...any) { l.write(LevelDebug, format, args...) }
func (l *componentLogger) Info(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.write(LevelError, format, args...) }

type multiLogger struct {
	loggers []Logger
}

// Multi returns a logger fan-out that calls every non-nil logger in order.
func Multi(loggers ...Logger) Logger {
	flattened := make([]Logger, 0, len(loggers))
	for _, logger := range loggers {
		if IsNil(logger) {
			continue
		}
		if ml, ok := logger.(*multiLogger); ok {
			flattened = append(flattened, ml.loggers...)
			continue
		}
		flattened = append(flattened, logger)
	}
	if len(flattened) == 0 {
		return Nop()
	}
	if len(flattened) == 1 {
		return flattened[0]
	}
	return &multiLogger{loggers: flattened}
}

func (l *multiLogger) Debug(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Debug(format, args...)
	}
}

func (l *multiLogger) Info(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Info(format, args...)
	}
}

func (l *multiLogger) Warn(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Warn(format, args...)
	}
}

func (l *multiLogger) Error(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Error(format, args...)
	}
}
