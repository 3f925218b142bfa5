package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	globalLevel  = zap.NewAtomicLevel()
	once         sync.Once
)

// Get returns the process-wide logger. The first call sets the level; use SetLevel
// to change it once configuration is loaded.
func Get(level string) *Logger {
	once.Do(func() {
		SetLevel(level)
		globalLogger = newStderrLogger(globalLevel)
	})
	return globalLogger
}

// SetLevel changes the level of the logger returned by Get.
func SetLevel(level string) {
	globalLevel.SetLevel(toZapLevel(normalizeLevel(level)))
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}

func normalizeLevel(level string) string {
	return strings.ToLower(strings.TrimSpace(level))
}
