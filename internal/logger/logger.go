package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	mu         sync.Mutex
}

// New creates a Logger writing per-level files under logDir, mirrored to
// stdout/stderr. The directory is created if missing.
func New(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	infoFile, err := openLogFile(filepath.Join(logDir, "info.log"))
	if err != nil {
		return nil, err
	}
	warningFile, err := openLogFile(filepath.Join(logDir, "warning.log"))
	if err != nil {
		return nil, err
	}
	errorFile, err := openLogFile(filepath.Join(logDir, "error.log"))
	if err != nil {
		return nil, err
	}

	flags := log.Ldate | log.Ltime
	return &Logger{
		infoLog:    log.New(io.MultiWriter(os.Stdout, infoFile), "INFO    ", flags),
		warningLog: log.New(io.MultiWriter(os.Stdout, warningFile), "WARNING ", flags),
		errorLog:   log.New(io.MultiWriter(os.Stderr, errorFile), "ERROR   ", flags),
	}, nil
}

// Discard returns a Logger that drops everything. Used by tests.
func Discard() *Logger {
	flags := log.Ldate | log.Ltime
	return &Logger{
		infoLog:    log.New(io.Discard, "INFO    ", flags),
		warningLog: log.New(io.Discard, "WARNING ", flags),
		errorLog:   log.New(io.Discard, "ERROR   ", flags),
	}
}

func openLogFile(filename string) (*os.File, error) {
	return os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}
