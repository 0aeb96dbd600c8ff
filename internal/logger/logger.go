// Package logger wraps a process-wide structured logger.  Records go to
// stderr and, when a directory is configured, to a size-rotated file.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global logger instance.  It is usable before Init and
// then writes info and above to stderr.
var Logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "habits"})

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Dir    string // directory for habits.log; empty disables the file
	Format string // text or json
}

// Init replaces the global logger according to cfg.
func Init(cfg Config) error {
	var writer io.Writer = os.Stderr
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return err
		}
		writer = io.MultiWriter(os.Stderr, NewRotatingFile(filepath.Join(cfg.Dir, "habits.log")))
	}

	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = log.InfoLevel
	}

	l := log.NewWithOptions(writer, log.Options{
		ReportCaller:    level == log.DebugLevel,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "habits",
	})
	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(log.JSONFormatter)
	}
	Logger = l
	return nil
}

// NewRotatingFile returns an append-only writer for path that rotates at
// 10 MB and keeps three compressed backups for four weeks.
func NewRotatingFile(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) { Logger.Debug(msg, keyvals...) }

// Info logs an info message
func Info(msg string, keyvals ...interface{}) { Logger.Info(msg, keyvals...) }

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) { Logger.Warn(msg, keyvals...) }

// Error logs an error message
func Error(msg string, keyvals ...interface{}) { Logger.Error(msg, keyvals...) }
