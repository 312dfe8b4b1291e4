// Package log is the process-wide logger: a small interface in front of
// logrus with a pattern formatter and rotating file output.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"firestige.xyz/pktforge/internal/config"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	Panic(args ...interface{})
	Panicf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	mu     sync.RWMutex
	logger Logger
	closer io.Closer
)

// GetLogger returns the global logger. Before Init it logs at info level
// to stderr with the default pattern.
func GetLogger() Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger, _ = newLogrus(config.LogConfig{Level: "info"}, NewMultiWriter().Add(os.Stderr))
	}
	return logger
}

// Init replaces the global logger according to cfg. A previously opened
// log file is closed.
func Init(cfg config.LogConfig) error {
	out := NewMultiWriter()
	switch cfg.Output {
	case "", "stderr":
		out.Add(os.Stderr)
	case "stdout":
		out.Add(os.Stdout)
	default:
		return fmt.Errorf("unsupported log output: %s", cfg.Output)
	}

	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			return fmt.Errorf("log file path is required when file output is enabled")
		}
		out.AddFileAppender(cfg.File)
	}

	l, err := newLogrus(cfg, out)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	logger, closer = l, out
	return nil
}

// Close flushes and closes any file output opened by Init.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}
