package log

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/pktforge/internal/config"
)

// AddFileAppender appends a rotating file writer.
func (m *MultiWriter) AddFileAppender(fc config.FileOutputConfig) *MultiWriter {
	writer := &lumberjack.Logger{
		Filename:   fc.Path,
		MaxSize:    fc.Rotation.MaxSizeMB,  // megabytes
		MaxBackups: fc.Rotation.MaxBackups, // number of backups
		MaxAge:     fc.Rotation.MaxAgeDays, // days
		Compress:   fc.Rotation.Compress,
	}
	m.writers = append(m.writers, writer)
	return m
}

func isStdStream(w io.Writer) bool {
	return w == os.Stdout || w == os.Stderr
}
