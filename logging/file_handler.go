package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Level      slog.Level
}

// NewFileHandler writes JSON records to a size rotated file. Close the
// returned closer on shutdown.
func NewFileHandler(opts FileOptions) (slog.Handler, io.Closer) {
	w := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level}), w
}
