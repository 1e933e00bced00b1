package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Debug   bool
	LogFile string
}

// Setup installs the default slog logger and returns a closer for the file
// sink, if any.
func Setup(opts Options) io.Closer {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var output io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if opts.LogFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
		output = io.MultiWriter(os.Stderr, fileWriter)
		closer = fileWriter
	}

	slog.SetDefault(New(output, level))
	return closer
}

func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
