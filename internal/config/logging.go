package config

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/CameronXie/tailor-ledger/internal/version"
)

// NewLogger builds the JSON logger tagged with the build version. With a log
// file configured, records go to stdout and to a rotated file. The returned
// closer releases the file.
func NewLogger(cfg LogConfig, stdout io.Writer) (*slog.Logger, io.Closer) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	out := stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = io.MultiWriter(stdout, file)
		closer = file
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})).With(
		slog.String("version", version.Version),
	)

	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
