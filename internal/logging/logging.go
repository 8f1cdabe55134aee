// Package logging configures the global zerolog logger: a console writer
// (stderr for the binaries) and, when a file is configured, a rotating log file.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/SedlarDavid/mssqlconn/internal/config"
)

const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
)

const timeFormat = "2006-01-02 15:04:05"

// Apply sets the global log level and output writers. verbosity raises the
// configured level: 1 is debug, 2 or more is trace.
func Apply(cfg config.LogConfig, verbosity int, console io.Writer) {
	zerolog.SetGlobalLevel(Level(cfg.Level, verbosity))
	log.Logger = New(console, cfg)
}

// Level resolves the configured level name and the verbosity count.
func Level(name string, verbosity int) zerolog.Level {
	switch {
	case verbosity >= 2:
		return zerolog.TraceLevel
	case verbosity == 1:
		return zerolog.DebugLevel
	}
	if lvl, err := zerolog.ParseLevel(name); err == nil && name != "" {
		return lvl
	}
	return zerolog.InfoLevel
}

// New returns a logger writing to console and, if cfg.File is set, to a
// rotating file as well.
func New(console io.Writer, cfg config.LogConfig) zerolog.Logger {
	consoleOutput := zerolog.ConsoleWriter{Out: console, TimeFormat: timeFormat}
	if cfg.File == "" {
		return zerolog.New(consoleOutput).With().Timestamp().Logger()
	}

	if err := ensureLogDir(cfg.File); err != nil {
		l := zerolog.New(consoleOutput).With().Timestamp().Logger()
		l.Error().Err(err).Str("path", cfg.File).Msg("Failed to prepare log directory; logging to console only")
		return l
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    positiveOr(cfg.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: positiveOr(cfg.MaxBackups, DefaultMaxBackups),
		MaxAge:     positiveOr(cfg.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   cfg.Compress,
	}
	fileConsole := zerolog.ConsoleWriter{Out: fileWriter, TimeFormat: timeFormat, NoColor: true}

	multi := zerolog.MultiLevelWriter(consoleOutput, fileConsole)
	return zerolog.New(multi).With().Timestamp().Logger()
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
