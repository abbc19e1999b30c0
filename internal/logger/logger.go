package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level      string
	Format     string
	Output     string
	Rotation   bool
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// Init configures the global logger. Unknown levels fall back to info.
func Init(cfg *Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	writer, err := openWriter(cfg)
	if err != nil {
		return err
	}

	if strings.EqualFold(cfg.Format, "text") {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
		}
	}

	log.Logger = zerolog.New(writer).With().
		Timestamp().
		Str("service", "mockgps").
		Logger()

	return nil
}

func openWriter(cfg *Config) (io.Writer, error) {
	switch cfg.Output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	if cfg.Rotation {
		return &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		}, nil
	}

	//nolint:gosec // log files are meant to be readable by operators
	return os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// Logger returns the global logger
func Logger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component name
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
