package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// LogConfig selects where and how log lines are written.
//   - output: "" (discard), stderr, stdout
//   - format: "" (colour when the output is a terminal), color, text, json
//   - level:  disabled, trace, debug, info, warn, error
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	Time   bool   `yaml:"time"`
}

func NewLogger(cfg LogConfig) zerolog.Logger {
	var writer io.Writer
	var file *os.File

	switch cfg.Output {
	case "stderr":
		file = os.Stderr
	case "stdout":
		file = os.Stdout
	}

	if file == nil {
		return zerolog.Nop()
	}
	writer = file

	if cfg.Format != "json" {
		console := &zerolog.ConsoleWriter{Out: file}
		switch cfg.Format {
		case "text":
			console.NoColor = true
		case "color":
			console.NoColor = false
		default:
			console.NoColor = !isatty.IsTerminal(file.Fd())
		}
		if cfg.Time {
			console.TimeFormat = "15:04:05.000"
		} else {
			console.PartsOrder = []string{
				zerolog.LevelFieldName,
				zerolog.CallerFieldName,
				zerolog.MessageFieldName,
			}
		}
		writer = console
	}

	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(writer).Level(lvl)
	if cfg.Time {
		logger = logger.With().Timestamp().Logger()
	}
	return logger
}
