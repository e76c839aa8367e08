package config

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// NewLogger builds the process logger. Text output is tinted, with colour
// only when out is a terminal; json output is one object per line.
func (c *Config) NewLogger(out *os.File) *slog.Logger {
	level, _ := c.Level()
	if c.LogFormat == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(colorable.NewColorable(out), &tint.Options{
		Level:       level,
		TimeFormat:  "15:04:05.000",
		NoColor:     !isatty.IsTerminal(out.Fd()),
		ReplaceAttr: dropEmpty,
	}))
}

// NewWriterLogger is NewLogger for an arbitrary writer, never coloured.
func (c *Config) NewWriterLogger(w io.Writer) *slog.Logger {
	level, _ := c.Level()
	if c.LogFormat == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  "15:04:05.000",
		NoColor:     true,
		ReplaceAttr: dropEmpty,
	}))
}

// dropEmpty removes attributes holding zero values.
func dropEmpty(groups []string, a slog.Attr) slog.Attr {
	skip := false
	switch t := a.Value.Any().(type) {
	case string:
		skip = t == ""
	case time.Duration:
		skip = t == 0
	case nil:
		skip = true
	}
	if skip {
		return slog.Attr{}
	}
	return a
}
