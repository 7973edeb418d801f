// Package logging builds the slog loggers used by the commands.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to w. The text format uses tint and enables
// colour only when w is a terminal.
func New(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
		if !noColor {
			w = colorable.NewColorable(f)
		}
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Empty strings add noise to interactive output.
			if a.Value.Kind() == slog.KindString && a.Value.String() == "" && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// Stderr is New on standard error.
func Stderr(format string, level slog.Leveler) *slog.Logger {
	return New(os.Stderr, format, level)
}

// File opens path for appending and returns a text logger on it. The TUI
// logs here because stderr belongs to the terminal UI.
func File(path string, level slog.Leveler) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	return New(f, FormatText, level), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
