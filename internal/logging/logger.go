// Package logging builds the slog loggers used by the CLI and the servers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures New. The zero value logs text at Info to Stderr.
type Options struct {
	Level  slog.Level
	Format string    // "text" (default) or "json"
	Writer io.Writer // defaults to Stderr, keeping Stdout for reports and JSON-RPC
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// New creates a configured application logger.
// The "error" key is renamed to "err" so both spellings used by callers end up
// in the same field.
func New(opts Options) (*slog.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{
		Level: opts.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	switch opts.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, ho)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, ho)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
