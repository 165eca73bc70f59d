package logging

import (
	"log/slog"
	"os"
)

// New returns a production-friendly text logger writing to stderr unless
// LOG_FORMAT=json is provided to prefer machine-readable output. Events
// themselves go to sinks, so the log stream stays separate from stdout.
func New(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
