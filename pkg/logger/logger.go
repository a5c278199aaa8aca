package logger

import (
	"log"
	"log/slog"
)

// New returns a *log.Logger that forwards lines into base at the given level,
// tagged with the component name. Use it for libraries that only accept the
// standard logger such as http.Server.ErrorLog.
func New(base *slog.Logger, component string, level slog.Level) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), level)
}
