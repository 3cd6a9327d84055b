// Package logging assembles structured slog loggers and formatting helpers used
// across threadcast.
//
// It owns the console and JSON handlers, the optional JSON log file tee, and
// context-aware helpers so pipeline code can tag log lines with batch run IDs,
// job paths, and correlation IDs. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
package logging
