package logger

import corelogger "github.com/kilianp07/evload/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger = corelogger.Nop

// New returns a zerolog-backed Logger tagged with component. Output and
// level come from Setup; APP_ENV=dev switches to the console format.
func New(component string) Logger {
	return NewZerologLogger(component)
}
