package session

import (
	"fmt"
	"log/slog"
)

// slogBridge adapts paho.golang's Logger interface (a *log.Logger-shaped
// interface with Println/Printf) onto slog, so driver diagnostics land in
// the same structured log stream as the rest of the agent instead of
// stdlib's default logger. newPahoDriver installs it through both
// SetDebugLogger and SetErrorLogger, at different LogLevels.
type slogBridge struct {
	level LogLevel
}

func (b slogBridge) Println(v ...any) {
	logAtLevel(b.level, fmt.Sprintln(v...))
}

func (b slogBridge) Printf(format string, v ...any) {
	logAtLevel(b.level, fmt.Sprintf(format, v...))
}

func logAtLevel(level LogLevel, msg string) {
	switch level {
	case LogError:
		slog.Error(msg, "component", "mqtt-driver")
	case LogWarn:
		slog.Warn(msg, "component", "mqtt-driver")
	case LogInfo:
		slog.Info(msg, "component", "mqtt-driver")
	default:
		slog.Debug(msg, "component", "mqtt-driver")
	}
}
