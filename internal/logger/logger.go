package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"

	c "github.com/life-stream-dev/mqtt-harness-agent/internal/config"
)

const (
	LevelFatal slog.Level = 12
)

// AsyncHandler is a slog.Handler that queues formatted lines onto a
// buffered channel and writes them from one worker goroutine, so a slow
// sink never stalls the goroutine that logged (often a gRPC handler or
// the driver's own callback goroutine, per internal/session). It writes
// to os.Stdout alone, or io.MultiWriter(os.Stdout, file) when
// config.Config.LogFile names a path (spec.md §4.8). This agent runs one
// bounded test session per process rather than a long-lived broker, so
// the day-rotation a always-on service would need has no job to do here.
type AsyncHandler struct {
	ch       chan []byte
	writer   io.Writer
	attrs    []slog.Attr
	group    string
	logLevel slog.Level
	wg       sync.WaitGroup
	file     *os.File
}

// NewAsyncHandler opens logFile (if non-empty) and tees writes to it
// alongside os.Stdout. An empty logFile logs to stdout only.
func NewAsyncHandler(logFile string, logLevel slog.Level) (*AsyncHandler, error) {
	h := &AsyncHandler{
		ch:       make(chan []byte, 1024),
		logLevel: logLevel,
		writer:   os.Stdout,
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", logFile, err)
		}
		h.file = f
		h.writer = io.MultiWriter(os.Stdout, f)
	}
	h.wg.Add(1)
	go h.startWorker()
	return h, nil
}

func (h *AsyncHandler) startWorker() {
	defer h.wg.Done()
	for data := range h.ch {
		_, _ = h.writer.Write(data)
	}
}

func (h *AsyncHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.logLevel
}

func (h *AsyncHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	case LevelFatal:
		level = color.HiRedString("FATAL")
	}

	// time | level | message
	line := fmt.Sprintf(
		"%s | %-5s | %s",
		color.GreenString(r.Time.Format("2006-01-02T15:04:05")),
		level,
		color.CyanString(r.Message),
	)

	for _, attr := range h.attrs {
		line += color.CyanString(fmt.Sprintf(" %s=%v", attr.Key, attr.Value))
	}

	r.Attrs(func(attr slog.Attr) bool {
		line += color.CyanString(fmt.Sprintf(" %s=%v", attr.Key, attr.Value))
		return true
	})

	line += "\n"

	h.Write([]byte(line))
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	newAttrs = append(newAttrs, attrs...)

	return &AsyncHandler{
		ch:       h.ch,
		writer:   h.writer,
		attrs:    newAttrs,
		group:    h.group,
		logLevel: h.logLevel,
		file:     h.file,
	}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{
		ch:       h.ch,
		writer:   h.writer,
		attrs:    h.attrs,
		group:    name,
		logLevel: h.logLevel,
		file:     h.file,
	}
}

func (h *AsyncHandler) Write(p []byte) {
	// copy to avoid a data race with the caller reusing p
	pb := make([]byte, len(p))
	copy(pb, p)
	h.ch <- pb
}

func (h *AsyncHandler) Close() error {
	close(h.ch)
	h.wg.Wait()
	if h.file != nil {
		_ = h.file.Sync()
		return h.file.Close()
	}
	return nil
}

type ShutdownCallback struct {
	handler *AsyncHandler
}

func (lc *ShutdownCallback) Invoke(ctx context.Context) error {
	return lc.handler.Close()
}

// Init builds the process-wide slog.Logger from the loaded config.Config
// and installs it as slog's default, so every package that just calls
// slog.Info/Warn/Error lands in the same stream without importing this
// package. The returned ShutdownCallback flushes and closes the log
// file; register it with the shutdown Cleaner (internal/event).
func Init() *ShutdownCallback {
	config, _ := c.GetConfig()
	level := slog.LevelInfo
	if config.DebugMode {
		level = slog.LevelDebug
	}
	handler, err := NewAsyncHandler(config.LogFile, level)
	if err != nil {
		// Falling back to stdout-only keeps the agent starting even when
		// the configured log directory doesn't exist yet; the failure
		// itself is still visible on stderr.
		fmt.Fprintf(os.Stderr, "logger: %v, falling back to stdout only\n", err)
		handler, _ = NewAsyncHandler("", level)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("logger initialized", "log_file", config.LogFile)
	return &ShutdownCallback{handler: handler}
}

func Debug(msg string, v ...interface{}) {
	slog.Debug(msg, v...)
}

func DebugF(msg string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(msg, v...))
}

func Info(msg string, v ...interface{}) {
	slog.Info(msg, v...)
}

func InfoF(msg string, v ...interface{}) {
	slog.Info(fmt.Sprintf(msg, v...))
}

func Warn(msg string, v ...interface{}) {
	slog.Warn(msg, v...)
}

func WarnF(msg string, v ...interface{}) {
	slog.Warn(fmt.Sprintf(msg, v...))
}

func Error(msg string, v ...interface{}) {
	slog.Error(msg, v...)
}

func ErrorF(msg string, v ...interface{}) {
	slog.Error(fmt.Sprintf(msg, v...))
}

func Fatal(msg string, v ...interface{}) {
	slog.Log(context.Background(), LevelFatal, msg, v...)
}

func FatalF(msg string, v ...interface{}) {
	slog.Log(context.Background(), LevelFatal, fmt.Sprintf(msg, v...))
}
