package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAsyncHandlerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.log")

	h, err := NewAsyncHandler(path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewAsyncHandler: %v", err)
	}
	logger := slog.New(h)
	logger.Info("hello", "key", "value")
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(contents), "hello") || !strings.Contains(string(contents), "key=value") {
		t.Errorf("want log line containing message and attrs, got %q", contents)
	}
}

func TestAsyncHandlerEnabledRespectsLevel(t *testing.T) {
	h, err := NewAsyncHandler("", slog.LevelWarn)
	if err != nil {
		t.Fatalf("NewAsyncHandler: %v", err)
	}
	defer h.Close()

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("want info disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("want error enabled at warn level")
	}
}

func TestWithAttrsDerivedHandlerSharesChannel(t *testing.T) {
	h, err := NewAsyncHandler("", slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewAsyncHandler: %v", err)
	}
	defer h.Close()

	derived := h.WithAttrs([]slog.Attr{slog.String("component", "test")})
	logger := slog.New(derived)

	done := make(chan struct{})
	go func() {
		logger.Info("via derived handler")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("logging through a WithAttrs-derived handler hung — it must share the parent's channel")
	}
}
