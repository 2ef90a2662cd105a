package logging_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cardscan/internal/logging"
	"cardscan/internal/services"
)

func TestNewConsoleWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("scan started",
		logging.String(logging.FieldComponent, "pipeline"),
		logging.Int64(logging.FieldScanID, 7),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "pipeline: scan started") {
		t.Fatalf("expected component-prefixed message, got %q", line)
	}
	if !strings.Contains(line, "scan_id=7") {
		t.Fatalf("expected scan_id attribute, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", line)
	}
}

func TestNewConsoleIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewJSONLevels(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.json")
	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "warn",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(content)
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("unexpected json output: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

// captureHandler records attrs passed through logger.With for inspection.
type captureHandler struct {
	mu      sync.Mutex
	attrs   []slog.Attr
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithScanID(ctx, 123)
	ctx = services.WithRequestID(ctx, "req-xyz")

	capture := &captureHandler{}
	logger := slog.New(capture)

	logging.WithContext(ctx, logger).Info("contextual log")

	found := map[string]bool{}
	for _, attr := range capture.attrs {
		switch attr.Key {
		case logging.FieldScanID:
			if attr.Value.Int64() != 123 {
				t.Fatalf("scan_id = %v, want 123", attr.Value)
			}
			found[attr.Key] = true
		case logging.FieldCorrelationID:
			if attr.Value.String() != "req-xyz" {
				t.Fatalf("correlation_id = %v, want req-xyz", attr.Value)
			}
			found[attr.Key] = true
		}
	}
	if !found[logging.FieldScanID] || !found[logging.FieldCorrelationID] {
		t.Fatalf("missing context fields, got %v", capture.attrs)
	}
}

func TestWithContextNilLoggerUsesNop(t *testing.T) {
	logger := logging.WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("must not panic")
}
