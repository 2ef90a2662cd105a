package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"cardscan/internal/cards"
	"cardscan/internal/config"
	"cardscan/internal/store"
)

func TestScansAddAndList(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base, nil)
	imagePath := writeScanImage(t, base, "scan0001.png")

	stdout, _, err := runCLI(t, configPath, "scans", "add", imagePath,
		"--name", "Charizard", "--number", "4/102", "--ocr-confidence", "88")
	if err != nil {
		t.Fatalf("scans add: %v", err)
	}
	if !strings.Contains(stdout, "Recorded scan #1 (scan0001.png)") {
		t.Fatalf("unexpected add output: %q", stdout)
	}

	stdout, _, err = runCLI(t, configPath, "scans", "list")
	if err != nil {
		t.Fatalf("scans list: %v", err)
	}
	for _, want := range []string{"Charizard", "4/102", "NEW"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("list output missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, err = runCLI(t, configPath, "scans", "list", "--status", "completed")
	if err != nil {
		t.Fatalf("scans list --status: %v", err)
	}
	if !strings.Contains(stdout, "No scans recorded") {
		t.Fatalf("filtered list should be empty: %q", stdout)
	}

	stdout, _, err = runCLI(t, configPath, "scans", "stats")
	if err != nil {
		t.Fatalf("scans stats: %v", err)
	}
	if !strings.Contains(stdout, "NEW") || !strings.Contains(stdout, "1") {
		t.Fatalf("unexpected stats output: %q", stdout)
	}
}

func TestScansAddRejectsBadInput(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base, nil)

	_, _, err := runCLI(t, configPath, "scans", "add", filepath.Join(base, "missing.png"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("missing image error = %v", err)
	}

	notImage := writeScanImage(t, base, "notes.txt")
	_, _, err = runCLI(t, configPath, "scans", "add", notImage)
	if err == nil || !strings.Contains(err.Error(), "unsupported image type") {
		t.Fatalf("extension error = %v", err)
	}

	imagePath := writeScanImage(t, base, "scan.png")
	_, _, err = runCLI(t, configPath, "scans", "add", imagePath, "--number", "four")
	if err == nil || !strings.Contains(err.Error(), "invalid collector number") {
		t.Fatalf("collector number error = %v", err)
	}

	_, _, err = runCLI(t, configPath, "scans", "list", "--status", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown scan status") {
		t.Fatalf("status filter error = %v", err)
	}
}

func TestScansRetry(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base, nil)

	var scanID int64
	withTestStore(t, configPath, func(_ *config.Config, st *store.Store) {
		ctx := context.Background()
		scan, err := st.InsertScan(ctx, "", cards.Extraction{Name: "Mew"})
		if err != nil {
			t.Fatalf("insert scan: %v", err)
		}
		scanID = scan.ID
		if err := st.UpdateScanStatus(ctx, scan.ID, store.ScanStatusError, "catalog unreachable"); err != nil {
			t.Fatalf("mark errored: %v", err)
		}
	})

	stdout, _, err := runCLI(t, configPath, "scans", "retry", strconv.FormatInt(scanID, 10))
	if err != nil {
		t.Fatalf("scans retry: %v", err)
	}
	if !strings.Contains(stdout, "reset for retry") {
		t.Fatalf("unexpected retry output: %q", stdout)
	}

	stdout, _, err = runCLI(t, configPath, "scans", "retry", strconv.FormatInt(scanID, 10))
	if err != nil {
		t.Fatalf("second retry: %v", err)
	}
	if !strings.Contains(stdout, "not in ERROR state") {
		t.Fatalf("retried a NEW scan: %q", stdout)
	}

	stdout, _, err = runCLI(t, configPath, "scans", "retry", "99")
	if err != nil {
		t.Fatalf("retry unknown id: %v", err)
	}
	if !strings.Contains(stdout, "Scan 99 not found") {
		t.Fatalf("unexpected output: %q", stdout)
	}

	_, _, err = runCLI(t, configPath, "scans", "retry", "abc")
	if err == nil || !strings.Contains(err.Error(), "invalid scan id") {
		t.Fatalf("invalid id error = %v", err)
	}

	stdout, _, err = runCLI(t, configPath, "scans", "retry")
	if err != nil {
		t.Fatalf("retry all: %v", err)
	}
	if !strings.Contains(stdout, "Retried 0 errored scans") {
		t.Fatalf("unexpected retry-all output: %q", stdout)
	}
}

func TestStatusReportsSections(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base, nil)

	withTestStore(t, configPath, func(_ *config.Config, st *store.Store) {
		if _, err := st.InsertScan(context.Background(), "", cards.Extraction{Name: "Mew"}); err != nil {
			t.Fatalf("insert scan: %v", err)
		}
	})

	stdout, _, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{
		"== Resolution Cache ==",
		"Database:",
		"[OK]",
		"== Visual Index ==",
		"[WARN]",
		"== Catalog ==",
		"== Scan Status ==",
		"NEW",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("status output missing %q:\n%s", want, stdout)
		}
	}
}

func TestTestNotifyCommand(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	configPath := writeTestConfig(t, t.TempDir(), func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = server.URL + "/cardscan-dev"
	})

	stdout, _, err := runCLI(t, configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(stdout, "Test notification sent") {
		t.Fatalf("unexpected output: %q", stdout)
	}
	if hits != 1 {
		t.Fatalf("notification requests = %d, want 1", hits)
	}

	unconfigured := writeTestConfig(t, t.TempDir(), nil)
	stdout, _, err = runCLI(t, unconfigured, "test-notify")
	if err != nil {
		t.Fatalf("test-notify unconfigured: %v", err)
	}
	if !strings.Contains(stdout, "not configured") {
		t.Fatalf("unexpected output: %q", stdout)
	}
}
