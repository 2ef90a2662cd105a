package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardscan/internal/visualindex"
)

func TestIndexBuildAndStats(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base, nil)

	manifestPath := filepath.Join(base, "cards.jsonl")
	writeManifest(t, manifestPath, "base1-4", "base1-58")

	stdout, _, err := runCLI(t, configPath, "index", "build", manifestPath)
	if err != nil {
		t.Fatalf("index build: %v", err)
	}
	if !strings.Contains(stdout, "Indexed 2 cards from cards.jsonl") {
		t.Fatalf("unexpected build output: %q", stdout)
	}

	stdout, _, err = runCLI(t, configPath, "index", "stats")
	if err != nil {
		t.Fatalf("index stats: %v", err)
	}
	if !strings.Contains(stdout, "Indexed cards: 2") {
		t.Fatalf("unexpected stats output: %q", stdout)
	}
}

func TestIndexStatsFailsWithoutIndex(t *testing.T) {
	configPath := writeTestConfig(t, t.TempDir(), nil)

	if _, _, err := runCLI(t, configPath, "index", "stats"); err == nil {
		t.Fatal("stats succeeded without an index")
	}
}

func writeManifest(t *testing.T, path string, ids ...string) {
	t.Helper()

	var buf bytes.Buffer
	for i, id := range ids {
		entry := visualindex.ManifestEntry{
			CardID:    id,
			Name:      "Card " + id,
			Image:     "/ref/" + id + ".png",
			Embedding: unitVector(i),
		}
		line, err := json.Marshal(entry)
		if err != nil {
			t.Fatalf("marshal manifest entry: %v", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func unitVector(hot int) []float32 {
	vec := make([]float32, 512)
	vec[hot%512] = 1
	return vec
}
