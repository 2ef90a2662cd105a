package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cardscan/internal/config"
	"cardscan/internal/store"
)

// writeTestConfig writes a config file rooted in base and returns its path.
// All runtime paths stay inside base; retries and rate limiting are tuned
// down so command tests stay fast.
func writeTestConfig(t *testing.T, base string, mutate func(*config.Config)) string {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.IndexDir = filepath.Join(base, "index")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Catalog.MinRequestIntervalMS = 1
	cfg.Catalog.BackoffScheduleMS = []int{1}
	cfg.Logging.Level = "error"
	if mutate != nil {
		mutate(&cfg)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// runCLI executes one command invocation in process and captures its output.
func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// withTestStore opens the resolution cache for seeding or inspection and
// closes it again before the caller runs the CLI.
func withTestStore(t *testing.T, configPath string, fn func(cfg *config.Config, st *store.Store)) {
	t.Helper()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	}()
	fn(cfg, st)
}

func writeScanImage(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("scan pixels"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func charizardJSON() map[string]any {
	return map[string]any{
		"id":     "base1-4",
		"name":   "Charizard",
		"number": "4",
		"rarity": "Rare Holo",
		"set": map[string]any{
			"id":          "base1",
			"name":        "Base",
			"releaseDate": "1999/01/09",
		},
		"images": map[string]any{
			"small": "https://img.example/base1-4.png",
			"large": "https://img.example/base1-4_hires.png",
		},
		"tcgplayer": map[string]any{
			"updatedAt": "2025/08/20",
			"prices":    map[string]any{"holofoil": map[string]any{"market": 420.5}},
		},
	}
}

// newCatalogServer serves a minimal slice of the catalog API: search by
// name or collector number plus card lookup by id.
func newCatalogServer(t *testing.T, catalogCards ...map[string]any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/cards/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/cards/")
		for _, card := range catalogCards {
			if card["id"] == id {
				writeJSON(t, w, map[string]any{"data": card})
				return
			}
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/cards", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		matched := make([]map[string]any, 0, len(catalogCards))
		for _, card := range catalogCards {
			name := fmt.Sprintf("%v", card["name"])
			numberClause := fmt.Sprintf("number:%q", card["number"])
			if strings.Contains(query, name) || strings.Contains(query, numberClause) {
				matched = append(matched, card)
			}
		}
		writeJSON(t, w, map[string]any{"data": matched})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}
