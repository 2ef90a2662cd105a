package main

import (
	"strings"
	"testing"

	"cardscan/internal/config"
)

func TestResolveCommandPrintsMatch(t *testing.T) {
	server := newCatalogServer(t, charizardJSON())
	configPath := writeTestConfig(t, t.TempDir(), func(cfg *config.Config) {
		cfg.Catalog.BaseURL = server.URL
	})

	stdout, _, err := runCLI(t, configPath, "resolve", "--name", "Charizard", "--number", "4/102")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, want := range []string{
		"Resolved: Charizard (base1-4)",
		"Set: Base (base1)",
		"Number: 4",
		"Rarity: Rare Holo",
		"Market: $420.50",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("resolve output missing %q:\n%s", want, stdout)
		}
	}
}

func TestResolveCommandReportsNoMatch(t *testing.T) {
	server := newCatalogServer(t)
	configPath := writeTestConfig(t, t.TempDir(), func(cfg *config.Config) {
		cfg.Catalog.BaseURL = server.URL
	})

	stdout, _, err := runCLI(t, configPath, "resolve", "--name", "Missingno")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(stdout, "No catalog card scored above the cutoff") {
		t.Fatalf("unexpected output: %q", stdout)
	}
}

func TestResolveRequiresEvidence(t *testing.T) {
	configPath := writeTestConfig(t, t.TempDir(), nil)

	_, _, err := runCLI(t, configPath, "resolve")
	if err == nil || !strings.Contains(err.Error(), "--name or --number") {
		t.Fatalf("missing evidence error = %v", err)
	}
}
