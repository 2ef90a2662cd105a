package testsupport

import (
	"context"
	"testing"

	"cardscan/internal/cards"
	"cardscan/internal/config"
	"cardscan/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewScan inserts a NEW scan for tests using the provided store.
func NewScan(t testing.TB, st *store.Store, imagePath string, extraction cards.Extraction) *store.ScanRecord {
	t.Helper()

	record, err := st.InsertScan(context.Background(), imagePath, extraction)
	if err != nil {
		t.Fatalf("store.InsertScan: %v", err)
	}
	return record
}
