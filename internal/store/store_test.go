package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardscan/internal/cards"
	"cardscan/internal/services"
	"cardscan/internal/store"
	"cardscan/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	number := cards.CollectorNumber{Num: 4, Den: 102}
	record, err := st.InsertScan(ctx, "/scans/charizard.png", cards.Extraction{
		Name:       "Charizard",
		Number:     &number,
		Confidence: 0.92,
	})
	if err != nil {
		t.Fatalf("InsertScan failed: %v", err)
	}
	if record.ID == 0 {
		t.Fatal("expected scan ID to be assigned")
	}
	if record.Status != store.ScanStatusNew {
		t.Fatalf("expected NEW status, got %s", record.Status)
	}

	fetched, err := st.GetScan(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetScan failed: %v", err)
	}
	if fetched == nil || fetched.ImagePath != "/scans/charizard.png" {
		t.Fatalf("unexpected fetched scan: %#v", fetched)
	}
	if fetched.Extraction.Name != "Charizard" {
		t.Fatalf("expected extraction name round-trip, got %q", fetched.Extraction.Name)
	}
	if fetched.Extraction.Number == nil || fetched.Extraction.Number.Num != 4 || fetched.Extraction.Number.Den != 102 {
		t.Fatalf("expected collector number round-trip, got %#v", fetched.Extraction.Number)
	}
	if fetched.Extraction.Confidence != 0.92 {
		t.Fatalf("expected confidence round-trip, got %f", fetched.Extraction.Confidence)
	}
}

func TestGetScanReturnsNilForUnknownID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	fetched, err := st.GetScan(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetScan failed: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected nil for unknown scan, got %#v", fetched)
	}
}

func TestUpdateScanStatusUnknownIDFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	err := st.UpdateScanStatus(context.Background(), 4242, store.ScanStatusError, "boom")
	if err == nil {
		t.Fatal("expected error for unknown scan id")
	}
	if !errors.Is(err, store.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected services.ErrNotFound classification, got %v", err)
	}
}

func TestUpdateScanStatusRejectsUnknownStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	record := testsupport.NewScan(t, st, "/scans/one.png", cards.Extraction{Name: "Pikachu"})
	if err := st.UpdateScanStatus(context.Background(), record.ID, store.ScanStatus("BOGUS"), ""); err == nil {
		t.Fatal("expected error for unknown status value")
	}
}

func TestScanTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewScan(t, st, "/scans/one.png", cards.Extraction{Name: "Pikachu"})

	if err := st.UpdateScanStatus(ctx, record.ID, store.ScanStatusError, "catalog: resolve: retries exhausted"); err != nil {
		t.Fatalf("UpdateScanStatus failed: %v", err)
	}
	errored, err := st.GetScan(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetScan failed: %v", err)
	}
	if errored.Status != store.ScanStatusError {
		t.Fatalf("expected ERROR, got %s", errored.Status)
	}
	if errored.Note != "catalog: resolve: retries exhausted" {
		t.Fatalf("expected reason note persisted, got %q", errored.Note)
	}

	updated, err := st.RetryErrored(ctx)
	if err != nil {
		t.Fatalf("RetryErrored failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 scan retried, got %d", updated)
	}
	retried, err := st.GetScan(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetScan failed: %v", err)
	}
	if retried.Status != store.ScanStatusNew {
		t.Fatalf("expected NEW after retry, got %s", retried.Status)
	}
	if retried.Note != "" {
		t.Fatalf("expected note cleared after retry, got %q", retried.Note)
	}

	if err := st.MarkScanCompleted(ctx, record.ID, "base1-58"); err != nil {
		t.Fatalf("MarkScanCompleted failed: %v", err)
	}
	completed, err := st.GetScan(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetScan failed: %v", err)
	}
	if completed.Status != store.ScanStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", completed.Status)
	}
	if completed.CardID != "base1-58" {
		t.Fatalf("expected resolved card id persisted, got %q", completed.CardID)
	}
}

func TestRetryErroredTargetsSelectedIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewScan(t, st, "/scans/a.png", cards.Extraction{Name: "Abra"})
	b := testsupport.NewScan(t, st, "/scans/b.png", cards.Extraction{Name: "Beedrill"})
	for _, record := range []*store.ScanRecord{a, b} {
		if err := st.UpdateScanStatus(ctx, record.ID, store.ScanStatusError, "boom"); err != nil {
			t.Fatalf("UpdateScanStatus: %v", err)
		}
	}

	updated, err := st.RetryErrored(ctx, b.ID)
	if err != nil {
		t.Fatalf("RetryErrored targeted: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 scan retried, got %d", updated)
	}

	stillErrored, err := st.GetScan(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if stillErrored.Status != store.ScanStatusError {
		t.Fatalf("expected scan A untouched, got %s", stillErrored.Status)
	}
	retried, err := st.GetScan(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if retried.Status != store.ScanStatusNew {
		t.Fatalf("expected scan B retried, got %s", retried.Status)
	}
}

func TestScansByStatusOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewScan(t, st, "/scans/first.png", cards.Extraction{Name: "Mew"})
	second := testsupport.NewScan(t, st, "/scans/second.png", cards.Extraction{Name: "Mewtwo"})
	third := testsupport.NewScan(t, st, "/scans/third.png", cards.Extraction{Name: "Ditto"})
	if err := st.UpdateScanStatus(ctx, second.ID, store.ScanStatusSkipped, "no usable evidence"); err != nil {
		t.Fatalf("UpdateScanStatus: %v", err)
	}

	pending, err := st.ScansByStatus(ctx, store.ScanStatusNew)
	if err != nil {
		t.Fatalf("ScansByStatus failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 NEW scans, got %d", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != third.ID {
		t.Fatalf("expected oldest-first order %d,%d, got %d,%d", first.ID, third.ID, pending[0].ID, pending[1].ID)
	}
}

func TestListScansSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewScan(t, st, "/scans/a.png", cards.Extraction{Name: "Abra"})
	b := testsupport.NewScan(t, st, "/scans/b.png", cards.Extraction{Name: "Beedrill"})
	c := testsupport.NewScan(t, st, "/scans/c.png", cards.Extraction{})
	if err := st.MarkScanCompleted(ctx, b.ID, "base1-17"); err != nil {
		t.Fatalf("MarkScanCompleted: %v", err)
	}
	if err := st.UpdateScanStatus(ctx, c.ID, store.ScanStatusSkipped, "nothing extracted"); err != nil {
		t.Fatalf("UpdateScanStatus: %v", err)
	}

	all, err := st.ListScans(ctx)
	if err != nil {
		t.Fatalf("ListScans failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 scans, got %d", len(all))
	}
	if all[0].ID != a.ID || all[1].ID != b.ID || all[2].ID != c.ID {
		t.Fatalf("expected order A,B,C, got IDs %d,%d,%d", all[0].ID, all[1].ID, all[2].ID)
	}

	filtered, err := st.ListScans(ctx, store.ScanStatusCompleted, store.ScanStatusSkipped)
	if err != nil {
		t.Fatalf("filtered ListScans failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 scans, got %d", len(filtered))
	}
	if filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("unexpected filtered order: got %d,%d", filtered[0].ID, filtered[1].ID)
	}
}

func TestScanStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewScan(t, st, "/scans/a.png", cards.Extraction{Name: "Abra"})
	b := testsupport.NewScan(t, st, "/scans/b.png", cards.Extraction{Name: "Beedrill"})
	if err := st.UpdateScanStatus(ctx, b.ID, store.ScanStatusNoMatch, "no candidate above threshold"); err != nil {
		t.Fatalf("UpdateScanStatus: %v", err)
	}

	stats, err := st.ScanStats(ctx)
	if err != nil {
		t.Fatalf("ScanStats failed: %v", err)
	}
	if stats[store.ScanStatusNew] != 1 || stats[store.ScanStatusNoMatch] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestCardUpsertRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	missing, err := st.GetCard(ctx, "base1-4")
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for uncached card, got %#v", missing)
	}

	card := &cards.ResolvedCard{
		CardID:         "base1-4",
		Name:           "Charizard",
		Number:         "4",
		SetID:          "base1",
		SetName:        "Base",
		Rarity:         "Rare Holo",
		SetReleaseDate: "1999/01/09",
		ImageSmall:     "https://images.example/base1-4.png",
		ImageLarge:     "https://images.example/base1-4_hires.png",
	}
	if err := st.UpsertCard(ctx, card); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}

	card.Rarity = "Rare Holo 1st Edition"
	if err := st.UpsertCard(ctx, card); err != nil {
		t.Fatalf("re-UpsertCard failed: %v", err)
	}

	fetched, err := st.GetCard(ctx, "base1-4")
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected cached card")
	}
	if fetched.Name != "Charizard" || fetched.SetName != "Base" || fetched.Number != "4" {
		t.Fatalf("unexpected card round-trip: %#v", fetched)
	}
	if fetched.Rarity != "Rare Holo 1st Edition" {
		t.Fatalf("expected last write to win, got rarity %q", fetched.Rarity)
	}
	if fetched.SetReleaseDate != "1999/01/09" {
		t.Fatalf("expected release date preserved, got %q", fetched.SetReleaseDate)
	}

	count, err := st.CountCards(ctx)
	if err != nil {
		t.Fatalf("CountCards failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 cached card, got %d", count)
	}
}

func TestPriceMaxAgeZeroDisablesReads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	market := 124.99
	snap := cards.PriceSnapshot{MarketUSD: &market, Sources: []string{"pokemontcg.io"}}
	if err := st.UpsertPrice(ctx, "base1-4", snap, ""); err != nil {
		t.Fatalf("UpsertPrice failed: %v", err)
	}

	fetched, err := st.GetPrice(ctx, "base1-4", 0)
	if err != nil {
		t.Fatalf("GetPrice failed: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected nil with zero max age, got %#v", fetched)
	}
}

func TestPriceFreshWithinMaxAge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	market := 124.99
	trend := 98.50
	snap := cards.PriceSnapshot{
		MarketUSD:       &market,
		TrendEUR:        &trend,
		UpdatedAtMarket: "2024/03/01",
		UpdatedAtTrend:  "2024-03-02",
		Sources:         []string{"pokemontcg.io"},
	}
	if err := st.UpsertPrice(ctx, "base1-4", snap, ""); err != nil {
		t.Fatalf("UpsertPrice failed: %v", err)
	}

	fetched, err := st.GetPrice(ctx, "base1-4", 24*time.Hour)
	if err != nil {
		t.Fatalf("GetPrice failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected fresh snapshot")
	}
	if fetched.MarketUSD == nil || *fetched.MarketUSD != 124.99 {
		t.Fatalf("expected market price round-trip, got %#v", fetched.MarketUSD)
	}
	if fetched.TrendEUR == nil || *fetched.TrendEUR != 98.50 {
		t.Fatalf("expected trend price round-trip, got %#v", fetched.TrendEUR)
	}
	if fetched.Avg30EUR != nil {
		t.Fatalf("expected absent avg30 to stay nil, got %v", *fetched.Avg30EUR)
	}
	if fetched.UpdatedAtMarket != "2024/03/01" || fetched.UpdatedAtTrend != "2024-03-02" {
		t.Fatalf("expected source timestamps preserved, got %q %q", fetched.UpdatedAtMarket, fetched.UpdatedAtTrend)
	}
	if len(fetched.Sources) != 1 || fetched.Sources[0] != "pokemontcg.io" {
		t.Fatalf("expected sources round-trip, got %#v", fetched.Sources)
	}
}

func TestPriceStaleBeyondMaxAge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	market := 10.0
	if err := st.UpsertPrice(ctx, "base1-58", cards.PriceSnapshot{MarketUSD: &market, Sources: []string{"pokemontcg.io"}}, ""); err != nil {
		t.Fatalf("UpsertPrice failed: %v", err)
	}

	// A nanosecond window has always elapsed by the time of the read.
	fetched, err := st.GetPrice(ctx, "base1-58", time.Nanosecond)
	if err != nil {
		t.Fatalf("GetPrice failed: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected stale snapshot to miss, got %#v", fetched)
	}

	latest, err := st.LatestPrice(ctx, "base1-58")
	if err != nil {
		t.Fatalf("LatestPrice failed: %v", err)
	}
	if latest == nil || latest.MarketUSD == nil || *latest.MarketUSD != 10.0 {
		t.Fatalf("expected LatestPrice to ignore age, got %#v", latest)
	}
}

func TestPriceEmptySourcesRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := st.UpsertPrice(ctx, "base1-4", cards.PriceSnapshot{Sources: []string{}}, ""); err != nil {
		t.Fatalf("UpsertPrice failed: %v", err)
	}

	fetched, err := st.GetPrice(ctx, "base1-4", 24*time.Hour)
	if err != nil {
		t.Fatalf("GetPrice failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected snapshot despite empty sources")
	}
	if fetched.Sources == nil || len(fetched.Sources) != 0 {
		t.Fatalf("expected empty sources list to survive, got %#v", fetched.Sources)
	}
	if fetched.HasPrice() {
		t.Fatal("expected no price figures")
	}
}

func TestPriceUpsertIsLastWriteWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := 10.0
	second := 12.5
	if err := st.UpsertPrice(ctx, "base1-4", cards.PriceSnapshot{MarketUSD: &first, Sources: []string{"pokemontcg.io"}}, ""); err != nil {
		t.Fatalf("UpsertPrice failed: %v", err)
	}
	if err := st.UpsertPrice(ctx, "base1-4", cards.PriceSnapshot{MarketUSD: &second, Sources: []string{"pokemontcg.io"}}, "pokemontcg.io"); err != nil {
		t.Fatalf("second UpsertPrice failed: %v", err)
	}

	fetched, err := st.GetPrice(ctx, "base1-4", 24*time.Hour)
	if err != nil {
		t.Fatalf("GetPrice failed: %v", err)
	}
	if fetched == nil || fetched.MarketUSD == nil || *fetched.MarketUSD != 12.5 {
		t.Fatalf("expected last write to win, got %#v", fetched)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewScan(t, st, "/scans/a.png", cards.Extraction{Name: "Abra"})

	health, err := st.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected readable database, got %#v", health)
	}
	if len(health.MissingTables) != 0 {
		t.Fatalf("expected all tables present, missing %v", health.MissingTables)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalScans != 1 {
		t.Fatalf("expected 1 scan counted, got %d", health.TotalScans)
	}
}
