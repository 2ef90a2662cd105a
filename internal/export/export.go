// Package export writes completed scans to the fixed-header CSV consumed by
// collection tooling. Rows join each COMPLETED scan with its cached catalog
// record and latest price snapshot.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"cardscan/internal/cards"
	"cardscan/internal/config"
	"cardscan/internal/logging"
	"cardscan/internal/pricing"
	"cardscan/internal/store"
)

// Header is the fixed CSV column order. Downstream spreadsheets key on these
// names, so the order never changes.
var Header = []string{
	"timestamp_iso",
	"card_id",
	"name",
	"number",
	"set_name",
	"set_id",
	"rarity",
	"tcgplayer_market_usd",
	"cardmarket_trend_eur",
	"cardmarket_avg30_eur",
	"pricing_updatedAt_tcgplayer",
	"pricing_updatedAt_cardmarket",
	"source_image_path",
	"price_sources",
}

// Exporter renders completed scans as CSV rows.
type Exporter struct {
	store  *store.Store
	logger *slog.Logger
}

// New builds an exporter over the resolution cache.
func New(st *store.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		store:  st,
		logger: logging.NewComponentLogger(logger, "export"),
	}
}

// WriteCSV writes the header and one row per COMPLETED scan, oldest first,
// and returns the number of data rows written. Scans whose card record has
// dropped out of the cache are skipped with a warning rather than failing
// the whole export.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	scans, err := e.store.ScansByStatus(ctx, store.ScanStatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("list completed scans: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	rows := 0
	for _, scan := range scans {
		if scan.CardID == "" {
			e.logger.Warn("completed scan has no card id; skipping", logging.Int64("scan_id", scan.ID))
			continue
		}
		card, err := e.store.GetCard(ctx, scan.CardID)
		if err != nil {
			return rows, err
		}
		if card == nil {
			e.logger.Warn("card missing from cache; skipping scan",
				logging.Int64("scan_id", scan.ID),
				logging.String("card_id", scan.CardID),
			)
			continue
		}
		snap, err := e.store.LatestPrice(ctx, scan.CardID)
		if err != nil {
			return rows, err
		}
		if err := writer.Write(buildRow(scan, card, snap)); err != nil {
			return rows, fmt.Errorf("write csv row: %w", err)
		}
		rows++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, fmt.Errorf("flush csv: %w", err)
	}
	return rows, nil
}

func buildRow(scan *store.ScanRecord, card *cards.ResolvedCard, snap *cards.PriceSnapshot) []string {
	var marketUSD, trendEUR, avg30EUR, updatedMarket, updatedTrend string
	sources := "[]"
	if snap != nil {
		marketUSD = pricing.FormatAmount(snap.MarketUSD)
		trendEUR = pricing.FormatAmount(snap.TrendEUR)
		avg30EUR = pricing.FormatAmount(snap.Avg30EUR)
		updatedMarket = snap.UpdatedAtMarket
		updatedTrend = snap.UpdatedAtTrend
		if len(snap.Sources) > 0 {
			if encoded, err := json.Marshal(snap.Sources); err == nil {
				sources = string(encoded)
			}
		}
	}
	return []string{
		scan.UpdatedAt.UTC().Format(time.RFC3339),
		card.CardID,
		card.Name,
		card.Number,
		card.SetName,
		card.SetID,
		card.Rarity,
		marketUSD,
		trendEUR,
		avg30EUR,
		updatedMarket,
		updatedTrend,
		scan.ImagePath,
		sources,
	}
}

// DefaultPath returns the daily export target, cards_YYYYMMDD.csv under the
// configured export directory.
func DefaultPath(cfg *config.Config, now time.Time) string {
	return filepath.Join(cfg.Paths.ExportDir, fmt.Sprintf("cards_%s.csv", now.Format("20060102")))
}
