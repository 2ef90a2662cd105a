package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardscan/internal/cards"
)

const priceColumns = "market_usd, trend_eur, avg30_eur, updated_at_market, updated_at_trend, sources_json, updated_at"

// DefaultPriceSource labels snapshots extracted from the card catalog's own
// pricing blocks.
const DefaultPriceSource = "pokemontcg.io"

// UpsertPrice records a price snapshot for a card under a provenance source.
// Rows are keyed by (card_id, source); rewriting the same key is
// last-write-wins with a fresh cache timestamp. An empty source falls back to
// DefaultPriceSource.
func (s *Store) UpsertPrice(ctx context.Context, cardID string, snap cards.PriceSnapshot, source string) error {
	if cardID == "" {
		return errors.New("card id is empty")
	}
	if source == "" {
		source = DefaultPriceSource
	}
	sourcesJSON, err := json.Marshal(snap.Sources)
	if err != nil {
		return fmt.Errorf("marshal price sources: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO prices (
            card_id, source, updated_at, market_usd, trend_eur, avg30_eur,
            updated_at_market, updated_at_trend, sources_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(card_id, source) DO UPDATE SET
            updated_at = excluded.updated_at,
            market_usd = excluded.market_usd,
            trend_eur = excluded.trend_eur,
            avg30_eur = excluded.avg30_eur,
            updated_at_market = excluded.updated_at_market,
            updated_at_trend = excluded.updated_at_trend,
            sources_json = excluded.sources_json`,
		cardID,
		source,
		now,
		nullableFloat(snap.MarketUSD),
		nullableFloat(snap.TrendEUR),
		nullableFloat(snap.Avg30EUR),
		nullableString(snap.UpdatedAtMarket),
		nullableString(snap.UpdatedAtTrend),
		string(sourcesJSON),
	); err != nil {
		return fmt.Errorf("upsert price: %w", err)
	}
	return nil
}

// GetPrice returns the freshest cached snapshot for a card when it was
// written strictly within maxAge. A stale or missing snapshot returns
// (nil, nil); maxAge <= 0 disables cache reads entirely.
func (s *Store) GetPrice(ctx context.Context, cardID string, maxAge time.Duration) (*cards.PriceSnapshot, error) {
	if maxAge <= 0 {
		return nil, nil
	}
	snap, writtenAt, err := s.latestPrice(ctx, cardID)
	if err != nil || snap == nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	if !writtenAt.After(cutoff) {
		return nil, nil
	}
	return snap, nil
}

// LatestPrice returns the freshest cached snapshot for a card regardless of
// age, or (nil, nil) when none was ever recorded.
func (s *Store) LatestPrice(ctx context.Context, cardID string) (*cards.PriceSnapshot, error) {
	snap, _, err := s.latestPrice(ctx, cardID)
	return snap, err
}

func (s *Store) latestPrice(ctx context.Context, cardID string) (*cards.PriceSnapshot, time.Time, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+priceColumns+` FROM prices WHERE card_id = ? ORDER BY updated_at DESC LIMIT 1`,
		cardID,
	)
	var (
		marketUSD     sql.NullFloat64
		trendEUR      sql.NullFloat64
		avg30EUR      sql.NullFloat64
		updatedMarket sql.NullString
		updatedTrend  sql.NullString
		sourcesRaw    sql.NullString
		updatedRaw    string
	)
	err := row.Scan(&marketUSD, &trendEUR, &avg30EUR, &updatedMarket, &updatedTrend, &sourcesRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get price: %w", err)
	}

	snap := &cards.PriceSnapshot{
		UpdatedAtMarket: updatedMarket.String,
		UpdatedAtTrend:  updatedTrend.String,
	}
	if marketUSD.Valid {
		v := marketUSD.Float64
		snap.MarketUSD = &v
	}
	if trendEUR.Valid {
		v := trendEUR.Float64
		snap.TrendEUR = &v
	}
	if avg30EUR.Valid {
		v := avg30EUR.Float64
		snap.Avg30EUR = &v
	}
	if sourcesRaw.Valid && sourcesRaw.String != "" {
		if err := json.Unmarshal([]byte(sourcesRaw.String), &snap.Sources); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode price sources: %w", err)
		}
	}

	writtenAt, err := parseTimeString(updatedRaw)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse price timestamp: %w", err)
	}
	return snap, writtenAt, nil
}
