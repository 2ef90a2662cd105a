package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cardscan/internal/cards"
)

const cardColumns = "card_id, name, set_id, set_name, number, rarity, set_release_date, image_small, image_large"

// UpsertCard writes a catalog record into the cache. Re-upserting an existing
// card overwrites every descriptive column (last write wins).
func (s *Store) UpsertCard(ctx context.Context, card *cards.ResolvedCard) error {
	if card == nil {
		return errors.New("card is nil")
	}
	if strings.TrimSpace(card.CardID) == "" {
		return errors.New("card id is empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO cards (
            card_id, name, set_id, set_name, number, rarity,
            set_release_date, image_small, image_large, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(card_id) DO UPDATE SET
            name = excluded.name,
            set_id = excluded.set_id,
            set_name = excluded.set_name,
            number = excluded.number,
            rarity = excluded.rarity,
            set_release_date = excluded.set_release_date,
            image_small = excluded.image_small,
            image_large = excluded.image_large,
            updated_at = excluded.updated_at`,
		card.CardID,
		card.Name,
		nullableString(card.SetID),
		nullableString(card.SetName),
		nullableString(card.Number),
		nullableString(card.Rarity),
		nullableString(card.SetReleaseDate),
		nullableString(card.ImageSmall),
		nullableString(card.ImageLarge),
		now,
		now,
	); err != nil {
		return fmt.Errorf("upsert card: %w", err)
	}
	return nil
}

// GetCard fetches a cached catalog record by identifier. A miss returns
// (nil, nil). Cached records never carry the raw pricing blobs; the prices
// table holds the extracted snapshot instead.
func (s *Store) GetCard(ctx context.Context, cardID string) (*cards.ResolvedCard, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_id = ?`, cardID)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

// CountCards returns the number of cached catalog records.
func (s *Store) CountCards(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM cards`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return count, nil
}

func scanCard(scanner interface{ Scan(dest ...any) error }) (*cards.ResolvedCard, error) {
	var (
		cardID      string
		name        string
		setID       sql.NullString
		setName     sql.NullString
		number      sql.NullString
		rarity      sql.NullString
		releaseDate sql.NullString
		imageSmall  sql.NullString
		imageLarge  sql.NullString
	)
	if err := scanner.Scan(
		&cardID,
		&name,
		&setID,
		&setName,
		&number,
		&rarity,
		&releaseDate,
		&imageSmall,
		&imageLarge,
	); err != nil {
		return nil, err
	}
	return &cards.ResolvedCard{
		CardID:         cardID,
		Name:           name,
		SetID:          setID.String,
		SetName:        setName.String,
		Number:         number.String,
		Rarity:         rarity.String,
		SetReleaseDate: releaseDate.String,
		ImageSmall:     imageSmall.String,
		ImageLarge:     imageLarge.String,
	}, nil
}
