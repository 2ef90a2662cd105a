package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardscan/internal/cards"
	"cardscan/internal/services"
)

// ErrScanNotFound marks a status update that named a scan id with no row
// behind it. Callers must see the failure rather than a silent no-op.
var ErrScanNotFound = errors.New("scan not found")

const scanColumns = "id, created_at, updated_at, image_path, extracted_json, card_id, status, note"

// InsertScan appends a new scan attempt with status NEW and returns the
// stored record.
func (s *Store) InsertScan(ctx context.Context, imagePath string, extraction cards.Extraction) (*ScanRecord, error) {
	extractedJSON, err := json.Marshal(extraction)
	if err != nil {
		return nil, fmt.Errorf("marshal extraction: %w", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO scans (created_at, updated_at, image_path, extracted_json, status)
         VALUES (?, ?, ?, ?, ?)`,
		timestamp,
		timestamp,
		nullableString(imagePath),
		string(extractedJSON),
		ScanStatusNew,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetScan(ctx, id)
}

// GetScan fetches a scan attempt by identifier, nil when unknown.
func (s *Store) GetScan(ctx context.Context, id int64) (*ScanRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)
	record, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return record, nil
}

// UpdateScanStatus transitions a scan and records an optional reason note.
// Updating an unknown scan id fails with ErrScanNotFound.
func (s *Store) UpdateScanStatus(ctx context.Context, id int64, status ScanStatus, note string) error {
	if _, ok := scanStatusSet[status]; !ok {
		return fmt.Errorf("unknown scan status %q", status)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE scans SET status = ?, note = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(note),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update scan status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update scan status", fmt.Sprintf("scan %d", id), ErrScanNotFound)
	}
	return nil
}

// MarkScanCompleted transitions a scan to COMPLETED and pins the card it
// resolved to. Unknown ids fail with ErrScanNotFound.
func (s *Store) MarkScanCompleted(ctx context.Context, id int64, cardID string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE scans SET status = ?, card_id = ?, note = NULL, updated_at = ? WHERE id = ?`,
		ScanStatusCompleted,
		nullableString(cardID),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("complete scan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "complete scan", fmt.Sprintf("scan %d", id), ErrScanNotFound)
	}
	return nil
}

// ScansByStatus returns scans in a given status, oldest first.
func (s *Store) ScansByStatus(ctx context.Context, status ScanStatus) ([]*ScanRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+scanColumns+` FROM scans WHERE status = ? ORDER BY created_at, id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("query scans by status: %w", err)
	}
	defer rows.Close()

	var records []*ScanRecord
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListScans returns scans filtered by status set, or every scan when no
// status is provided, ordered oldest first.
func (s *Store) ListScans(ctx context.Context, statuses ...ScanStatus) ([]*ScanRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + scanColumns + ` FROM scans`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var records []*ScanRecord
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// RetryErrored moves errored scans back to NEW for reprocessing. With no ids
// every errored scan is retried; otherwise only the named ones.
func (s *Store) RetryErrored(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE scans SET status = ?, note = NULL, card_id = NULL, updated_at = ? WHERE status = ?`,
			ScanStatusNew,
			timestamp,
			ScanStatusError,
		)
		if err != nil {
			return 0, fmt.Errorf("retry errored scans: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, ScanStatusNew, timestamp, ScanStatusError)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE scans SET status = ?, note = NULL, card_id = NULL, updated_at = ?
        WHERE status = ? AND id IN (` + placeholders + `)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected scans: %w", err)
	}
	return res.RowsAffected()
}

// ScanStats returns a count of scans grouped by status.
func (s *Store) ScanStats(ctx context.Context) (map[ScanStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM scans GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[ScanStatus]int)
	for rows.Next() {
		var status ScanStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanRow(scanner interface{ Scan(dest ...any) error }) (*ScanRecord, error) {
	var (
		id           int64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		imagePath    sql.NullString
		extractedRaw sql.NullString
		cardID       sql.NullString
		statusStr    string
		note         sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&createdRaw,
		&updatedRaw,
		&imagePath,
		&extractedRaw,
		&cardID,
		&statusStr,
		&note,
	); err != nil {
		return nil, err
	}

	record := &ScanRecord{
		ID:        id,
		ImagePath: imagePath.String,
		CardID:    cardID.String,
		Status:    ScanStatus(statusStr),
		Note:      note.String,
	}
	if extractedRaw.Valid && extractedRaw.String != "" {
		if err := json.Unmarshal([]byte(extractedRaw.String), &record.Extraction); err != nil {
			return nil, fmt.Errorf("decode extraction: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}
