package store

import (
	"strings"
	"time"

	"cardscan/internal/cards"
)

// ScanStatus represents the lifecycle of a scan attempt.
type ScanStatus string

const (
	ScanStatusNew       ScanStatus = "NEW"
	ScanStatusCompleted ScanStatus = "COMPLETED"
	ScanStatusSkipped   ScanStatus = "SKIPPED"
	ScanStatusNoMatch   ScanStatus = "NO_MATCH"
	ScanStatusError     ScanStatus = "ERROR"
)

var allScanStatuses = []ScanStatus{
	ScanStatusNew,
	ScanStatusCompleted,
	ScanStatusSkipped,
	ScanStatusNoMatch,
	ScanStatusError,
}

var scanStatusSet = func() map[ScanStatus]struct{} {
	set := make(map[ScanStatus]struct{}, len(allScanStatuses))
	for _, status := range allScanStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllScanStatuses returns the ordered list of known statuses.
func AllScanStatuses() []ScanStatus {
	cp := make([]ScanStatus, len(allScanStatuses))
	copy(cp, allScanStatuses)
	return cp
}

// ParseScanStatus converts a string into a known ScanStatus. Matching is
// case-insensitive; the canonical uppercase form is returned.
func ParseScanStatus(value string) (ScanStatus, bool) {
	normalized := ScanStatus(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := scanStatusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status ends a scan's lifecycle. Terminal
// scans are only reprocessed by an explicit retry, never by the batch loop.
func (s ScanStatus) IsTerminal() bool {
	switch s {
	case ScanStatusCompleted, ScanStatusSkipped, ScanStatusNoMatch, ScanStatusError:
		return true
	default:
		return false
	}
}

// ScanRecord is one capture attempt persisted in SQLite. Records are
// append-only: the pipeline rewrites status and note but never deletes rows.
type ScanRecord struct {
	ID         int64
	ImagePath  string
	Extraction cards.Extraction
	CardID     string
	Status     ScanStatus
	Note       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DatabaseHealth captures diagnostic information about the cache database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalScans       int
	TotalCards       int
	Error            string
}
