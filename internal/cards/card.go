// Package cards defines the data model shared by the matching, resolution,
// and caching layers: catalog records, price snapshots, and the evidence
// extracted from a physical scan.
package cards

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// releaseDateLayout is the catalog's set release date format ("2016/06/22").
const releaseDateLayout = "2006/01/02"

// ResolvedCard is the canonical catalog record for one card. It is
// constructed once from a catalog response and never mutated afterwards;
// CardID is the catalog-assigned unique identifier.
type ResolvedCard struct {
	CardID         string
	Name           string
	Number         string
	SetID          string
	SetName        string
	Rarity         string
	SetReleaseDate string
	ImageSmall     string
	ImageLarge     string

	// Raw pricing blocks carried through verbatim for price extraction.
	TCGPlayer  json.RawMessage
	Cardmarket json.RawMessage
}

// ReleaseDate parses the set release date. The second return is false when
// the catalog supplied no date or an unparseable one.
func (c ResolvedCard) ReleaseDate() (time.Time, bool) {
	if strings.TrimSpace(c.SetReleaseDate) == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(releaseDateLayout, c.SetReleaseDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PriceSnapshot is one source's price observation for one card. All price
// fields are optional; nil means the source did not report that figure,
// which is distinct from a reported zero.
type PriceSnapshot struct {
	MarketUSD       *float64
	TrendEUR        *float64
	Avg30EUR        *float64
	UpdatedAtMarket string
	UpdatedAtTrend  string
	Sources         []string
}

// HasPrice reports whether the snapshot carries at least one price figure.
func (p PriceSnapshot) HasPrice() bool {
	return p.MarketUSD != nil || p.TrendEUR != nil || p.Avg30EUR != nil
}

// CollectorNumber is the printed fraction on a card face, e.g. 4/102.
type CollectorNumber struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

func (n CollectorNumber) String() string {
	return fmt.Sprintf("%d/%d", n.Num, n.Den)
}

// ParseCollectorNumber accepts "4/102" style fractions as well as a bare
// numerator. Leading zeros are tolerated ("004/102").
func ParseCollectorNumber(raw string) (CollectorNumber, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CollectorNumber{}, fmt.Errorf("collector number is empty")
	}
	numPart := trimmed
	denPart := ""
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		numPart = strings.TrimSpace(trimmed[:idx])
		denPart = strings.TrimSpace(trimmed[idx+1:])
	}
	num, err := strconv.Atoi(numPart)
	if err != nil || num < 0 {
		return CollectorNumber{}, fmt.Errorf("invalid collector number %q", raw)
	}
	den := 0
	if denPart != "" {
		den, err = strconv.Atoi(denPart)
		if err != nil || den < 0 {
			return CollectorNumber{}, fmt.Errorf("invalid collector number %q", raw)
		}
	}
	return CollectorNumber{Num: num, Den: den}, nil
}

// Extraction is the OCR collaborator's output for one scan: an optional
// card name, an optional collector number, and the OCR's own confidence.
type Extraction struct {
	Name       string           `json:"name,omitempty"`
	Number     *CollectorNumber `json:"number,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
}

// HasName reports whether OCR produced a usable name.
func (e Extraction) HasName() bool {
	return strings.TrimSpace(e.Name) != ""
}

// HasNumber reports whether OCR produced a collector number.
func (e Extraction) HasNumber() bool {
	return e.Number != nil
}
