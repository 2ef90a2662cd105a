// Package pricing maps raw catalog pricing blocks into price snapshots.
package pricing

import (
	"encoding/json"
	"fmt"

	"cardscan/internal/cards"
)

// Source names the pricing feed every extracted snapshot is attributed to.
const Source = "pokemontcg.io"

// marketVariants is the preference order for the TCGPlayer market figure.
var marketVariants = [...]string{"normal", "holofoil", "reverseHolofoil"}

type tcgplayerBlock struct {
	UpdatedAt string                         `json:"updatedAt"`
	Prices    map[string]map[string]*float64 `json:"prices"`
}

type cardmarketBlock struct {
	UpdatedAt string              `json:"updatedAt"`
	Prices    map[string]*float64 `json:"prices"`
}

// Extract maps a catalog record's raw pricing blocks into a snapshot. A
// missing or malformed block contributes nothing; extraction never fails,
// a card without pricing simply yields an empty snapshot.
func Extract(card *cards.ResolvedCard) cards.PriceSnapshot {
	snapshot := cards.PriceSnapshot{Sources: []string{Source}}
	if card == nil {
		return snapshot
	}
	extractTCGPlayer(card.TCGPlayer, &snapshot)
	extractCardmarket(card.Cardmarket, &snapshot)
	return snapshot
}

func extractTCGPlayer(raw json.RawMessage, snapshot *cards.PriceSnapshot) {
	if len(raw) == 0 {
		return
	}
	var block tcgplayerBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return
	}
	// updatedAt is recorded even when no variant carries a market price.
	snapshot.UpdatedAtMarket = block.UpdatedAt
	for _, variant := range marketVariants {
		if market := block.Prices[variant]["market"]; market != nil {
			value := *market
			snapshot.MarketUSD = &value
			break
		}
	}
}

func extractCardmarket(raw json.RawMessage, snapshot *cards.PriceSnapshot) {
	if len(raw) == 0 {
		return
	}
	var block cardmarketBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return
	}
	snapshot.UpdatedAtTrend = block.UpdatedAt
	if trend := block.Prices["trendPrice"]; trend != nil {
		value := *trend
		snapshot.TrendEUR = &value
	}
	if avg := block.Prices["avg30"]; avg != nil {
		value := *avg
		snapshot.Avg30EUR = &value
	}
}

// FormatAmount renders a price figure with two decimal places, or an empty
// string when the source did not report one.
func FormatAmount(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *value)
}
