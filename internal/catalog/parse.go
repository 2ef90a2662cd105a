package catalog

import (
	"encoding/json"

	"cardscan/internal/cards"
)

// apiCard mirrors one raw card record from the catalog wire format.
type apiCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
	Rarity string `json:"rarity"`
	Set    struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		ReleaseDate string `json:"releaseDate"`
	} `json:"set"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	TCGPlayer  json.RawMessage `json:"tcgplayer"`
	Cardmarket json.RawMessage `json:"cardmarket"`
}

type searchResponse struct {
	Data []apiCard `json:"data"`
}

type cardResponse struct {
	Data *apiCard `json:"data"`
}

// toResolved converts a raw record, or returns nil when the record is
// unusable (missing identifier or name).
func toResolved(raw apiCard) *cards.ResolvedCard {
	if raw.ID == "" || raw.Name == "" {
		return nil
	}
	return &cards.ResolvedCard{
		CardID:         raw.ID,
		Name:           raw.Name,
		Number:         raw.Number,
		SetID:          raw.Set.ID,
		SetName:        raw.Set.Name,
		Rarity:         raw.Rarity,
		SetReleaseDate: raw.Set.ReleaseDate,
		ImageSmall:     raw.Images.Small,
		ImageLarge:     raw.Images.Large,
		TCGPlayer:      raw.TCGPlayer,
		Cardmarket:     raw.Cardmarket,
	}
}

func toResolvedList(raws []apiCard) []*cards.ResolvedCard {
	resolved := make([]*cards.ResolvedCard, 0, len(raws))
	for _, raw := range raws {
		if card := toResolved(raw); card != nil {
			resolved = append(resolved, card)
		}
	}
	return resolved
}
