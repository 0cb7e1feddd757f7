package cards

import "sync/atomic"

// CardID identifies a printing in the card database.
type CardID string

// Rarity buckets used for booster slot grouping.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
	RarityMythic   Rarity = "mythic"
	RaritySpecial  Rarity = "special"
)

// Color is a single colored pip.
type Color string

const (
	White Color = "W"
	Blue  Color = "U"
	Black Color = "B"
	Red   Color = "R"
	Green Color = "G"
)

// Colors lists the five pip colors in canonical order.
var Colors = []Color{White, Blue, Black, Red, Green}

// Card is an immutable record from the card database. Never mutated after load.
type Card struct {
	ID              CardID  `json:"id"`
	Name            string  `json:"name"`
	Set             string  `json:"set"`
	CollectorNumber string  `json:"collector_number"`
	Rarity          Rarity  `json:"rarity"`
	Colors          []Color `json:"colors"`
	ImageURI        string  `json:"image_uri,omitempty"`
}

// HasColor reports whether the card carries the given pip color.
func (c Card) HasColor(color Color) bool {
	for _, cc := range c.Colors {
		if cc == color {
			return true
		}
	}
	return false
}

// UniqueCard is a Card plus a per-instance identity and mutable annotations.
// A fresh instance is minted each time a card enters a booster; exactly one
// container references it at any time.
type UniqueCard struct {
	Card
	UniqueID int64  `json:"unique_id"`
	Foil     bool   `json:"foil,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

var uniqueIDCounter atomic.Int64

// Mint creates a new unique instance of a card.
func Mint(card Card) *UniqueCard {
	return &UniqueCard{Card: card, UniqueID: uniqueIDCounter.Add(1)}
}

// MintFoil creates a new foil-flagged unique instance of a card.
func MintFoil(card Card) *UniqueCard {
	uc := Mint(card)
	uc.Foil = true
	return uc
}
