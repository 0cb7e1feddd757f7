package cards

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Reprint sets that go by a different code in common deck list exports.
var setAliases = map[string]string{
	"dar":  "dom",
	"conf": "con",
}

// NormalizeSet lowercases a set code and applies known reprint aliases.
func NormalizeSet(set string) string {
	if alias, ok := setAliases[set]; ok {
		return alias
	}
	return set
}

// Database is an immutable snapshot of the card database. Lookups by ID, name
// and name-with-printings are all precomputed at load time.
type Database struct {
	cards              map[CardID]Card
	cardsByName        map[string]CardID
	cardVersionsByName map[string][]CardID
}

// NewDatabase builds a database from a list of card records. When a name has
// several printings, CardsByName points at the lowest collector number.
func NewDatabase(records []Card) *Database {
	db := &Database{
		cards:              make(map[CardID]Card, len(records)),
		cardsByName:        make(map[string]CardID),
		cardVersionsByName: make(map[string][]CardID),
	}

	for _, card := range records {
		db.cards[card.ID] = card
		db.cardVersionsByName[card.Name] = append(db.cardVersionsByName[card.Name], card.ID)
	}

	for name, versions := range db.cardVersionsByName {
		sort.Slice(versions, func(i, j int) bool {
			return collectorNumberLess(db.cards[versions[i]], db.cards[versions[j]])
		})
		db.cardsByName[name] = versions[0]
	}

	return db
}

// LoadDatabase reads a JSON card database file.
func LoadDatabase(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading card database: %w", err)
	}

	var records []Card
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing card database: %w", err)
	}

	return NewDatabase(records), nil
}

// GetCard returns the card record for an identifier.
func (db *Database) GetCard(id CardID) (Card, error) {
	card, ok := db.cards[id]
	if !ok {
		return Card{}, fmt.Errorf("unknown card id: %s", id)
	}
	return card, nil
}

// CardByName returns the preferred printing of a card name.
func (db *Database) CardByName(name string) (CardID, bool) {
	id, ok := db.cardsByName[name]
	return id, ok
}

// CardVersionsByName returns every printing of a card name, lowest collector
// number first.
func (db *Database) CardVersionsByName(name string) []CardID {
	return db.cardVersionsByName[name]
}

// CardsInSets returns all cards whose set code is in the given list. An empty
// list means no restriction.
func (db *Database) CardsInSets(sets []string) []Card {
	allowed := make(map[string]bool, len(sets))
	for _, set := range sets {
		allowed[NormalizeSet(set)] = true
	}

	var result []Card
	for _, card := range db.cards {
		if len(sets) == 0 || allowed[card.Set] {
			result = append(result, card)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Sets returns every set code present in the database, sorted.
func (db *Database) Sets() []string {
	seen := make(map[string]bool)
	for _, card := range db.cards {
		seen[card.Set] = true
	}
	sets := make([]string, 0, len(seen))
	for set := range seen {
		sets = append(sets, set)
	}
	sort.Strings(sets)
	return sets
}

// Size returns the number of cards in the database.
func (db *Database) Size() int {
	return len(db.cards)
}

func collectorNumberLess(a, b Card) bool {
	an, aerr := strconv.Atoi(a.CollectorNumber)
	bn, berr := strconv.Atoi(b.CollectorNumber)
	if aerr == nil && berr == nil && an != bn {
		return an < bn
	}
	if a.CollectorNumber != b.CollectorNumber {
		return a.CollectorNumber < b.CollectorNumber
	}
	return a.ID < b.ID
}
