package cards

// Layout is a named pack recipe: a mapping from slot name to card count plus a
// selection weight for weighted-random scheduling.
type Layout struct {
	Name   string         `json:"name"`
	Weight int            `json:"weight"`
	Slots  map[string]int `json:"slots"`
}

// CardCount returns the total number of cards a pack built from this layout
// holds.
func (l Layout) CardCount() int {
	total := 0
	for _, count := range l.Slots {
		total += count
	}
	return total
}

// ListSettings carries pack-generation settings declared inside a custom card
// list.
type ListSettings struct {
	Name            string `json:"name,omitempty"`
	WithReplacement bool   `json:"withReplacement,omitempty"`
	ShowSlots       bool   `json:"showSlots,omitempty"`
}

// CustomCardList is the validated output of the list parser: named slots of
// card counts, optional named layouts, and list-level settings. The draft
// engine treats this as opaque pre-validated input.
type CustomCardList struct {
	Slots    map[string]map[CardID]int
	Layouts  map[string]Layout // nil when the list declares no layouts
	Settings ListSettings
}

// DefaultSlot is the slot name used for lists without slot headers.
const DefaultSlot = "default"

// CardCount returns the total number of card copies across all slots.
func (l *CustomCardList) CardCount() int {
	total := 0
	for _, slot := range l.Slots {
		for _, count := range slot {
			total += count
		}
	}
	return total
}
