package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/lox/packdraft/cmd/packdraft/shared"
	"github.com/lox/packdraft/internal/cards"
)

// ValidateListCmd parses a custom card list against a card database and
// reports its slots and layouts.
type ValidateListCmd struct {
	List         string `kong:"arg='',help='Custom card list file'"`
	CardDatabase string `kong:"default='cards.json',help='Card database JSON file'"`
	Debug        bool   `kong:"help='Enable debug logging'"`
}

func (c *ValidateListCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	db, err := cards.LoadDatabase(c.CardDatabase)
	if err != nil {
		return err
	}

	text, err := os.ReadFile(c.List)
	if err != nil {
		return err
	}

	list, err := cards.ParseCardList(db, string(text))
	if err != nil {
		return err
	}

	logger.Info("Card list is valid", "cards", list.CardCount(), "slots", len(list.Slots))

	slotNames := make([]string, 0, len(list.Slots))
	for name := range list.Slots {
		slotNames = append(slotNames, name)
	}
	sort.Strings(slotNames)
	for _, name := range slotNames {
		total := 0
		for _, count := range list.Slots[name] {
			total += count
		}
		fmt.Printf("slot %-20s %4d cards (%d distinct)\n", name, total, len(list.Slots[name]))
	}

	layoutNames := make([]string, 0, len(list.Layouts))
	for name := range list.Layouts {
		layoutNames = append(layoutNames, name)
	}
	sort.Strings(layoutNames)
	for _, name := range layoutNames {
		layout := list.Layouts[name]
		fmt.Printf("layout %-18s weight %d, %d cards per pack\n", name, layout.Weight, layout.CardCount())
	}

	return nil
}
