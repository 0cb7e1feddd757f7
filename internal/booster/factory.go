package booster

import (
	"fmt"
	rand "math/rand/v2"
	"sort"

	"github.com/lox/packdraft/internal/cards"
)

// Booster is an ordered sequence of freshly minted unique cards. Immutable
// once produced; picks are state transitions of the owning draft state.
type Booster []*cards.UniqueCard

// Options controls booster generation.
type Options struct {
	// MaxDuplicates caps copies of the same card identifier per booster.
	// Zero means unlimited.
	MaxDuplicates int
	// ColorBalance guarantees at least one common of each pip color when the
	// pool can supply one. Best effort, never an error.
	ColorBalance bool
	// FoilRate is the probability that one non-special card is replaced with
	// a foil duplicate draw.
	FoilRate float64
	// WithReplacement leaves the pool untouched across draws.
	WithReplacement bool
}

// How many resample attempts a slot draw gets before the pool is declared
// exhausted for the duplicate constraint.
const maxDrawRetries = 20

// Factory produces boosters from a pool according to per-slot layout rules.
type Factory struct {
	pool *cards.Pool
	opts Options
}

// NewFactory creates a booster factory over a pool.
func NewFactory(pool *cards.Pool, opts Options) *Factory {
	return &Factory{pool: pool, opts: opts}
}

// Pool returns the factory's backing pool.
func (f *Factory) Pool() *cards.Pool {
	return f.pool
}

// Generate produces one booster for the given layout. Slot order within the
// booster follows rarity convention (rare slots first) falling back to
// reverse-sorted slot names so output is deterministic for a given RNG.
func (f *Factory) Generate(rng *rand.Rand, layout cards.Layout) (Booster, error) {
	slotNames := sortedSlotNames(layout)

	duplicates := make(map[cards.CardID]int)
	bySlot := make(map[string][]*cards.UniqueCard, len(slotNames))

	for _, slot := range slotNames {
		count := layout.Slots[slot]
		for range count {
			card, err := f.drawWithDuplicateCap(rng, slot, duplicates)
			if err != nil {
				return nil, err
			}
			duplicates[card.ID]++
			bySlot[slot] = append(bySlot[slot], cards.Mint(card))
		}
	}

	if f.opts.ColorBalance {
		f.balanceColors(rng, bySlot, layout)
	}

	if f.opts.FoilRate > 0 && rng.Float64() < f.opts.FoilRate {
		f.insertFoil(rng, bySlot, slotNames)
	}

	var out Booster
	for _, slot := range slotNames {
		out = append(out, bySlot[slot]...)
	}
	return out, nil
}

func (f *Factory) drawWithDuplicateCap(rng *rand.Rand, slot string, duplicates map[cards.CardID]int) (cards.Card, error) {
	for attempt := 0; attempt < maxDrawRetries; attempt++ {
		card, err := f.pool.Draw(rng, slot, f.opts.WithReplacement)
		if err != nil {
			return cards.Card{}, fmt.Errorf("generating booster: %w", err)
		}
		if f.opts.MaxDuplicates <= 0 || duplicates[card.ID] < f.opts.MaxDuplicates {
			return card, nil
		}
		// Collision: put the copy back and resample.
		if !f.opts.WithReplacement {
			f.pool.Return(slot, card.ID)
		}
	}
	return cards.Card{}, fmt.Errorf("slot %q: cannot satisfy max duplicates %d: %w", slot, f.opts.MaxDuplicates, cards.ErrPoolExhausted)
}

// balanceColors post-processes the common slot so every pip color with
// available commons is represented at least once.
func (f *Factory) balanceColors(rng *rand.Rand, bySlot map[string][]*cards.UniqueCard, layout cards.Layout) {
	slot := commonSlotName(layout)
	commons := bySlot[slot]
	if len(commons) == 0 {
		return
	}

	for _, color := range cards.Colors {
		if slotHasColor(commons, color) {
			continue
		}

		replacement, err := f.pool.DrawWhere(rng, slot, func(c cards.Card) bool {
			return c.HasColor(color)
		}, f.opts.WithReplacement)
		if err != nil {
			continue // best effort: the pool has no common of this color
		}

		idx := swappableIndex(rng, commons)
		if !f.opts.WithReplacement {
			f.pool.Return(slot, commons[idx].ID)
		}
		commons[idx] = cards.Mint(replacement)
	}
}

// insertFoil replaces one card in a random non-special slot with a
// foil-flagged duplicate draw from the pool. The foil is a bonus copy: its
// draw never consumes pool stock, and without replacement the displaced card
// is returned to circulation, so each foiled pack leaves the pool one card
// richer than a plain pack of the same layout.
func (f *Factory) insertFoil(rng *rand.Rand, bySlot map[string][]*cards.UniqueCard, slotNames []string) {
	var eligible []string
	for _, slot := range slotNames {
		if slot != string(cards.RaritySpecial) && len(bySlot[slot]) > 0 {
			eligible = append(eligible, slot)
		}
	}
	if len(eligible) == 0 {
		return
	}

	slot := eligible[rng.IntN(len(eligible))]
	card, err := f.pool.Draw(rng, slot, true) // foil is independent of pool bookkeeping
	if err != nil {
		return
	}

	idx := rng.IntN(len(bySlot[slot]))
	if !f.opts.WithReplacement {
		f.pool.Return(slot, bySlot[slot][idx].ID)
	}
	bySlot[slot][idx] = cards.MintFoil(card)
}

// swappableIndex prefers to evict a card whose color is already represented
// more than once, so satisfied colors stay satisfied.
func swappableIndex(rng *rand.Rand, slot []*cards.UniqueCard) int {
	colorCounts := make(map[cards.Color]int)
	for _, uc := range slot {
		for _, c := range uc.Colors {
			colorCounts[c]++
		}
	}

	var candidates []int
	for i, uc := range slot {
		redundant := len(uc.Colors) == 0
		if !redundant {
			redundant = true
			for _, c := range uc.Colors {
				if colorCounts[c] < 2 {
					redundant = false
					break
				}
			}
		}
		if redundant {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return rng.IntN(len(slot))
	}
	return candidates[rng.IntN(len(candidates))]
}

func slotHasColor(slot []*cards.UniqueCard, color cards.Color) bool {
	for _, uc := range slot {
		if uc.HasColor(color) {
			return true
		}
	}
	return false
}

// commonSlotName returns the slot color balancing applies to: the common
// rarity slot when declared, otherwise the largest slot in the layout.
func commonSlotName(layout cards.Layout) string {
	if _, ok := layout.Slots[string(cards.RarityCommon)]; ok {
		return string(cards.RarityCommon)
	}
	best, bestCount := "", -1
	for name, count := range layout.Slots {
		if count > bestCount || (count == bestCount && name < best) {
			best, bestCount = name, count
		}
	}
	return best
}

// rarityOrder places headline slots first in the assembled pack.
var rarityOrder = map[string]int{
	string(cards.RaritySpecial):  0,
	string(cards.RarityMythic):   1,
	string(cards.RarityRare):     2,
	string(cards.RarityUncommon): 3,
	string(cards.RarityCommon):   4,
}

func sortedSlotNames(layout cards.Layout) []string {
	names := make([]string, 0, len(layout.Slots))
	for name := range layout.Slots {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := rarityOrder[names[i]]
		rj, jok := rarityOrder[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return names[i] < names[j]
		}
	})
	return names
}
