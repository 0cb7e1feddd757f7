package cards

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
)

// ErrPoolExhausted signals that a slot has no cards left under the current
// constraints. Callers treat this as a generation capacity error.
var ErrPoolExhausted = errors.New("card pool exhausted")

// Pool is a drawable snapshot of card availability, grouped into named slots
// (rarity buckets for set drafts, custom slot names for cube lists). Draws
// without replacement decrement the slot; draws with replacement do not.
type Pool struct {
	db    *Database
	slots map[string][]CardID
}

// NewPool creates an empty pool backed by a database.
func NewPool(db *Database) *Pool {
	return &Pool{db: db, slots: make(map[string][]CardID)}
}

// PoolFromSets builds a pool from the database restricted to the given set
// codes, with one slot per rarity.
func PoolFromSets(db *Database, sets []string) *Pool {
	pool := NewPool(db)
	for _, card := range db.CardsInSets(sets) {
		slot := string(card.Rarity)
		pool.slots[slot] = append(pool.slots[slot], card.ID)
	}
	return pool
}

// AddSlot fills a named slot from a cardID->count mapping. IDs are inserted in
// sorted order so pools built from the same list are identical.
func (p *Pool) AddSlot(name string, counts map[CardID]int) {
	ids := make([]CardID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		for range counts[id] {
			p.slots[name] = append(p.slots[name], id)
		}
	}
}

// Remaining returns how many cards a slot can still supply without
// replacement.
func (p *Pool) Remaining(slot string) int {
	return len(p.slots[slot])
}

// HasSlot reports whether the pool declares the named slot.
func (p *Pool) HasSlot(slot string) bool {
	_, ok := p.slots[slot]
	return ok
}

// Slots returns the declared slot names in sorted order.
func (p *Pool) Slots() []string {
	names := make([]string, 0, len(p.slots))
	for name := range p.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Draw removes (or, with replacement, samples) one card from a slot.
func (p *Pool) Draw(rng *rand.Rand, slot string, withReplacement bool) (Card, error) {
	return p.DrawWhere(rng, slot, nil, withReplacement)
}

// DrawWhere draws one card from a slot matching pred (nil matches anything).
func (p *Pool) DrawWhere(rng *rand.Rand, slot string, pred func(Card) bool, withReplacement bool) (Card, error) {
	ids := p.slots[slot]
	if len(ids) == 0 {
		return Card{}, fmt.Errorf("slot %q: %w", slot, ErrPoolExhausted)
	}

	var idx int
	if pred == nil {
		idx = rng.IntN(len(ids))
	} else {
		var candidates []int
		for i := range ids {
			card, err := p.db.GetCard(ids[i])
			if err != nil {
				return Card{}, err
			}
			if pred(card) {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return Card{}, fmt.Errorf("slot %q has no matching cards: %w", slot, ErrPoolExhausted)
		}
		idx = candidates[rng.IntN(len(candidates))]
	}
	card, err := p.db.GetCard(ids[idx])
	if err != nil {
		return Card{}, err
	}

	if !withReplacement {
		ids[idx] = ids[len(ids)-1]
		p.slots[slot] = ids[:len(ids)-1]
	}
	return card, nil
}

// FlattenShuffled returns every card copy across all slots in shuffled order.
// The pool itself is left untouched; callers drawing from the result are
// responsible for their own bookkeeping.
func (p *Pool) FlattenShuffled(rng *rand.Rand) []Card {
	var out []Card
	for _, slot := range p.Slots() {
		for _, id := range p.slots[slot] {
			card, err := p.db.GetCard(id)
			if err != nil {
				continue
			}
			out = append(out, card)
		}
	}
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Return puts a card back into a slot. Used when color balancing swaps a
// drawn card back out.
func (p *Pool) Return(slot string, id CardID) {
	p.slots[slot] = append(p.slots[slot], id)
}

// Clone copies the pool so a generation attempt can be rolled back by
// discarding the clone.
func (p *Pool) Clone() *Pool {
	clone := NewPool(p.db)
	for name, ids := range p.slots {
		clone.slots[name] = append([]CardID(nil), ids...)
	}
	return clone
}

// Database returns the backing card database.
func (p *Pool) Database() *Database {
	return p.db
}
