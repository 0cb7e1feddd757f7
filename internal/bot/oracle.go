// Package bot provides the pick decision oracle used for bot seats. The
// oracle may be a remote scoring service; implementations here are local.
// Failures always degrade to a uniform-random legal choice rather than
// blocking the draft.
package bot

import (
	"context"
	"errors"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/packdraft/internal/booster"
	"github.com/lox/packdraft/internal/cards"
)

// ErrEmptyBooster is returned when there is nothing to choose from.
var ErrEmptyBooster = errors.New("empty booster")

// Oracle chooses a card index from a booster given the seat's pick history.
type Oracle interface {
	Choose(ctx context.Context, b booster.Booster, history []cards.CardID) (int, error)
}

// RandomOracle picks uniformly at random. Also the fallback of last resort.
type RandomOracle struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomOracle creates a uniform-random oracle.
func NewRandomOracle(rng *rand.Rand) *RandomOracle {
	return &RandomOracle{rng: rng}
}

func (o *RandomOracle) Choose(_ context.Context, b booster.Booster, _ []cards.CardID) (int, error) {
	if len(b) == 0 {
		return 0, ErrEmptyBooster
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.IntN(len(b)), nil
}

// Rarity preference for the greedy oracle, highest first.
var rarityScore = map[cards.Rarity]int{
	cards.RarityMythic:   40,
	cards.RarityRare:     30,
	cards.RaritySpecial:  25,
	cards.RarityUncommon: 20,
	cards.RarityCommon:   10,
}

// GreedyOracle is a cheap local heuristic: prefer rarity, break ties toward
// colors the seat has already committed to.
type GreedyOracle struct {
	db     *cards.Database
	logger *log.Logger
}

// NewGreedyOracle creates the default local oracle.
func NewGreedyOracle(db *cards.Database, logger *log.Logger) *GreedyOracle {
	return &GreedyOracle{db: db, logger: logger.WithPrefix("bot")}
}

func (o *GreedyOracle) Choose(_ context.Context, b booster.Booster, history []cards.CardID) (int, error) {
	if len(b) == 0 {
		return 0, ErrEmptyBooster
	}

	committed := make(map[cards.Color]int)
	for _, id := range history {
		card, err := o.db.GetCard(id)
		if err != nil {
			continue
		}
		for _, c := range card.Colors {
			committed[c]++
		}
	}

	best, bestScore := 0, -1
	for i, uc := range b {
		score := rarityScore[uc.Rarity]
		for _, c := range uc.Colors {
			score += committed[c]
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, nil
}

// FallbackOracle wraps another oracle and recovers from its failures with a
// random legal choice. Oracle failures are never surfaced to players.
type FallbackOracle struct {
	inner  Oracle
	random *RandomOracle
	logger *log.Logger
}

// WithFallback decorates an oracle with random-choice failure recovery.
func WithFallback(inner Oracle, rng *rand.Rand, logger *log.Logger) *FallbackOracle {
	return &FallbackOracle{
		inner:  inner,
		random: NewRandomOracle(rng),
		logger: logger.WithPrefix("bot"),
	}
}

func (o *FallbackOracle) Choose(ctx context.Context, b booster.Booster, history []cards.CardID) (int, error) {
	idx, err := o.inner.Choose(ctx, b, history)
	if err == nil && idx >= 0 && idx < len(b) {
		return idx, nil
	}
	if err != nil {
		o.logger.Debug("oracle failed, falling back to random choice", "error", err)
	} else {
		o.logger.Debug("oracle returned out-of-range index, falling back to random choice", "index", idx)
	}
	return o.random.Choose(ctx, b, history)
}
