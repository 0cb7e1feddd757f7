package server

import (
	"fmt"

	"github.com/lox/packdraft/internal/booster"
	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/draft"
	"github.com/lox/packdraft/internal/randutil"
)

// defaultPackSize is the pack size for custom lists that declare neither
// layouts nor sized slots.
const defaultPackSize = 15

// StartDraft builds the card pool, generates and distributes boosters, and
// hands the resulting state to a fresh coordinator. Bot seats are appended
// after the human roster.
func (s *Session) StartDraft(requester draft.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOwner(requester); err != nil {
		return err
	}
	if s.state != nil && !s.state.IsComplete() {
		return fmt.Errorf("a draft is already in progress")
	}

	players := append([]draft.UserID(nil), s.users...)
	for i := 0; i < s.opts.BotCount; i++ {
		seat := draft.UserID(fmt.Sprintf("Bot #%d", i+1))
		players = append(players, seat)
	}

	if s.opts.DraftType != "sealed" && len(players) < 2 {
		return fmt.Errorf("at least two seats are required to draft")
	}
	if s.opts.DraftType == "winston" && len(players) != 2 {
		return fmt.Errorf("winston drafts take exactly two seats")
	}

	state, err := s.buildState(players)
	if err != nil {
		return err
	}

	for i := len(s.users); i < len(players); i++ {
		s.ledger.MarkBot(players[i])
	}

	s.state = state
	s.coord = newCoordinator(s, state, s.oracle)
	s.logger.Info("draft started", "type", state.Type(), "players", len(players))
	s.coord.Start()
	return nil
}

func (s *Session) buildState(players []draft.UserID) (draft.State, error) {
	switch s.opts.DraftType {
	case "regular":
		queues, err := s.generateQueues(len(players))
		if err != nil {
			return nil, err
		}
		return draft.NewRegular(players, queues, draft.RegularOptions{
			PickedCardsPerRound:     s.opts.PickedCardsPerRound,
			BurnedCardsPerRound:     s.opts.BurnedCardsPerRound,
			DiscardRemainingCardsAt: s.opts.DiscardRemainingCardsAt,
		}), nil

	case "sealed":
		queues, err := s.generateQueues(len(players))
		if err != nil {
			return nil, err
		}
		return draft.NewSealed(players, queues), nil

	case "winston":
		queues, err := s.generateQueues(len(players))
		if err != nil {
			return nil, err
		}
		var stack []*cards.UniqueCard
		for _, queue := range queues {
			for _, b := range queue {
				stack = append(stack, b...)
			}
		}
		randutil.Shuffle(s.rng, stack)
		return draft.NewWinston(players, stack), nil

	case "rotisserie":
		pool, _, _, err := s.buildPool()
		if err != nil {
			return nil, err
		}
		flat := pool.FlattenShuffled(s.rng)
		if len(flat) == 0 {
			return nil, fmt.Errorf("no cards available for the configured pool")
		}
		shared := make([]*cards.UniqueCard, len(flat))
		for i, card := range flat {
			shared[i] = cards.Mint(card)
		}
		return draft.NewRotisserie(players, shared, s.opts.CardsPerPlayer), nil

	default:
		return nil, fmt.Errorf("unknown draft type %q", s.opts.DraftType)
	}
}

// generateQueues produces boosters indexed [player][position] and applies the
// configured distribution mode.
func (s *Session) generateQueues(nPlayers int) ([][]booster.Booster, error) {
	var (
		boosters [][]booster.Booster
		err      error
	)
	if s.opts.CustomCardList == nil && len(s.opts.CustomBoosters) > 0 {
		boosters, err = s.generatePerSetQueues(nPlayers)
	} else {
		boosters, err = s.generatePooledQueues(nPlayers)
	}
	if err != nil {
		return nil, err
	}

	if err := booster.Distribute(s.rng, boosters, s.opts.DistributionMode); err != nil {
		return nil, err
	}
	return boosters, nil
}

// generatePooledQueues draws every booster from one shared pool: the custom
// card list when set, otherwise the restricted set pool.
func (s *Session) generatePooledQueues(nPlayers int) ([][]booster.Booster, error) {
	pool, layouts, withReplacement, err := s.buildPool()
	if err != nil {
		return nil, err
	}

	scheduler, err := booster.NewScheduler(layouts)
	if err != nil {
		return nil, err
	}
	mode := booster.ModeWeighted
	if len(layouts) == 1 {
		mode = booster.ModeFixed
	}

	perPlayer := s.opts.BoostersPerPlayer
	schedule, err := scheduler.Schedule(s.rng, nPlayers*perPlayer, mode, nil)
	if err != nil {
		return nil, err
	}
	if !withReplacement {
		if err := booster.ValidateCapacity(pool, schedule, 1); err != nil {
			return nil, err
		}
	}

	factory := booster.NewFactory(pool, s.factoryOptions(withReplacement))
	boosters := make([][]booster.Booster, nPlayers)
	idx := 0
	for p := range boosters {
		boosters[p] = make([]booster.Booster, perPlayer)
		for q := range boosters[p] {
			b, err := factory.Generate(s.rng, schedule[idx])
			if err != nil {
				return nil, err
			}
			boosters[p][q] = b
			idx++
		}
	}
	return boosters, nil
}

// generatePerSetQueues honors a per-position custom booster list: each
// position draws from the pool of its resolved set, pools shared across every
// booster of the same set.
func (s *Session) generatePerSetQueues(nPlayers int) ([][]booster.Booster, error) {
	available := s.opts.SetRestriction
	if len(available) == 0 {
		available = s.db.Sets()
	}
	resolved, err := booster.ResolveSetTokens(s.rng, s.opts.CustomBoosters, nPlayers, available)
	if err != nil {
		return nil, err
	}

	factories := make(map[string]*booster.Factory)
	schedulers := make(map[string]*booster.Scheduler)

	boosters := make([][]booster.Booster, nPlayers)
	for p := range boosters {
		boosters[p] = make([]booster.Booster, len(s.opts.CustomBoosters))
		for q := range boosters[p] {
			set := resolved[p][q]
			factory, ok := factories[set]
			if !ok {
				pool := cards.PoolFromSets(s.db, []string{set})
				factory = booster.NewFactory(pool, s.factoryOptions(false))
				factories[set] = factory

				scheduler, err := booster.NewScheduler(defaultLayouts(pool))
				if err != nil {
					return nil, fmt.Errorf("set %q: %w", set, err)
				}
				schedulers[set] = scheduler
			}

			schedule, err := schedulers[set].Schedule(s.rng, 1, booster.ModeWeighted, nil)
			if err != nil {
				return nil, err
			}
			b, err := factory.Generate(s.rng, schedule[0])
			if err != nil {
				return nil, fmt.Errorf("set %q: %w", set, err)
			}
			boosters[p][q] = b
		}
	}
	return boosters, nil
}

// buildPool returns the drawing pool, its layouts, and whether draws replace.
func (s *Session) buildPool() (*cards.Pool, map[string]cards.Layout, bool, error) {
	if list := s.opts.CustomCardList; list != nil {
		pool := cards.NewPool(s.db)
		for name, counts := range list.Slots {
			pool.AddSlot(name, counts)
		}

		layouts := list.Layouts
		if layouts == nil {
			layouts = map[string]cards.Layout{
				cards.DefaultSlot: {
					Name:   cards.DefaultSlot,
					Weight: 1,
					Slots:  map[string]int{cards.DefaultSlot: defaultPackSize},
				},
			}
		}
		return pool, layouts, list.Settings.WithReplacement, nil
	}

	pool := cards.PoolFromSets(s.db, s.opts.SetRestriction)
	return pool, defaultLayouts(pool), false, nil
}

func (s *Session) factoryOptions(withReplacement bool) booster.Options {
	return booster.Options{
		MaxDuplicates:   s.opts.MaxDuplicates,
		ColorBalance:    s.opts.ColorBalance,
		FoilRate:        s.opts.FoilRate,
		WithReplacement: withReplacement,
	}
}

// defaultLayouts is the stock 15-card pack recipe. The mythic variant only
// joins the rotation when the pool actually stocks mythics, at one pack in
// eight.
func defaultLayouts(pool *cards.Pool) map[string]cards.Layout {
	layouts := map[string]cards.Layout{
		"rare": {
			Name:   "rare",
			Weight: 7,
			Slots: map[string]int{
				string(cards.RarityRare):     1,
				string(cards.RarityUncommon): 3,
				string(cards.RarityCommon):   11,
			},
		},
	}
	if pool.Remaining(string(cards.RarityMythic)) > 0 {
		layouts["mythic"] = cards.Layout{
			Name:   "mythic",
			Weight: 1,
			Slots: map[string]int{
				string(cards.RarityMythic):   1,
				string(cards.RarityUncommon): 3,
				string(cards.RarityCommon):   11,
			},
		}
	}
	return layouts
}
