package booster

import (
	"fmt"
	rand "math/rand/v2"
	"sort"

	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/randutil"
)

// ScheduleMode selects how layouts are assigned to the boosters of one
// generation schedule.
type ScheduleMode string

const (
	// ModeFixed uses the single declared layout for every booster.
	ModeFixed ScheduleMode = "fixed"
	// ModeWeighted picks a layout per booster with probability proportional
	// to its weight.
	ModeWeighted ScheduleMode = "weighted"
	// ModePredetermined follows an explicit layout name sequence.
	ModePredetermined ScheduleMode = "predetermined"
)

// DistributionMode controls how generated boosters map onto players.
type DistributionMode string

const (
	// DistributionRegular gives player i booster i of the schedule.
	DistributionRegular DistributionMode = "regular"
	// DistributionShufflePlayerBoosters permutes each player's own sequence.
	DistributionShufflePlayerBoosters DistributionMode = "shufflePlayerBoosters"
	// DistributionShuffleBoosterPool reshuffles each round's boosters across
	// players. Changes who gets which pack, not pack contents.
	DistributionShuffleBoosterPool DistributionMode = "shuffleBoosterPool"
)

// ValidDistributionMode reports whether mode is one of the declared modes.
func ValidDistributionMode(mode DistributionMode) bool {
	switch mode {
	case DistributionRegular, DistributionShufflePlayerBoosters, DistributionShuffleBoosterPool:
		return true
	}
	return false
}

// Random set tokens accepted in custom booster lists.
const (
	TokenRandom       = "random"
	TokenRandomShared = "randomShared"
)

// Scheduler decides which layout each generated booster uses.
type Scheduler struct {
	layouts map[string]cards.Layout
}

// NewScheduler builds a scheduler over declared layouts. Layouts must be
// uniform in total card count across one schedule.
func NewScheduler(layouts map[string]cards.Layout) (*Scheduler, error) {
	if len(layouts) == 0 {
		return nil, fmt.Errorf("no layouts declared")
	}
	if err := ValidateLayouts(layouts); err != nil {
		return nil, err
	}
	return &Scheduler{layouts: layouts}, nil
}

// ValidateLayouts checks the uniform pack size invariant: every layout in one
// schedule sums to the same total card count.
func ValidateLayouts(layouts map[string]cards.Layout) error {
	expected := -1
	for _, name := range sortedLayoutNames(layouts) {
		count := layouts[name].CardCount()
		if expected == -1 {
			expected = count
			continue
		}
		if count != expected {
			return fmt.Errorf("layout %q holds %d cards, want %d: pack sizes must be uniform", name, count, expected)
		}
	}
	return nil
}

// Schedule returns the ordered sequence of layouts for n boosters.
// Predetermined names are validated against the declared layouts.
func (s *Scheduler) Schedule(rng *rand.Rand, n int, mode ScheduleMode, predetermined []string) ([]cards.Layout, error) {
	switch mode {
	case ModeFixed:
		names := sortedLayoutNames(s.layouts)
		layout := s.layouts[names[0]]
		schedule := make([]cards.Layout, n)
		for i := range schedule {
			schedule[i] = layout
		}
		return schedule, nil

	case ModeWeighted:
		names := sortedLayoutNames(s.layouts)
		total := 0
		for _, name := range names {
			weight := s.layouts[name].Weight
			if weight < 0 {
				return nil, fmt.Errorf("layout %q has negative weight %d", name, weight)
			}
			total += weight
		}
		if total == 0 {
			return nil, fmt.Errorf("layout weights sum to zero")
		}

		schedule := make([]cards.Layout, n)
		for i := range schedule {
			pick := rng.IntN(total)
			for _, name := range names {
				pick -= s.layouts[name].Weight
				if pick < 0 {
					schedule[i] = s.layouts[name]
					break
				}
			}
		}
		return schedule, nil

	case ModePredetermined:
		if len(predetermined) != n {
			return nil, fmt.Errorf("predetermined schedule names %d layouts, want %d", len(predetermined), n)
		}
		schedule := make([]cards.Layout, n)
		for i, name := range predetermined {
			layout, ok := s.layouts[name]
			if !ok {
				return nil, fmt.Errorf("predetermined schedule references unknown layout %q", name)
			}
			schedule[i] = layout
		}
		return schedule, nil

	default:
		return nil, fmt.Errorf("unknown schedule mode %q", mode)
	}
}

// ValidateCapacity verifies a pool can supply every slot of a schedule
// without replacement. Exhaustion fails fast with a capacity error instead of
// silently degrading to replacement.
func ValidateCapacity(pool *cards.Pool, schedule []cards.Layout, copies int) error {
	needed := make(map[string]int)
	for _, layout := range schedule {
		for slot, count := range layout.Slots {
			needed[slot] += count * copies
		}
	}

	slots := make([]string, 0, len(needed))
	for slot := range needed {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	for _, slot := range slots {
		if remaining := pool.Remaining(slot); remaining < needed[slot] {
			return fmt.Errorf("slot %q can supply %d cards but the schedule needs %d: %w",
				slot, remaining, needed[slot], cards.ErrPoolExhausted)
		}
	}
	return nil
}

// ResolveSetTokens turns a per-position custom booster list into a concrete
// set code per player and position. "random" draws independently per player;
// "randomShared" pins one choice for a position across all players.
func ResolveSetTokens(rng *rand.Rand, tokens []string, players int, available []string) ([][]string, error) {
	if len(available) == 0 {
		return nil, fmt.Errorf("no sets available to resolve random booster tokens")
	}

	resolved := make([][]string, players)
	for p := range resolved {
		resolved[p] = make([]string, len(tokens))
	}

	for pos, token := range tokens {
		switch token {
		case TokenRandomShared:
			set := available[rng.IntN(len(available))]
			for p := range resolved {
				resolved[p][pos] = set
			}
		case TokenRandom:
			for p := range resolved {
				resolved[p][pos] = available[rng.IntN(len(available))]
			}
		default:
			for p := range resolved {
				resolved[p][pos] = cards.NormalizeSet(token)
			}
		}
	}
	return resolved, nil
}

// Distribute reorders generated boosters (indexed [player][position])
// according to the distribution mode. Pack contents are never altered.
func Distribute(rng *rand.Rand, boosters [][]Booster, mode DistributionMode) error {
	switch mode {
	case DistributionRegular:
		return nil

	case DistributionShufflePlayerBoosters:
		for _, playerBoosters := range boosters {
			randutil.Shuffle(rng, playerBoosters)
		}
		return nil

	case DistributionShuffleBoosterPool:
		if len(boosters) == 0 {
			return nil
		}
		rounds := len(boosters[0])
		for pos := 0; pos < rounds; pos++ {
			round := make([]Booster, len(boosters))
			for p := range boosters {
				round[p] = boosters[p][pos]
			}
			randutil.Shuffle(rng, round)
			for p := range boosters {
				boosters[p][pos] = round[p]
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown distribution mode %q", mode)
	}
}

func sortedLayoutNames(layouts map[string]cards.Layout) []string {
	names := make([]string, 0, len(layouts))
	for name := range layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
