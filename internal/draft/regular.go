package draft

import (
	"github.com/lox/packdraft/internal/booster"
	"github.com/lox/packdraft/internal/cards"
)

// RegularOptions tunes the pick/burn bookkeeping of a regular draft.
type RegularOptions struct {
	// PickedCardsPerRound is how many cards a pick removes into the player's
	// pool each round. Minimum 1.
	PickedCardsPerRound int
	// BurnedCardsPerRound is how many additional cards are discarded
	// irrecoverably each round.
	BurnedCardsPerRound int
	// DiscardRemainingCardsAt discards the rest of a booster once it shrinks
	// to this many cards. Zero keeps boosters until empty.
	DiscardRemainingCardsAt int
}

func (o RegularOptions) withDefaults() RegularOptions {
	if o.PickedCardsPerRound < 1 {
		o.PickedCardsPerRound = 1
	}
	return o
}

// Regular is the snake-pick draft: every seat holds one active booster,
// all seats pick simultaneously each round, then boosters rotate. Direction
// alternates with the booster number.
type Regular struct {
	players       []UserID
	queues        map[UserID][]booster.Booster
	active        map[UserID]booster.Booster
	pickedRound   map[UserID]bool
	pools         map[UserID]*PlayerPool
	discarded     []*cards.UniqueCard
	pickNumber    int
	boosterNumber int
	complete      bool
	opts          RegularOptions
}

// NewRegular creates a regular draft state. queues[i] is the booster sequence
// for players[i]; every seat opens its first booster immediately.
func NewRegular(players []UserID, queues [][]booster.Booster, opts RegularOptions) *Regular {
	r := &Regular{
		players:     players,
		queues:      make(map[UserID][]booster.Booster, len(players)),
		active:      make(map[UserID]booster.Booster, len(players)),
		pickedRound: make(map[UserID]bool, len(players)),
		pools:       newPools(players),
		opts:        opts.withDefaults(),
	}
	for i, p := range players {
		r.queues[p] = queues[i]
	}
	r.openNext()
	r.boosterNumber = 0
	return r
}

func (r *Regular) Type() string      { return "regular" }
func (r *Regular) IsComplete() bool  { return r.complete }
func (r *Regular) PickNumber() int   { return r.pickNumber }
func (r *Regular) Players() []UserID { return r.players }

func (r *Regular) Pool(user UserID) *PlayerPool { return r.pools[user] }

// Discarded returns every card removed without entering a player's pool
// (burns and threshold discards).
func (r *Regular) Discarded() []*cards.UniqueCard { return r.discarded }

// BoosterNumber returns the zero-based index of the pack currently open.
func (r *Regular) BoosterNumber() int { return r.boosterNumber }

// NeedsPick reports whether the user has an outstanding pick this round.
func (r *Regular) NeedsPick(user UserID) bool {
	return !r.complete && len(r.active[user]) > 0 && !r.pickedRound[user]
}

// Stop force-completes the draft with whatever picks exist.
func (r *Regular) Stop() { r.complete = true }

// SyncView builds the snapshot for one seat: its own booster only.
func (r *Regular) SyncView(user UserID) View {
	return View{
		Booster:       r.active[user],
		BoosterCount:  len(r.queues[user]),
		BoosterNumber: r.boosterNumber,
		PickNumber:    r.pickNumber,
		SkipPick:      !r.NeedsPick(user),
	}
}

// Pick applies one seat's pick/burn batch for the current round. The batch
// must pick exactly min(pickedCardsPerRound, remaining) cards and burn
// exactly min(burnedCardsPerRound, remaining after picks).
func (r *Regular) Pick(user UserID, picked, burned []int) error {
	if r.complete {
		return ErrDraftComplete
	}
	if _, ok := r.pools[user]; !ok {
		return ErrUnknownPlayer
	}
	b := r.active[user]
	if len(b) == 0 {
		return ErrNotYourTurn
	}
	if r.pickedRound[user] {
		return ErrAlreadyPicked
	}

	expectPick := min(r.opts.PickedCardsPerRound, len(b))
	expectBurn := min(r.opts.BurnedCardsPerRound, len(b)-expectPick)
	if len(picked) != expectPick || len(burned) != expectBurn {
		return ErrInvalidPick
	}
	if err := validateIndices(picked, burned, len(b)); err != nil {
		return err
	}

	taken, burnt, remaining := removeIndices(b, picked, burned)
	pool := r.pools[user]
	for _, uc := range taken {
		uc.Owner = string(user)
		pool.Main = append(pool.Main, uc)
	}
	r.discarded = append(r.discarded, burnt...)
	r.active[user] = remaining
	r.pickedRound[user] = true

	if r.roundDone() {
		r.advance()
	}
	return nil
}

func (r *Regular) roundDone() bool {
	for _, p := range r.players {
		if len(r.active[p]) > 0 && !r.pickedRound[p] {
			return false
		}
	}
	return true
}

// advance is the sole mutator of the turn/round counters. Called exactly once
// per completed pick round.
func (r *Regular) advance() {
	r.pickNumber++
	for _, p := range r.players {
		r.pickedRound[p] = false
	}

	// Threshold discard: leftover cards below the cutoff are discarded
	// unpicked instead of rotating.
	if r.opts.DiscardRemainingCardsAt > 0 {
		for _, p := range r.players {
			if n := len(r.active[p]); n > 0 && n <= r.opts.DiscardRemainingCardsAt {
				r.discarded = append(r.discarded, r.active[p]...)
				r.active[p] = nil
			}
		}
	}

	for _, p := range r.players {
		if len(r.active[p]) > 0 {
			r.rotate()
			return
		}
	}

	r.openNext()
}

// rotate passes each seat's active booster to its neighbour; direction
// alternates so the draft snakes.
func (r *Regular) rotate() {
	n := len(r.players)
	next := make(map[UserID]booster.Booster, n)
	for i, p := range r.players {
		var receiver UserID
		if r.boosterNumber%2 == 0 {
			receiver = r.players[(i+1)%n]
		} else {
			receiver = r.players[(i-1+n)%n]
		}
		next[receiver] = r.active[p]
	}
	r.active = next
}

// openNext opens the next booster for every seat, or completes the draft
// when the schedule is exhausted.
func (r *Regular) openNext() {
	opened := false
	for _, p := range r.players {
		if len(r.queues[p]) > 0 {
			r.active[p] = r.queues[p][0]
			r.queues[p] = r.queues[p][1:]
			opened = true
		} else {
			r.active[p] = nil
		}
	}
	if !opened {
		r.complete = true
		return
	}
	r.boosterNumber++
}
