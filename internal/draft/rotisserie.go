package draft

import (
	"github.com/lox/packdraft/internal/cards"
)

// Rotisserie is the single-shared-list variant: one card at a time, turn
// order a palindrome over the seat list so each player gets two consecutive
// picks per lap except at the ends.
type Rotisserie struct {
	players        []UserID
	cards          []*cards.UniqueCard
	pools          map[UserID]*PlayerPool
	pickNumber     int
	cardsPerPlayer int
	complete       bool
}

// NewRotisserie creates a rotisserie draft over a shared card list.
func NewRotisserie(players []UserID, shared []*cards.UniqueCard, cardsPerPlayer int) *Rotisserie {
	return &Rotisserie{
		players:        players,
		cards:          shared,
		pools:          newPools(players),
		cardsPerPlayer: cardsPerPlayer,
	}
}

func (r *Rotisserie) Type() string      { return "rotisserie" }
func (r *Rotisserie) IsComplete() bool  { return r.complete }
func (r *Rotisserie) PickNumber() int   { return r.pickNumber }
func (r *Rotisserie) Players() []UserID { return r.players }

func (r *Rotisserie) Pool(user UserID) *PlayerPool { return r.pools[user] }

func (r *Rotisserie) Stop() { r.complete = true }

// CurrentPlayer maps the global pick number onto the palindrome sequence
// 0,1,…,L-1,L-1,…,1,0,0,1,… over the seat list.
func (r *Rotisserie) CurrentPlayer() UserID {
	l := len(r.players)
	idx := r.pickNumber % (2 * l)
	if idx < l {
		return r.players[idx]
	}
	return r.players[l-1-(idx-l)]
}

// NeedsPick reports whether it is the user's turn.
func (r *Rotisserie) NeedsPick(user UserID) bool {
	return !r.complete && r.CurrentPlayer() == user
}

// SyncView exposes the full shared list: in rotisserie every pick is public.
func (r *Rotisserie) SyncView(user UserID) View {
	return View{
		PickNumber:    r.pickNumber,
		SharedCards:   r.cards,
		CurrentPlayer: r.CurrentPlayer(),
		SkipPick:      !r.NeedsPick(user),
	}
}

// Pick claims the unowned card at the given index of the shared list for the
// current player and advances the turn.
func (r *Rotisserie) Pick(user UserID, picked, burned []int) error {
	if r.complete {
		return ErrDraftComplete
	}
	if _, ok := r.pools[user]; !ok {
		return ErrUnknownPlayer
	}
	if r.CurrentPlayer() != user {
		return ErrNotYourTurn
	}
	if len(picked) != 1 || len(burned) != 0 {
		return ErrInvalidPick
	}
	idx := picked[0]
	if idx < 0 || idx >= len(r.cards) {
		return ErrInvalidPick
	}
	card := r.cards[idx]
	if card.Owner != "" {
		return ErrInvalidPick
	}

	card.Owner = string(user)
	pool := r.pools[user]
	pool.Main = append(pool.Main, card)

	r.advance()
	return nil
}

// advance increments the pick counter; terminal once every player has their
// allotment or the shared list runs out.
func (r *Rotisserie) advance() {
	r.pickNumber++
	if r.pickNumber >= min(len(r.players)*r.cardsPerPlayer, len(r.cards)) {
		r.complete = true
	}
}
