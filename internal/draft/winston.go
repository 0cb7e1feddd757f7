package draft

import (
	"github.com/lox/packdraft/internal/cards"
)

const winstonPileCount = 3

// Winston is the two-player pile variant: three face-down piles fed from a
// main stack. On a turn the player inspects piles in order, taking one or
// passing; a pass grows the pile from the stack, and passing the last pile
// draws blind from the stack.
type Winston struct {
	players     []UserID
	piles       [winstonPileCount][]*cards.UniqueCard
	stack       []*cards.UniqueCard
	pools       map[UserID]*PlayerPool
	turn        int // index into players
	currentPile int
	pickNumber  int
	complete    bool
}

// NewWinston deals the first card of each pile from the shared stack.
func NewWinston(players []UserID, stack []*cards.UniqueCard) *Winston {
	w := &Winston{
		players: players,
		stack:   stack,
		pools:   newPools(players),
	}
	for i := range w.piles {
		if len(w.stack) > 0 {
			w.piles[i] = []*cards.UniqueCard{w.stack[0]}
			w.stack = w.stack[1:]
		}
	}
	return w
}

func (w *Winston) Type() string      { return "winston" }
func (w *Winston) IsComplete() bool  { return w.complete }
func (w *Winston) PickNumber() int   { return w.pickNumber }
func (w *Winston) Players() []UserID { return w.players }

func (w *Winston) Pool(user UserID) *PlayerPool { return w.pools[user] }

func (w *Winston) Stop() { w.complete = true }

// CurrentPlayer returns whose turn it is.
func (w *Winston) CurrentPlayer() UserID { return w.players[w.turn] }

// NeedsPick reports whether it is the user's turn.
func (w *Winston) NeedsPick(user UserID) bool {
	return !w.complete && w.CurrentPlayer() == user
}

// CurrentPileCards returns the contents of the pile the current player is
// inspecting. Only the acting player sees this.
func (w *Winston) CurrentPileCards() []*cards.UniqueCard {
	return w.piles[w.currentPile]
}

// SyncView shows pile sizes to everyone; the inspected pile's contents go
// only to the acting player.
func (w *Winston) SyncView(user UserID) View {
	v := View{
		PickNumber:    w.pickNumber,
		CurrentPlayer: w.CurrentPlayer(),
		CurrentPile:   w.currentPile,
		StackSize:     len(w.stack),
		PileSizes:     make([]int, winstonPileCount),
		SkipPick:      !w.NeedsPick(user),
	}
	for i := range w.piles {
		v.PileSizes[i] = len(w.piles[i])
	}
	if w.NeedsPick(user) {
		v.Booster = w.piles[w.currentPile]
	}
	return v
}

// TakePile moves the inspected pile into the player's pool, reseeds the pile
// from the stack, and passes the turn.
func (w *Winston) TakePile(user UserID) error {
	if err := w.checkTurn(user); err != nil {
		return err
	}
	if len(w.piles[w.currentPile]) == 0 {
		return ErrInvalidPick
	}

	pool := w.pools[user]
	for _, uc := range w.piles[w.currentPile] {
		uc.Owner = string(user)
		pool.Main = append(pool.Main, uc)
	}
	w.piles[w.currentPile] = nil
	if len(w.stack) > 0 {
		w.piles[w.currentPile] = []*cards.UniqueCard{w.stack[0]}
		w.stack = w.stack[1:]
	}

	w.advance()
	return nil
}

// SkipPile passes on the inspected pile, growing it from the stack. Skipping
// the last pile draws the top of the stack blind instead.
func (w *Winston) SkipPile(user UserID) error {
	if err := w.checkTurn(user); err != nil {
		return err
	}

	last := w.lastSkippablePile()
	if w.currentPile < last {
		if len(w.stack) > 0 {
			w.piles[w.currentPile] = append(w.piles[w.currentPile], w.stack[0])
			w.stack = w.stack[1:]
		}
		w.currentPile++
		return nil
	}

	// Passing the final pile: blind draw from the stack.
	if len(w.stack) == 0 {
		return ErrInvalidPick
	}
	card := w.stack[0]
	w.stack = w.stack[1:]
	card.Owner = string(user)
	pool := w.pools[user]
	pool.Main = append(pool.Main, card)

	w.advance()
	return nil
}

func (w *Winston) checkTurn(user UserID) error {
	if w.complete {
		return ErrDraftComplete
	}
	if _, ok := w.pools[user]; !ok {
		return ErrUnknownPlayer
	}
	if w.CurrentPlayer() != user {
		return ErrNotYourTurn
	}
	return nil
}

// lastSkippablePile is the last non-empty pile index; with an empty stack,
// empty piles cannot be refilled so skipping walks past them.
func (w *Winston) lastSkippablePile() int {
	last := winstonPileCount - 1
	for last > 0 && len(w.piles[last]) == 0 {
		last--
	}
	return last
}

// advance passes the turn and checks for completion: nothing left in the
// stack or any pile.
func (w *Winston) advance() {
	w.pickNumber++
	w.currentPile = 0
	w.turn = (w.turn + 1) % len(w.players)

	if len(w.stack) > 0 {
		return
	}
	for i := range w.piles {
		if len(w.piles[i]) > 0 {
			// Skip forward to the first non-empty pile for the next player.
			w.currentPile = i
			return
		}
	}
	w.complete = true
}
