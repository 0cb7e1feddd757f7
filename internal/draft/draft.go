// Package draft implements the per-session draft state machines. Each variant
// owns its own turn and round bookkeeping behind a small shared contract; all
// mutation goes through the variant's pick operations, serialized by the
// owning session.
package draft

import (
	"errors"

	"github.com/lox/packdraft/internal/booster"
	"github.com/lox/packdraft/internal/cards"
)

// UserID identifies a logical player. A seat belongs to a UserID for the
// whole draft, whether or not a live connection is attached.
type UserID string

var (
	// ErrNotYourTurn rejects picks from a player who isn't up.
	ErrNotYourTurn = errors.New("not your turn to pick")
	// ErrStalePick rejects requests referencing an older pick number than
	// current state. Out-of-order delivery is never silently merged.
	ErrStalePick = errors.New("stale pick request")
	// ErrAlreadyPicked rejects a second pick in the same round.
	ErrAlreadyPicked = errors.New("already picked this round")
	// ErrDraftComplete rejects actions against a finished draft.
	ErrDraftComplete = errors.New("draft is complete")
	// ErrUnknownPlayer rejects actions from users without a seat.
	ErrUnknownPlayer = errors.New("player has no seat in this draft")
	// ErrInvalidPick rejects malformed index lists.
	ErrInvalidPick = errors.New("invalid pick")
)

// PlayerPool holds a player's accumulated cards, split into main pool and
// sideboard.
type PlayerPool struct {
	Main []*cards.UniqueCard `json:"main"`
	Side []*cards.UniqueCard `json:"side"`
}

// MoveCard moves a card between main and side by unique id. Reports whether
// the card was found.
func (p *PlayerPool) MoveCard(uniqueID int64, toSide bool) bool {
	from, to := &p.Main, &p.Side
	if !toSide {
		from, to = &p.Side, &p.Main
	}
	for i, uc := range *from {
		if uc.UniqueID == uniqueID {
			*from = append((*from)[:i], (*from)[i+1:]...)
			*to = append(*to, uc)
			return true
		}
	}
	return false
}

// View is the per-user snapshot pushed to clients on every relevant change.
// It only ever contains the user's own booster; other players' pools are not
// leaked before draft end.
type View struct {
	Booster       booster.Booster     `json:"booster,omitempty"`
	BoosterCount  int                 `json:"boosterCount"`
	BoosterNumber int                 `json:"boosterNumber"`
	PickNumber    int                 `json:"pickNumber"`
	SkipPick      bool                `json:"skipPick"`
	CurrentPlayer UserID              `json:"currentPlayer,omitempty"`
	SharedCards   []*cards.UniqueCard `json:"sharedCards,omitempty"` // rotisserie
	PileSizes     []int               `json:"pileSizes,omitempty"`   // winston
	CurrentPile   int                 `json:"currentPile,omitempty"` // winston
	StackSize     int                 `json:"stackSize,omitempty"`   // winston
}

// State is the closed contract every draft variant implements.
type State interface {
	// Type names the variant ("regular", "rotisserie", "winston", "sealed").
	Type() string
	// SyncView builds the state snapshot visible to one user.
	SyncView(user UserID) View
	// IsComplete reports whether the draft has finished.
	IsComplete() bool
	// PickNumber returns the monotonically increasing pick counter used for
	// stale-request rejection.
	PickNumber() int
	// Players returns the seat order.
	Players() []UserID
	// NeedsPick reports whether the user has something to do right now.
	NeedsPick(user UserID) bool
	// Pool returns a player's accumulated cards.
	Pool(user UserID) *PlayerPool
	// Stop force-completes the draft with whatever picks exist.
	Stop()
}

// LogPick records one committed pick batch for the draft log.
type LogPick struct {
	User          UserID         `json:"user"`
	PickNumber    int            `json:"pickNumber"`
	BoosterNumber int            `json:"boosterNumber"`
	Picked        []cards.CardID `json:"picked"`
	Burned        []cards.CardID `json:"burned,omitempty"`
}

// Log is the archived record of a completed draft.
type Log struct {
	SessionID string                    `json:"sessionId"`
	Type      string                    `json:"type"`
	Users     []UserID                  `json:"users"`
	Picks     []LogPick                 `json:"picks"`
	Pools     map[UserID][]cards.CardID `json:"pools"`
	Stopped   bool                      `json:"stopped,omitempty"`
}

func newPools(players []UserID) map[UserID]*PlayerPool {
	pools := make(map[UserID]*PlayerPool, len(players))
	for _, p := range players {
		pools[p] = &PlayerPool{}
	}
	return pools
}

func validateIndices(picked, burned []int, size int) error {
	seen := make(map[int]bool, len(picked)+len(burned))
	for _, lists := range [][]int{picked, burned} {
		for _, idx := range lists {
			if idx < 0 || idx >= size {
				return ErrInvalidPick
			}
			if seen[idx] {
				return ErrInvalidPick
			}
			seen[idx] = true
		}
	}
	return nil
}

// removeIndices returns the cards at the given indices (in request order) and
// the booster with those indices removed.
func removeIndices(b booster.Booster, picked, burned []int) (taken, burnt []*cards.UniqueCard, remaining booster.Booster) {
	drop := make(map[int]bool, len(picked)+len(burned))
	for _, idx := range picked {
		taken = append(taken, b[idx])
		drop[idx] = true
	}
	for _, idx := range burned {
		burnt = append(burnt, b[idx])
		drop[idx] = true
	}
	for i, uc := range b {
		if !drop[i] {
			remaining = append(remaining, uc)
		}
	}
	return taken, burnt, remaining
}
