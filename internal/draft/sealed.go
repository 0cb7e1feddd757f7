package draft

import (
	"github.com/lox/packdraft/internal/booster"
)

// Sealed distributes every scheduled booster to its seat at start; there is
// no turn order and the state completes immediately.
type Sealed struct {
	players []UserID
	pools   map[UserID]*PlayerPool
}

// NewSealed moves all of queues[i] into players[i]'s pool.
func NewSealed(players []UserID, queues [][]booster.Booster) *Sealed {
	s := &Sealed{
		players: players,
		pools:   newPools(players),
	}
	for i, p := range players {
		pool := s.pools[p]
		for _, b := range queues[i] {
			for _, uc := range b {
				uc.Owner = string(p)
				pool.Main = append(pool.Main, uc)
			}
		}
	}
	return s
}

func (s *Sealed) Type() string      { return "sealed" }
func (s *Sealed) IsComplete() bool  { return true }
func (s *Sealed) PickNumber() int   { return 0 }
func (s *Sealed) Players() []UserID { return s.players }

func (s *Sealed) Pool(user UserID) *PlayerPool { return s.pools[user] }

func (s *Sealed) NeedsPick(UserID) bool { return false }

func (s *Sealed) Stop() {}

func (s *Sealed) SyncView(user UserID) View {
	return View{SkipPick: true}
}
