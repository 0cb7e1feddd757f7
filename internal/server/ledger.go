package server

import (
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/packdraft/internal/draft"
)

// SeatStatus tracks the connection state machine of one logical player:
// Connected → Disconnected (grace window running) → Connected again or Bot.
type SeatStatus int

const (
	SeatConnected SeatStatus = iota
	SeatDisconnected
	SeatBot
)

func (s SeatStatus) String() string {
	switch s {
	case SeatConnected:
		return "connected"
	case SeatDisconnected:
		return "disconnected"
	case SeatBot:
		return "bot"
	}
	return "unknown"
}

type seatEntry struct {
	status     SeatStatus
	connID     string
	graceTimer *quartz.Timer
}

// Ledger tracks which logical player is attached to which live connection,
// runs the disconnect grace window, and records bot substitution. A UserID
// keeps its seat while disconnected; expiry of the grace window only notifies
// the owner. Conversion to a bot seat is always an explicit owner action.
type Ledger struct {
	mu     sync.Mutex
	seats  map[draft.UserID]*seatEntry
	clock  quartz.Clock
	grace  time.Duration
	logger *log.Logger

	// onGraceExpired is invoked (outside the ledger lock) when a seat's grace
	// window runs out without a reconnect.
	onGraceExpired func(user draft.UserID)
}

// NewLedger creates a connection ledger with the given grace window.
func NewLedger(clock quartz.Clock, grace time.Duration, logger *log.Logger) *Ledger {
	return &Ledger{
		seats:  make(map[draft.UserID]*seatEntry),
		clock:  clock,
		grace:  grace,
		logger: logger.WithPrefix("ledger"),
	}
}

// OnGraceExpired registers the owner-notification callback.
func (l *Ledger) OnGraceExpired(fn func(user draft.UserID)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onGraceExpired = fn
}

// Attach binds a live connection to a seat, creating it if needed. Returns
// true when this is a reconnect of a previously disconnected seat.
func (l *Ledger) Attach(user draft.UserID, connID string) (reconnected bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.seats[user]
	if !ok {
		l.seats[user] = &seatEntry{status: SeatConnected, connID: connID}
		return false
	}

	reconnected = entry.status == SeatDisconnected
	if entry.graceTimer != nil {
		entry.graceTimer.Stop()
		entry.graceTimer = nil
	}
	entry.status = SeatConnected
	entry.connID = connID
	l.logger.Info("seat attached", "user", user, "reconnected", reconnected)
	return reconnected
}

// Detach marks a seat disconnected and starts its grace window, but only
// when the dying connection is still the seat's current attachment. A seat
// that already re-attached to a newer connection is left alone: the old
// socket's teardown can arrive long after the reconnect. Returns whether the
// seat was detached.
func (l *Ledger) Detach(user draft.UserID, connID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.seats[user]
	if !ok || entry.status != SeatConnected || entry.connID != connID {
		return false
	}
	entry.status = SeatDisconnected
	entry.connID = ""

	entry.graceTimer = l.clock.AfterFunc(l.grace, func() {
		l.graceExpired(user)
	})
	l.logger.Info("seat disconnected, grace window started", "user", user, "grace", l.grace)
	return true
}

// Attached reports whether connID is the seat's current live attachment.
func (l *Ledger) Attached(user draft.UserID, connID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.seats[user]
	return ok && entry.status == SeatConnected && entry.connID == connID
}

func (l *Ledger) graceExpired(user draft.UserID) {
	l.mu.Lock()
	entry, ok := l.seats[user]
	if !ok || entry.status != SeatDisconnected {
		l.mu.Unlock()
		return
	}
	entry.graceTimer = nil
	fn := l.onGraceExpired
	l.mu.Unlock()

	l.logger.Info("grace window expired", "user", user)
	if fn != nil {
		fn(user)
	}
}

// MarkBot converts a seat to bot control for the remainder of the draft.
func (l *Ledger) MarkBot(user draft.UserID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.seats[user]
	if !ok {
		entry = &seatEntry{}
		l.seats[user] = entry
	}
	if entry.graceTimer != nil {
		entry.graceTimer.Stop()
		entry.graceTimer = nil
	}
	entry.status = SeatBot
	entry.connID = ""
}

// ReplaceDisconnected converts every currently disconnected seat into a bot
// seat and returns them.
func (l *Ledger) ReplaceDisconnected() []draft.UserID {
	l.mu.Lock()
	defer l.mu.Unlock()

	var replaced []draft.UserID
	for user, entry := range l.seats {
		if entry.status == SeatDisconnected {
			if entry.graceTimer != nil {
				entry.graceTimer.Stop()
				entry.graceTimer = nil
			}
			entry.status = SeatBot
			replaced = append(replaced, user)
		}
	}
	sort.Slice(replaced, func(i, j int) bool { return replaced[i] < replaced[j] })
	return replaced
}

// Remove drops a seat from the ledger entirely (user left before a draft).
func (l *Ledger) Remove(user draft.UserID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.seats[user]; ok && entry.graceTimer != nil {
		entry.graceTimer.Stop()
	}
	delete(l.seats, user)
}

// Status returns a seat's current status.
func (l *Ledger) Status(user draft.UserID) SeatStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.seats[user]; ok {
		return entry.status
	}
	return SeatDisconnected
}

// IsBot reports whether a seat is bot-controlled.
func (l *Ledger) IsBot(user draft.UserID) bool {
	return l.Status(user) == SeatBot
}

// Disconnected lists the seats currently inside their grace window or past
// it without replacement.
func (l *Ledger) Disconnected() []draft.UserID {
	l.mu.Lock()
	defer l.mu.Unlock()

	var users []draft.UserID
	for user, entry := range l.seats {
		if entry.status == SeatDisconnected {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// Bots lists the bot-controlled seats.
func (l *Ledger) Bots() []draft.UserID {
	l.mu.Lock()
	defer l.mu.Unlock()

	var users []draft.UserID
	for user, entry := range l.seats {
		if entry.status == SeatBot {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
