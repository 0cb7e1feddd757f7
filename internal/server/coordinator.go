package server

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/packdraft/internal/booster"
	"github.com/lox/packdraft/internal/bot"
	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/draft"
)

// botPickTimeout bounds a single oracle call. On expiry the fallback oracle
// supplies a random legal choice.
const botPickTimeout = 5 * time.Second

// Coordinator routes every pick through one committed path: validate against
// the live state, apply, record to the draft log, push fresh views, then wake
// any bot seats that now owe a pick. All methods except runBotPick expect the
// owning session's lock to be held.
type Coordinator struct {
	sess   *Session
	state  draft.State
	oracle bot.Oracle
	logger *log.Logger

	history map[draft.UserID][]cards.CardID
	picks   []draft.LogPick
	pending map[draft.UserID]bool
	done    bool
}

// botPickRequest is the snapshot handed to an oracle goroutine. The stamp is
// the pick number at snapshot time; a result arriving after the state moved
// past that number is dropped and a fresh request issued.
type botPickRequest struct {
	user     draft.UserID
	stamp    int
	choices  booster.Booster
	indexMap []int // nil means choices indices map directly onto the pick
	history  []cards.CardID
	winston  bool
}

func newCoordinator(sess *Session, state draft.State, oracle bot.Oracle) *Coordinator {
	return &Coordinator{
		sess:    sess,
		state:   state,
		oracle:  oracle,
		logger:  sess.logger.WithPrefix("coordinator"),
		history: make(map[draft.UserID][]cards.CardID),
		pending: make(map[draft.UserID]bool),
	}
}

// Start pushes the opening views and wakes bot seats. A variant that is born
// complete (sealed) finishes immediately.
func (c *Coordinator) Start() {
	c.broadcastViews()
	if c.state.IsComplete() {
		c.finishLocked("complete", false)
		return
	}
	c.TriggerBots()
}

// ApplyPick applies a human pick/burn batch against the current state.
func (c *Coordinator) ApplyPick(user draft.UserID, pickNumber int, picked, burned []int) error {
	if c.done {
		return draft.ErrDraftComplete
	}
	if pickNumber != c.state.PickNumber() {
		return draft.ErrStalePick
	}

	switch st := c.state.(type) {
	case *draft.Regular:
		burnedIDs, err := idsAt(c.state.SyncView(user).Booster, burned)
		if err != nil {
			return err
		}
		return c.commit(user, st.BoosterNumber(), burnedIDs, func() error {
			return st.Pick(user, picked, burned)
		})

	case *draft.Rotisserie:
		return c.commit(user, 0, nil, func() error {
			return st.Pick(user, picked, burned)
		})

	default:
		return draft.ErrInvalidPick
	}
}

// ApplyWinstonMove applies a take or skip of the currently inspected pile.
func (c *Coordinator) ApplyWinstonMove(user draft.UserID, take bool) error {
	if c.done {
		return draft.ErrDraftComplete
	}
	st, ok := c.state.(*draft.Winston)
	if !ok {
		return draft.ErrInvalidPick
	}

	return c.commit(user, 0, nil, func() error {
		if take {
			return st.TakePile(user)
		}
		return st.SkipPile(user)
	})
}

// commit is the single write path for state transitions. Newly pooled cards
// are detected by pool growth, so the same bookkeeping covers every variant
// including winston blind draws.
func (c *Coordinator) commit(user draft.UserID, boosterNumber int, burnedIDs []cards.CardID, apply func() error) error {
	pool := c.state.Pool(user)
	before := 0
	if pool != nil {
		before = len(pool.Main)
	}
	pickNumber := c.state.PickNumber()

	if err := apply(); err != nil {
		return err
	}

	var pickedIDs []cards.CardID
	if pool != nil {
		for _, uc := range pool.Main[before:] {
			pickedIDs = append(pickedIDs, uc.ID)
		}
	}
	if len(pickedIDs) > 0 || len(burnedIDs) > 0 {
		c.history[user] = append(c.history[user], pickedIDs...)
		c.picks = append(c.picks, draft.LogPick{
			User:          user,
			PickNumber:    pickNumber,
			BoosterNumber: boosterNumber,
			Picked:        pickedIDs,
			Burned:        burnedIDs,
		})
	}

	c.afterChange()
	return nil
}

func (c *Coordinator) afterChange() {
	c.broadcastViews()
	if c.state.IsComplete() {
		c.finishLocked("complete", false)
		return
	}
	c.TriggerBots()
}

// TriggerBots issues oracle requests for every bot seat that owes a pick and
// has none in flight.
func (c *Coordinator) TriggerBots() {
	if c.done {
		return
	}
	for _, user := range c.state.Players() {
		if !c.sess.ledger.IsBot(user) || !c.state.NeedsPick(user) || c.pending[user] {
			continue
		}

		req := botPickRequest{
			user:    user,
			stamp:   c.state.PickNumber(),
			history: append([]cards.CardID(nil), c.history[user]...),
		}

		switch st := c.state.(type) {
		case *draft.Rotisserie:
			// Bots choose among unowned cards of the shared list.
			view := st.SyncView(user)
			for i, uc := range view.SharedCards {
				if uc.Owner == "" {
					req.choices = append(req.choices, uc)
					req.indexMap = append(req.indexMap, i)
				}
			}
		case *draft.Winston:
			req.winston = true
		default:
			view := c.state.SyncView(user)
			req.choices = append(booster.Booster(nil), view.Booster...)
		}

		c.pending[user] = true
		go c.runBotPick(req)
	}
}

// runBotPick runs outside the session lock: the oracle call may be slow or
// remote and must never stall human picks.
func (c *Coordinator) runBotPick(req botPickRequest) {
	var choice int
	if !req.winston {
		ctx, cancel := context.WithTimeout(context.Background(), botPickTimeout)
		idx, err := c.oracle.Choose(ctx, req.choices, req.history)
		cancel()
		if err != nil || idx < 0 || idx >= len(req.choices) {
			c.logger.Warn("bot oracle failed", "user", req.user, "error", err)
			idx = 0
		}
		choice = idx
	}

	c.sess.mu.Lock()
	defer c.sess.mu.Unlock()

	c.pending[req.user] = false
	if c.done {
		return
	}
	if c.state.PickNumber() != req.stamp || !c.state.NeedsPick(req.user) {
		// The state moved on while the oracle was thinking; the result no
		// longer matches a live booster. Drop it and request a fresh choice.
		c.logger.Debug("dropping stale bot pick", "user", req.user, "stamp", req.stamp, "pickNumber", c.state.PickNumber())
		c.TriggerBots()
		return
	}

	if err := c.applyBotChoice(req, choice); err != nil {
		c.logger.Error("bot pick failed", "user", req.user, "error", err)
	}
}

func (c *Coordinator) applyBotChoice(req botPickRequest, choice int) error {
	switch st := c.state.(type) {
	case *draft.Winston:
		return c.commit(req.user, 0, nil, func() error {
			// Bots always take the inspected pile; an empty pile with an empty
			// stack falls back to skipping past it.
			if err := st.TakePile(req.user); err != nil {
				return st.SkipPile(req.user)
			}
			return nil
		})

	case *draft.Rotisserie:
		return c.commit(req.user, 0, nil, func() error {
			return st.Pick(req.user, []int{req.indexMap[choice]}, nil)
		})

	case *draft.Regular:
		picked, burned := fillBatch(choice, len(req.choices), c.sess.opts.PickedCardsPerRound, c.sess.opts.BurnedCardsPerRound)
		burnedIDs, err := idsAt(req.choices, burned)
		if err != nil {
			return err
		}
		return c.commit(req.user, st.BoosterNumber(), burnedIDs, func() error {
			return st.Pick(req.user, picked, burned)
		})

	default:
		return draft.ErrInvalidPick
	}
}

// fillBatch builds a legal pick/burn index batch around the oracle's choice:
// the chosen index plus the lowest remaining indices until the round's pick
// and burn quotas are met.
func fillBatch(choice, size, pickPerRound, burnPerRound int) (picked, burned []int) {
	if pickPerRound < 1 {
		pickPerRound = 1
	}
	expectPick := min(pickPerRound, size)
	expectBurn := min(burnPerRound, size-expectPick)

	picked = append(picked, choice)
	for i := 0; len(picked) < expectPick; i++ {
		if i != choice {
			picked = append(picked, i)
		}
	}
	used := make(map[int]bool, len(picked))
	for _, idx := range picked {
		used[idx] = true
	}
	for i := 0; len(burned) < expectBurn; i++ {
		if !used[i] {
			burned = append(burned, i)
		}
	}
	return picked, burned
}

func idsAt(b booster.Booster, indices []int) ([]cards.CardID, error) {
	var ids []cards.CardID
	for _, idx := range indices {
		if idx < 0 || idx >= len(b) {
			return nil, draft.ErrInvalidPick
		}
		ids = append(ids, b[idx].ID)
	}
	return ids, nil
}

// broadcastViews pushes a fresh per-seat snapshot to every connected player.
func (c *Coordinator) broadcastViews() {
	for _, user := range c.state.Players() {
		if c.sess.ledger.Status(user) != SeatConnected {
			continue
		}
		view := c.state.SyncView(user)
		if msg, err := NewMessage(MessageTypeDraftState, DraftStateData{View: view}); err == nil {
			_ = c.sess.sender.SendToUser(user, msg)
		}
	}
}

// Finish completes the draft from outside the lock (owner stop).
func (c *Coordinator) Finish(reason string, stopped bool) {
	c.sess.mu.Lock()
	defer c.sess.mu.Unlock()
	c.finishLocked(reason, stopped)
}

func (c *Coordinator) finishLocked(reason string, stopped bool) {
	if c.done {
		return
	}
	c.done = true

	draftLog := &draft.Log{
		SessionID: c.sess.id,
		Type:      c.state.Type(),
		Users:     c.state.Players(),
		Picks:     c.picks,
		Pools:     make(map[draft.UserID][]cards.CardID),
		Stopped:   stopped,
	}
	for _, user := range c.state.Players() {
		pool := c.state.Pool(user)
		if pool == nil {
			continue
		}
		var ids []cards.CardID
		for _, uc := range pool.Main {
			ids = append(ids, uc.ID)
		}
		for _, uc := range pool.Side {
			ids = append(ids, uc.ID)
		}
		draftLog.Pools[user] = ids
	}

	if c.sess.archiveDir != "" {
		if path, err := writeDraftLog(c.sess.archiveDir, draftLog); err != nil {
			c.logger.Error("failed to archive draft log", "error", err)
		} else {
			c.logger.Info("draft log archived", "path", path)
		}
	}

	c.logger.Info("draft finished", "reason", reason, "picks", len(c.picks))
	if msg, err := NewMessage(MessageTypeDraftEnd, DraftEndData{Reason: reason, Log: draftLog}); err == nil {
		c.sess.sender.BroadcastToSession(c.sess.id, msg)
	}
}
