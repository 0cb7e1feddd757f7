package server

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/packdraft/internal/bot"
	"github.com/lox/packdraft/internal/booster"
	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/draft"
)

// Sender delivers messages to connected clients. Implemented by Server;
// sessions never talk to websockets directly.
type Sender interface {
	SendToUser(user draft.UserID, msg *Message) error
	BroadcastToSession(sessionID string, msg *Message)
}

// Options are the session-wide draft settings, mutable by the owner until a
// draft starts.
type Options struct {
	SetRestriction          []string
	BotCount                int
	BoostersPerPlayer       int
	ColorBalance            bool
	FoilRate                float64
	MaxDuplicates           int
	PickedCardsPerRound     int
	BurnedCardsPerRound     int
	DiscardRemainingCardsAt int
	DistributionMode        booster.DistributionMode
	DraftType               string
	CardsPerPlayer          int // rotisserie allotment
	CustomCardList          *cards.CustomCardList
	CustomCardListText      string
	CustomBoosters          []string
	GraceWindow             time.Duration
}

// DefaultOptions returns the settings a fresh session starts with.
func DefaultOptions() Options {
	return Options{
		BoostersPerPlayer:   3,
		PickedCardsPerRound: 1,
		ColorBalance:        true,
		FoilRate:            0,
		MaxDuplicates:       0,
		DistributionMode:    booster.DistributionRegular,
		DraftType:           "regular",
		CardsPerPlayer:      45,
		GraceWindow:         time.Minute,
	}
}

// Session is one draft room. It acts as a single logical actor: every
// mutation of its state goes through mu, so no two pick requests for the
// same session execute concurrently. Different sessions are independent.
type Session struct {
	id     string
	mu     sync.Mutex
	owner  draft.UserID
	users  []draft.UserID // join order; humans only
	opts   Options
	state  draft.State
	coord  *Coordinator
	ledger *Ledger

	sender     Sender
	db         *cards.Database
	oracle     bot.Oracle
	rng        *rand.Rand
	logger     *log.Logger
	archiveDir string
}

// NewSession creates an empty session. The first user to join becomes owner.
func NewSession(id string, sender Sender, db *cards.Database, oracle bot.Oracle, rng *rand.Rand, clock quartz.Clock, grace time.Duration, archiveDir string, logger *log.Logger) *Session {
	opts := DefaultOptions()
	if grace > 0 {
		opts.GraceWindow = grace
	}
	s := &Session{
		id:         id,
		opts:       opts,
		sender:     sender,
		db:         db,
		oracle:     oracle,
		rng:        rng,
		logger:     logger.WithPrefix("session").With("id", id),
		archiveDir: archiveDir,
	}
	s.ledger = NewLedger(clock, opts.GraceWindow, logger.With("session", id))
	s.ledger.OnGraceExpired(s.notifyGraceExpired)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the current session owner.
func (s *Session) Owner() draft.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Users returns the current roster in join order.
func (s *Session) Users() []draft.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]draft.UserID(nil), s.users...)
}

// DraftActive reports whether a draft is in progress.
func (s *Session) DraftActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && !s.state.IsComplete()
}

// Empty reports whether no human seat is connected and no draft is active,
// i.e. the registry may tear this session down.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil && !s.state.IsComplete() {
		return false
	}
	for _, u := range s.users {
		if s.ledger.Status(u) == SeatConnected {
			return false
		}
	}
	return true
}

// Join attaches a connection's user to the session, restoring the seat on
// reconnect. Returns the joined payload for the client.
func (s *Session) Join(user draft.UserID, connID string) SessionJoinedData {
	s.mu.Lock()

	if !s.hasUser(user) {
		s.users = append(s.users, user)
		if s.owner == "" {
			s.owner = user
		}
	}
	reconnected := s.ledger.Attach(user, connID)

	joined := SessionJoinedData{
		SessionID: s.id,
		Owner:     s.owner,
		Users:     append([]draft.UserID(nil), s.users...),
		Options:   s.optionsData(),
	}

	var resync *ResyncData
	if reconnected && s.state != nil {
		view := s.state.SyncView(user)
		resync = &ResyncData{
			SessionID: s.id,
			Picked:    s.state.Pool(user),
			View:      &view,
		}
	}
	s.mu.Unlock()

	s.logger.Info("user joined", "user", user, "reconnected", reconnected)

	if resync != nil {
		if msg, err := NewMessage(MessageTypeResync, resync); err == nil {
			_ = s.sender.SendToUser(user, msg)
		}
	}
	s.broadcastUsers()
	if reconnected {
		s.broadcastResume("player reconnected")
	}
	return joined
}

// Leave handles a connection going away. During a draft the seat is only
// detached (grace window); otherwise the user is removed from the roster.
// The connID identifies which connection died: when the user has already
// reconnected on a newer one, the stale teardown is ignored.
func (s *Session) Leave(user draft.UserID, connID string) {
	s.mu.Lock()
	active := s.state != nil && !s.state.IsComplete()
	if active {
		s.mu.Unlock()
		if !s.ledger.Detach(user, connID) {
			return
		}
		s.logger.Info("user disconnected mid-draft", "user", user)
		s.broadcastUsers()
		s.notifyOwner("player disconnected", user)
		return
	}

	if !s.ledger.Attached(user, connID) {
		s.mu.Unlock()
		return
	}
	s.removeUser(user)
	s.ledger.Remove(user)
	s.mu.Unlock()

	s.logger.Info("user left", "user", user)
	s.broadcastUsers()
}

// Ledger exposes the session's connection ledger.
func (s *Session) Ledger() *Ledger { return s.ledger }

// SetOption mutators. All require the requester to own the session and a
// draft not to be running; each acknowledges by broadcasting the updated
// options to every client.

func (s *Session) SetBots(requester draft.UserID, count int) error {
	if count < 0 {
		return fmt.Errorf("bot count must not be negative")
	}
	return s.setOption(requester, func(o *Options) { o.BotCount = count })
}

func (s *Session) SetRestriction(requester draft.UserID, sets []string) error {
	normalized := make([]string, len(sets))
	for i, set := range sets {
		normalized[i] = cards.NormalizeSet(set)
	}
	return s.setOption(requester, func(o *Options) { o.SetRestriction = normalized })
}

func (s *Session) SetPickedCardsPerRound(requester draft.UserID, n int) error {
	if n < 1 {
		return fmt.Errorf("picked cards per round must be at least 1")
	}
	return s.setOption(requester, func(o *Options) { o.PickedCardsPerRound = n })
}

func (s *Session) SetBurnedCardsPerRound(requester draft.UserID, n int) error {
	if n < 0 {
		return fmt.Errorf("burned cards per round must not be negative")
	}
	return s.setOption(requester, func(o *Options) { o.BurnedCardsPerRound = n })
}

func (s *Session) SetDiscardRemainingCardsAt(requester draft.UserID, n int) error {
	if n < 0 {
		return fmt.Errorf("discard threshold must not be negative")
	}
	return s.setOption(requester, func(o *Options) { o.DiscardRemainingCardsAt = n })
}

func (s *Session) SetMaxDuplicates(requester draft.UserID, n int) error {
	if n < 0 {
		return fmt.Errorf("max duplicates must not be negative")
	}
	return s.setOption(requester, func(o *Options) { o.MaxDuplicates = n })
}

func (s *Session) SetColorBalance(requester draft.UserID, enabled bool) error {
	return s.setOption(requester, func(o *Options) { o.ColorBalance = enabled })
}

func (s *Session) SetFoil(requester draft.UserID, rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("foil rate must be between 0 and 1")
	}
	return s.setOption(requester, func(o *Options) { o.FoilRate = rate })
}

func (s *Session) SetCustomCardList(requester draft.UserID, text string) error {
	list, err := cards.ParseCardList(s.db, text)
	if err != nil {
		return err
	}
	return s.setOption(requester, func(o *Options) {
		o.CustomCardList = list
		o.CustomCardListText = text
	})
}

func (s *Session) SetCustomBoosters(requester draft.UserID, boosters []string) error {
	return s.setOption(requester, func(o *Options) { o.CustomBoosters = boosters })
}

func (s *Session) SetDistributionMode(requester draft.UserID, mode string) error {
	m := booster.DistributionMode(mode)
	if !booster.ValidDistributionMode(m) {
		return fmt.Errorf("unknown distribution mode %q", mode)
	}
	return s.setOption(requester, func(o *Options) { o.DistributionMode = m })
}

func (s *Session) SetDraftType(requester draft.UserID, draftType string) error {
	switch draftType {
	case "regular", "rotisserie", "winston", "sealed":
	default:
		return fmt.Errorf("unknown draft type %q", draftType)
	}
	return s.setOption(requester, func(o *Options) { o.DraftType = draftType })
}

func (s *Session) setOption(requester draft.UserID, apply func(*Options)) error {
	s.mu.Lock()
	if err := s.checkOwner(requester); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state != nil && !s.state.IsComplete() {
		s.mu.Unlock()
		return fmt.Errorf("cannot change options while a draft is in progress")
	}
	apply(&s.opts)
	s.mu.Unlock()

	s.broadcastOptions()
	return nil
}

// PickCard validates and applies a pick/burn batch from a human seat.
func (s *Session) PickCard(user draft.UserID, data PickCardData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coord == nil {
		return fmt.Errorf("no draft in progress")
	}
	return s.coord.ApplyPick(user, data.PickNumber, data.PickedCards, data.BurnedCards)
}

// WinstonMove applies a winston take/skip from a human seat.
func (s *Session) WinstonMove(user draft.UserID, take bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coord == nil {
		return fmt.Errorf("no draft in progress")
	}
	return s.coord.ApplyWinstonMove(user, take)
}

// MoveCard moves a card between the user's main pool and sideboard.
func (s *Session) MoveCard(user draft.UserID, uniqueID int64, toSide bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return fmt.Errorf("no draft in progress")
	}
	pool := s.state.Pool(user)
	if pool == nil {
		return draft.ErrUnknownPlayer
	}
	if !pool.MoveCard(uniqueID, toSide) {
		return fmt.Errorf("card %d not found in your pool", uniqueID)
	}
	return nil
}

// ReplaceDisconnectedPlayers converts every disconnected seat to bot control
// and resumes the draft.
func (s *Session) ReplaceDisconnectedPlayers(requester draft.UserID) error {
	s.mu.Lock()
	if err := s.checkOwner(requester); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state == nil || s.state.IsComplete() {
		s.mu.Unlock()
		return fmt.Errorf("no draft in progress")
	}

	replaced := s.ledger.ReplaceDisconnected()
	if s.coord != nil && len(replaced) > 0 {
		s.coord.TriggerBots()
	}
	s.mu.Unlock()

	if len(replaced) > 0 {
		s.logger.Info("disconnected players replaced with bots", "count", len(replaced))
		s.broadcastUsers()
		s.broadcastResume("disconnected players replaced with bots")
	}
	return nil
}

// StopDraft is a hard cancellation: the draft completes with whatever picks
// exist and every client is notified.
func (s *Session) StopDraft(requester draft.UserID) error {
	s.mu.Lock()
	if err := s.checkOwner(requester); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state == nil || s.state.IsComplete() {
		s.mu.Unlock()
		return fmt.Errorf("no draft in progress")
	}

	s.state.Stop()
	coord := s.coord
	s.mu.Unlock()

	coord.Finish("stopped by owner", true)
	return nil
}

func (s *Session) hasUser(user draft.UserID) bool {
	for _, u := range s.users {
		if u == user {
			return true
		}
	}
	return false
}

func (s *Session) removeUser(user draft.UserID) {
	for i, u := range s.users {
		if u == user {
			s.users = append(s.users[:i], s.users[i+1:]...)
			break
		}
	}
	if s.owner == user {
		s.owner = ""
		if len(s.users) > 0 {
			s.owner = s.users[0]
		}
	}
}

func (s *Session) checkOwner(requester draft.UserID) error {
	if requester != s.owner {
		return fmt.Errorf("only the session owner may do this")
	}
	return nil
}

func (s *Session) optionsData() OptionsData {
	return OptionsData{
		SetRestriction:          s.opts.SetRestriction,
		BotCount:                s.opts.BotCount,
		BoostersPerPlayer:       s.opts.BoostersPerPlayer,
		ColorBalance:            s.opts.ColorBalance,
		FoilRate:                s.opts.FoilRate,
		MaxDuplicates:           s.opts.MaxDuplicates,
		PickedCardsPerRound:     s.opts.PickedCardsPerRound,
		BurnedCardsPerRound:     s.opts.BurnedCardsPerRound,
		DiscardRemainingCardsAt: s.opts.DiscardRemainingCardsAt,
		DistributionMode:        string(s.opts.DistributionMode),
		DraftType:               s.opts.DraftType,
		CustomCardList:          s.opts.CustomCardListText,
		CustomBoosters:          s.opts.CustomBoosters,
	}
}

func (s *Session) broadcastOptions() {
	s.mu.Lock()
	data := s.optionsData()
	s.mu.Unlock()

	if msg, err := NewMessage(MessageTypeSessionOpts, data); err == nil {
		s.sender.BroadcastToSession(s.id, msg)
	}
}

func (s *Session) broadcastUsers() {
	s.mu.Lock()
	data := SessionUsersData{
		Owner:        s.owner,
		Users:        append([]draft.UserID(nil), s.users...),
		Disconnected: s.ledger.Disconnected(),
		Bots:         s.ledger.Bots(),
	}
	s.mu.Unlock()

	if msg, err := NewMessage(MessageTypeSessionUsers, data); err == nil {
		s.sender.BroadcastToSession(s.id, msg)
	}
}

// broadcastResume tells every connected client the roster or pick
// opportunity changed, so UI and server state cannot silently diverge.
func (s *Session) broadcastResume(reason string) {
	if msg, err := NewMessage(MessageTypeResumeDraft, ResumeDraftData{Reason: reason}); err == nil {
		s.sender.BroadcastToSession(s.id, msg)
	}
}

func (s *Session) notifyOwner(notice string, user draft.UserID) {
	s.mu.Lock()
	owner := s.owner
	s.mu.Unlock()
	if owner == "" {
		return
	}
	if msg, err := NewMessage(MessageTypeOwnerNotice, OwnerNoticeData{Notice: notice, User: user}); err == nil {
		_ = s.sender.SendToUser(owner, msg)
	}
}

func (s *Session) notifyGraceExpired(user draft.UserID) {
	s.notifyOwner("grace window expired; player can be replaced with a bot", user)
}
