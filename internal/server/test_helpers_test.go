package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/packdraft/internal/bot"
	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/draft"
	"github.com/lox/packdraft/internal/randutil"
)

// fakeSender records everything the session layer pushes out.
type fakeSender struct {
	mu        sync.Mutex
	toUser    map[draft.UserID][]*Message
	broadcast []*Message
}

func newFakeSender() *fakeSender {
	return &fakeSender{toUser: make(map[draft.UserID][]*Message)}
}

func (f *fakeSender) SendToUser(user draft.UserID, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toUser[user] = append(f.toUser[user], msg)
	return nil
}

func (f *fakeSender) BroadcastToSession(_ string, msg *Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, msg)
}

func (f *fakeSender) lastBroadcast(msgType MessageType) *Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.broadcast) - 1; i >= 0; i-- {
		if f.broadcast[i].Type == msgType {
			return f.broadcast[i]
		}
	}
	return nil
}

func (f *fakeSender) lastToUser(user draft.UserID, msgType MessageType) *Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.toUser[user]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == msgType {
			return msgs[i]
		}
	}
	return nil
}

// serverTestDatabase stocks one set deep enough for several multi-pack drafts.
func serverTestDatabase(t *testing.T) *cards.Database {
	t.Helper()

	var records []cards.Card
	colors := []cards.Color{cards.White, cards.Blue, cards.Black, cards.Red, cards.Green}
	add := func(prefix string, rarity cards.Rarity, n int) {
		for i := 0; i < n; i++ {
			records = append(records, cards.Card{
				ID:              cards.CardID(fmt.Sprintf("tst-%s%03d", prefix, i)),
				Name:            fmt.Sprintf("%s %d", rarity, i),
				Set:             "tst",
				CollectorNumber: fmt.Sprintf("%s%d", prefix, i),
				Rarity:          rarity,
				Colors:          []cards.Color{colors[i%len(colors)]},
			})
		}
	}
	add("c", cards.RarityCommon, 200)
	add("u", cards.RarityUncommon, 80)
	add("r", cards.RarityRare, 40)
	add("m", cards.RarityMythic, 20)

	return cards.NewDatabase(records)
}

func newTestSession(t *testing.T) (*Session, *fakeSender) {
	t.Helper()

	db := serverTestDatabase(t)
	sender := newFakeSender()
	rng := randutil.New(42)
	oracle := bot.WithFallback(bot.NewRandomOracle(randutil.Fork(rng)), randutil.Fork(rng), testLogger())

	sess := NewSession("room", sender, db, oracle, rng, quartz.NewReal(), time.Minute, "", testLogger())
	return sess, sender
}

// drainDraft plays the given human seat with first-legal-index picks until the
// draft completes. Bot rounds in between are driven by the coordinator's own
// goroutines.
func drainDraft(t *testing.T, sess *Session, user draft.UserID) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "draft never completed")

		sess.mu.Lock()
		st := sess.state
		require.NotNil(t, st)
		complete := st.IsComplete()
		needs := st.NeedsPick(user)
		pickNumber := st.PickNumber()
		sess.mu.Unlock()

		if complete {
			return
		}
		if !needs {
			time.Sleep(time.Millisecond)
			continue
		}

		err := sess.PickCard(user, PickCardData{PickNumber: pickNumber, PickedCards: []int{0}})
		if err != nil {
			// A bot may have advanced the round between snapshot and pick.
			require.Contains(t, []error{draft.ErrStalePick, draft.ErrAlreadyPicked}, err)
		}
	}
}
