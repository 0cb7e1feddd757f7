package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/packdraft/internal/booster"
	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/draft"
)

func TestFillBatch(t *testing.T) {
	tests := []struct {
		name         string
		choice, size int
		pick, burn   int
		wantPicked   []int
		wantBurned   []int
	}{
		{"single pick", 3, 15, 1, 0, []int{3}, nil},
		{"pick two", 3, 15, 2, 0, []int{3, 0}, nil},
		{"pick and burn", 0, 5, 1, 2, []int{0}, []int{1, 2}},
		{"quotas clamp to pack", 0, 2, 2, 2, []int{0, 1}, nil},
		{"burn clamps to remainder", 1, 3, 1, 5, []int{1}, []int{0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picked, burned := fillBatch(tt.choice, tt.size, tt.pick, tt.burn)
			assert.Equal(t, tt.wantPicked, picked)
			assert.Equal(t, tt.wantBurned, burned)
		})
	}
}

func TestIdsAt(t *testing.T) {
	b := makeServerBooster(t, 3)
	ids, err := idsAt(b, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []cards.CardID{b[2].ID, b[0].ID}, ids)

	_, err = idsAt(b, []int{3})
	assert.ErrorIs(t, err, draft.ErrInvalidPick)
}

// makeServerBooster mints a small booster straight from the test database.
func makeServerBooster(t *testing.T, n int) booster.Booster {
	t.Helper()
	db := serverTestDatabase(t)
	pool := db.CardsInSets([]string{"tst"})
	require.GreaterOrEqual(t, len(pool), n)

	var b booster.Booster
	for i := 0; i < n; i++ {
		b = append(b, cards.Mint(pool[i]))
	}
	return b
}

func TestStaleBotPickDropped(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	require.NoError(t, sess.SetBots("alice", 1))
	require.NoError(t, sess.StartDraft("alice"))

	// Wait for the opening bot pick so the round can advance.
	waitForPickNumber(t, sess, 0, true)

	sess.mu.Lock()
	coord := sess.coord
	bot := draft.UserID("Bot #1")
	view := sess.state.SyncView(bot)
	stale := botPickRequest{
		user:    bot,
		stamp:   sess.state.PickNumber() - 1, // a round that already closed
		choices: append(booster.Booster(nil), view.Booster...),
	}
	coord.pending[bot] = true
	picksBefore := len(coord.picks)
	sess.mu.Unlock()

	coord.runBotPick(stale)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// The stale result is discarded without touching the log; any pick made
	// since came from the freshly issued request against the live round.
	for _, p := range coord.picks[picksBefore:] {
		assert.NotEqual(t, stale.stamp, p.PickNumber,
			"no pick may be recorded against the stale round")
	}
}

func TestBotDrivesWinstonOpponent(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	require.NoError(t, sess.SetDraftType("alice", "winston"))
	require.NoError(t, sess.SetBots("alice", 1))
	require.NoError(t, sess.StartDraft("alice"))

	// Alice takes the first pile; the bot should then move on its own.
	require.NoError(t, sess.WinstonMove("alice", true))
	waitForTurn(t, sess, "alice")
}

func waitForPickNumber(t *testing.T, sess *Session, pickNumber int, humanPicks bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess.mu.Lock()
		current := sess.state.PickNumber()
		needs := sess.state.NeedsPick("alice")
		sess.mu.Unlock()

		if current > pickNumber {
			return
		}
		if humanPicks && current == pickNumber && needs {
			err := sess.PickCard("alice", PickCardData{PickNumber: pickNumber, PickedCards: []int{0}})
			if err != nil {
				require.Contains(t, []error{draft.ErrStalePick, draft.ErrAlreadyPicked}, err)
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("round %d never closed", pickNumber)
}

func waitForTurn(t *testing.T, sess *Session, user draft.UserID) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess.mu.Lock()
		needs := sess.state.NeedsPick(user)
		complete := sess.state.IsComplete()
		sess.mu.Unlock()
		if needs || complete {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("turn never returned to %s", user)
}
