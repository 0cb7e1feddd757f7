package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/packdraft/internal/draft"
)

func TestSessionFirstJoinerOwns(t *testing.T) {
	sess, _ := newTestSession(t)

	joined := sess.Join("alice", "c1")
	assert.Equal(t, draft.UserID("alice"), joined.Owner)
	assert.Equal(t, []draft.UserID{"alice"}, joined.Users)

	joined = sess.Join("bob", "c2")
	assert.Equal(t, draft.UserID("alice"), joined.Owner)
	assert.Equal(t, []draft.UserID{"alice", "bob"}, joined.Users)
}

func TestSessionLeaveTransfersOwnership(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")

	sess.Leave("alice", "c1")
	assert.Equal(t, draft.UserID("bob"), sess.Owner())
	assert.Equal(t, []draft.UserID{"bob"}, sess.Users())
}

func TestSessionOptionsRequireOwner(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")

	err := sess.SetBots("bob", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner")

	require.NoError(t, sess.SetBots("alice", 3))
}

func TestSessionOptionValidation(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")

	assert.Error(t, sess.SetBots("alice", -1))
	assert.Error(t, sess.SetFoil("alice", 1.5))
	assert.Error(t, sess.SetPickedCardsPerRound("alice", 0))
	assert.Error(t, sess.SetBurnedCardsPerRound("alice", -1))
	assert.Error(t, sess.SetDistributionMode("alice", "bogus"))
	assert.Error(t, sess.SetDraftType("alice", "bogus"))
	assert.Error(t, sess.SetCustomCardList("alice", "No Such Card"))

	require.NoError(t, sess.SetDraftType("alice", "winston"))
	require.NoError(t, sess.SetDistributionMode("alice", "shuffleBoosterPool"))
	require.NoError(t, sess.SetFoil("alice", 0.25))
}

func TestSessionSetterBroadcastsOptions(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")

	require.NoError(t, sess.SetMaxDuplicates("alice", 2))

	msg := sender.lastBroadcast(MessageTypeSessionOpts)
	require.NotNil(t, msg)

	var opts OptionsData
	require.NoError(t, json.Unmarshal(msg.Data, &opts))
	assert.Equal(t, 2, opts.MaxDuplicates)
}

func TestSessionSetRestrictionNormalizesAliases(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")

	require.NoError(t, sess.SetRestriction("alice", []string{"dar", "tst"}))
	sess.mu.Lock()
	defer sess.mu.Unlock()
	assert.Equal(t, []string{"dom", "tst"}, sess.opts.SetRestriction)
}

func TestStartDraftRequiresSeats(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")

	err := sess.StartDraft("alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "two seats")

	require.NoError(t, sess.SetDraftType("alice", "winston"))
	require.NoError(t, sess.SetBots("alice", 2))
	err = sess.StartDraft("alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly two")
}

func TestSealedDistributesAndEndsImmediately(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")
	require.NoError(t, sess.SetDraftType("alice", "sealed"))

	require.NoError(t, sess.StartDraft("alice"))

	end := sender.lastBroadcast(MessageTypeDraftEnd)
	require.NotNil(t, end)

	var data DraftEndData
	require.NoError(t, json.Unmarshal(end.Data, &data))
	assert.Equal(t, "complete", data.Reason)
	require.NotNil(t, data.Log)
	assert.Equal(t, "sealed", data.Log.Type)
	assert.Len(t, data.Log.Pools["alice"], 45) // 3 packs of 15
}

func TestRegularDraftHumanOnly(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")

	require.NoError(t, sess.StartDraft("alice"))

	// Both seats get an opening view with a full pack.
	for _, user := range []draft.UserID{"alice", "bob"} {
		msg := sender.lastToUser(user, MessageTypeDraftState)
		require.NotNil(t, msg, "no view for %s", user)

		var data DraftStateData
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Len(t, data.View.Booster, 15)
		assert.False(t, data.View.SkipPick)
	}

	// Double start is rejected.
	assert.Error(t, sess.StartDraft("alice"))

	// Options are frozen mid-draft.
	assert.Error(t, sess.SetBots("alice", 1))

	require.NoError(t, sess.PickCard("alice", PickCardData{PickNumber: 0, PickedCards: []int{3}}))
	assert.ErrorIs(t, sess.PickCard("alice", PickCardData{PickNumber: 0, PickedCards: []int{0}}), draft.ErrAlreadyPicked)
	assert.ErrorIs(t, sess.PickCard("bob", PickCardData{PickNumber: 5, PickedCards: []int{0}}), draft.ErrStalePick)
	require.NoError(t, sess.PickCard("bob", PickCardData{PickNumber: 0, PickedCards: []int{0}}))

	sess.mu.Lock()
	assert.Equal(t, 1, sess.state.PickNumber())
	sess.mu.Unlock()
}

func TestRegularDraftWithBotCompletes(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")
	require.NoError(t, sess.SetBots("alice", 1))

	require.NoError(t, sess.StartDraft("alice"))
	drainDraft(t, sess, "alice")

	end := sender.lastBroadcast(MessageTypeDraftEnd)
	require.NotNil(t, end)

	var data DraftEndData
	require.NoError(t, json.Unmarshal(end.Data, &data))
	require.NotNil(t, data.Log)
	assert.Len(t, data.Log.Pools["alice"], 45)
	assert.Len(t, data.Log.Pools["Bot #1"], 45)
	assert.Len(t, data.Log.Picks, 90)
	assert.False(t, data.Log.Stopped)
}

func TestStopDraft(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")

	require.NoError(t, sess.StartDraft("alice"))
	assert.Error(t, sess.StopDraft("bob"))
	require.NoError(t, sess.StopDraft("alice"))

	end := sender.lastBroadcast(MessageTypeDraftEnd)
	require.NotNil(t, end)

	var data DraftEndData
	require.NoError(t, json.Unmarshal(end.Data, &data))
	assert.Equal(t, "stopped by owner", data.Reason)
	require.NotNil(t, data.Log)
	assert.True(t, data.Log.Stopped)

	assert.ErrorIs(t, sess.PickCard("alice", PickCardData{PickedCards: []int{0}}), draft.ErrDraftComplete)
}

func TestReconnectGetsResync(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")
	require.NoError(t, sess.StartDraft("alice"))

	require.NoError(t, sess.PickCard("bob", PickCardData{PickNumber: 0, PickedCards: []int{2}}))

	// Mid-draft disconnect holds the seat.
	sess.Leave("bob", "c2")
	assert.Equal(t, SeatDisconnected, sess.Ledger().Status("bob"))
	assert.Contains(t, sess.Users(), draft.UserID("bob"))

	// The owner hears about it.
	notice := sender.lastToUser("alice", MessageTypeOwnerNotice)
	require.NotNil(t, notice)

	// Rejoin restores picks and the live view.
	sess.Join("bob", "c3")
	msg := sender.lastToUser("bob", MessageTypeResync)
	require.NotNil(t, msg)

	var resync ResyncData
	require.NoError(t, json.Unmarshal(msg.Data, &resync))
	assert.Equal(t, "room", resync.SessionID)
	require.NotNil(t, resync.Picked)
	assert.Len(t, resync.Picked.Main, 1)
	require.NotNil(t, resync.View)
	assert.Equal(t, 0, resync.View.PickNumber)
	assert.True(t, resync.View.SkipPick) // bob already picked this round
}

func TestStaleLeaveIgnoredAfterReconnect(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")
	require.NoError(t, sess.StartDraft("alice"))

	// bob's socket goes quiet and he reconnects before the old read loop
	// notices. When the c2 teardown finally lands the seat must stay live.
	sess.Join("bob", "c3")
	sess.Leave("bob", "c2")

	assert.Equal(t, SeatConnected, sess.Ledger().Status("bob"))
	assert.Nil(t, sender.lastToUser("alice", MessageTypeOwnerNotice))

	// The current connection still detaches normally.
	sess.Leave("bob", "c3")
	assert.Equal(t, SeatDisconnected, sess.Ledger().Status("bob"))
}

func TestStaleLeaveKeepsRosterBeforeDraft(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")

	sess.Join("bob", "c3")
	sess.Leave("bob", "c2")
	assert.Equal(t, []draft.UserID{"alice", "bob"}, sess.Users())

	sess.Leave("bob", "c3")
	assert.Equal(t, []draft.UserID{"alice"}, sess.Users())
}

func TestReplaceDisconnectedPlayers(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")
	require.NoError(t, sess.StartDraft("alice"))

	sess.Leave("bob", "c2")
	assert.Error(t, sess.ReplaceDisconnectedPlayers("bob"))
	require.NoError(t, sess.ReplaceDisconnectedPlayers("alice"))
	assert.True(t, sess.Ledger().IsBot("bob"))

	// The bot now drives bob's seat to completion.
	drainDraft(t, sess, "alice")
}

func TestMoveCard(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	require.NoError(t, sess.SetDraftType("alice", "sealed"))
	require.NoError(t, sess.StartDraft("alice"))

	sess.mu.Lock()
	pool := sess.state.Pool("alice")
	uniqueID := pool.Main[0].UniqueID
	sess.mu.Unlock()

	require.NoError(t, sess.MoveCard("alice", uniqueID, true))
	sess.mu.Lock()
	assert.Len(t, pool.Side, 1)
	assert.Len(t, pool.Main, 44)
	sess.mu.Unlock()

	assert.Error(t, sess.MoveCard("alice", 999999, true))
	assert.ErrorIs(t, sess.MoveCard("mallory", uniqueID, true), draft.ErrUnknownPlayer)
}

func TestSessionEmpty(t *testing.T) {
	sess, _ := newTestSession(t)
	assert.True(t, sess.Empty())

	sess.Join("alice", "c1")
	assert.False(t, sess.Empty())

	sess.Leave("alice", "c1")
	assert.True(t, sess.Empty())
}

func TestSessionEmptyHeldOpenByRunningDraft(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")
	require.NoError(t, sess.StartDraft("alice"))

	sess.Leave("alice", "c1")
	sess.Leave("bob", "c2")
	assert.False(t, sess.Empty(), "a running draft keeps the session alive")
}

func TestWinstonDraftOverWire(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")
	require.NoError(t, sess.SetDraftType("alice", "winston"))

	require.NoError(t, sess.StartDraft("alice"))

	require.NoError(t, sess.WinstonMove("alice", false)) // skip pile 0
	require.NoError(t, sess.WinstonMove("alice", true))  // take pile 1
	assert.ErrorIs(t, sess.WinstonMove("alice", true), draft.ErrNotYourTurn)

	msg := sender.lastToUser("bob", MessageTypeDraftState)
	require.NotNil(t, msg)

	var data DraftStateData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, draft.UserID("bob"), data.View.CurrentPlayer)
	assert.Len(t, data.View.PileSizes, 3)
}

func TestWinstonRejectsPickCard(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")
	require.NoError(t, sess.SetDraftType("alice", "winston"))
	require.NoError(t, sess.StartDraft("alice"))

	assert.ErrorIs(t, sess.PickCard("alice", PickCardData{PickedCards: []int{0}}), draft.ErrInvalidPick)
}

func TestRotisserieDraftOverWire(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")
	require.NoError(t, sess.SetDraftType("alice", "rotisserie"))

	sess.mu.Lock()
	sess.opts.CardsPerPlayer = 3
	sess.mu.Unlock()

	require.NoError(t, sess.StartDraft("alice"))

	// Palindrome order for two seats: alice, bob, bob, alice, ...
	require.NoError(t, sess.PickCard("alice", PickCardData{PickNumber: 0, PickedCards: []int{0}}))
	assert.ErrorIs(t, sess.PickCard("alice", PickCardData{PickNumber: 1, PickedCards: []int{1}}), draft.ErrNotYourTurn)
	require.NoError(t, sess.PickCard("bob", PickCardData{PickNumber: 1, PickedCards: []int{1}}))
	require.NoError(t, sess.PickCard("bob", PickCardData{PickNumber: 2, PickedCards: []int{2}}))
	require.NoError(t, sess.PickCard("alice", PickCardData{PickNumber: 3, PickedCards: []int{3}}))

	// Claimed cards are rejected.
	assert.ErrorIs(t, sess.PickCard("alice", PickCardData{PickNumber: 4, PickedCards: []int{0}}), draft.ErrInvalidPick)

	msg := sender.lastToUser("bob", MessageTypeDraftState)
	require.NotNil(t, msg)

	var data DraftStateData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.NotEmpty(t, data.View.SharedCards)

	require.NoError(t, sess.PickCard("alice", PickCardData{PickNumber: 4, PickedCards: []int{4}}))
	require.NoError(t, sess.PickCard("bob", PickCardData{PickNumber: 5, PickedCards: []int{5}}))

	sess.mu.Lock()
	assert.True(t, sess.state.IsComplete())
	sess.mu.Unlock()
}

func TestCustomCardListDraft(t *testing.T) {
	sess, _ := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")

	// One common drawn with replacement, default 15-card packs.
	require.NoError(t, sess.SetCustomCardList("alice", "[Settings]\n{\"withReplacement\": true}\n1 common 0\n"))
	require.NoError(t, sess.StartDraft("alice"))

	sess.mu.Lock()
	view := sess.state.SyncView("alice")
	sess.mu.Unlock()
	assert.Len(t, view.Booster, 15)
}

func TestGraceExpiryNotifiesOwner(t *testing.T) {
	sess, sender := newTestSession(t)
	sess.Join("alice", "c1")
	sess.Join("bob", "c2")
	require.NoError(t, sess.StartDraft("alice"))

	sess.Leave("bob", "c2")
	sess.Ledger().graceExpired("bob")

	var notice *Message
	require.Eventually(t, func() bool {
		notice = sender.lastToUser("alice", MessageTypeOwnerNotice)
		return notice != nil
	}, time.Second, 5*time.Millisecond)

	var data OwnerNoticeData
	require.NoError(t, json.Unmarshal(notice.Data, &data))
	assert.Equal(t, draft.UserID("bob"), data.User)
}
