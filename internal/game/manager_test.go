package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/burzacoroyale/backend/internal/players"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	for a := 0; a <= 6; a++ {
		for b := 0; b <= 6; b++ {
			outA, outB := Decide(a, b)
			switch {
			case a > b:
				assert.Equal(t, OutcomeVictory, outA, "a=%d b=%d", a, b)
				assert.Equal(t, OutcomeDefeat, outB, "a=%d b=%d", a, b)
			case b > a:
				assert.Equal(t, OutcomeDefeat, outA, "a=%d b=%d", a, b)
				assert.Equal(t, OutcomeVictory, outB, "a=%d b=%d", a, b)
			default:
				assert.Equal(t, OutcomeTie, outA)
				assert.Equal(t, OutcomeTie, outB)
			}
		}
	}
}

func TestSettlementDeltas(t *testing.T) {
	cases := []struct {
		tapsA, tapsB       int
		respectA, respectB int
	}{
		{12, 9, 1, 0},
		{0, 3, 0, 1},
		{4, 4, 0, 0},
		{0, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_vs_%d", tc.tapsA, tc.tapsB), func(t *testing.T) {
			h := newHarness("p1", "p2")
			ctx := context.Background()
			h.mm.Connect("c1", "p1")
			h.mm.Connect("c2", "p2")
			_, err := h.mm.RequestMatch(ctx, "c1")
			require.NoError(t, err)
			_, err = h.mm.RequestMatch(ctx, "c2")
			require.NoError(t, err)

			require.NoError(t, h.mm.SubmitResult(ctx, "c1", tc.tapsA))
			require.NoError(t, h.mm.SubmitResult(ctx, "c2", tc.tapsB))

			assert.Equal(t, tc.respectA, h.store.get("p1").Respect)
			assert.Equal(t, tc.respectB, h.store.get("p2").Respect)
			assert.Equal(t, 1, h.store.get("p1").GamesPlayed)
			assert.Equal(t, 1, h.store.get("p2").GamesPlayed)
		})
	}
}

func TestRequestMatch_FIFO(t *testing.T) {
	h := newHarness("p1", "p2", "p3", "p4")
	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		h.mm.Connect(ConnID(fmt.Sprintf("c%d", i)), fmt.Sprintf("p%d", i))
	}

	m, err := h.mm.RequestMatch(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, m)

	first, err := h.mm.RequestMatch(ctx, "c2")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, ConnID("c1"), first.A.Conn)
	assert.Equal(t, ConnID("c2"), first.B.Conn)

	m, err = h.mm.RequestMatch(ctx, "c3")
	require.NoError(t, err)
	assert.Nil(t, m)

	second, err := h.mm.RequestMatch(ctx, "c4")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, ConnID("c3"), second.A.Conn)
	assert.Equal(t, ConnID("c4"), second.B.Conn)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, QueueStatus{Waiting: 0, LiveMatches: 2, Connected: 4}, h.mm.Status())
	assert.Equal(t, 2, h.metrics.MatchesCreated())
}

func TestRequestMatch_AlreadyQueued(t *testing.T) {
	h := newHarness("p1", "p2")
	ctx := context.Background()
	h.mm.Connect("c1", "p1")
	h.mm.Connect("c2", "p2")

	_, err := h.mm.RequestMatch(ctx, "c1")
	require.NoError(t, err)
	_, err = h.mm.RequestMatch(ctx, "c1")
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, 1, h.mm.QueuePosition("c1"))

	_, err = h.mm.RequestMatch(ctx, "c2")
	require.NoError(t, err)

	// Still playing.
	_, err = h.mm.RequestMatch(ctx, "c1")
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestRequestMatch_UnknownConnection(t *testing.T) {
	h := newHarness()
	_, err := h.mm.RequestMatch(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownConnection)
}

func TestRequestMatch_SkipsSamePlayer(t *testing.T) {
	h := newHarness("p1", "p2")
	ctx := context.Background()
	h.mm.Connect("tab1", "p1")
	h.mm.Connect("tab2", "p1")
	h.mm.Connect("c3", "p2")

	m, err := h.mm.RequestMatch(ctx, "tab1")
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = h.mm.RequestMatch(ctx, "tab2")
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, 2, h.mm.Status().Waiting)

	m, err = h.mm.RequestMatch(ctx, "c3")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, ConnID("tab1"), m.A.Conn)
	assert.Equal(t, 1, h.mm.QueuePosition("tab2"))
}

func TestEndToEnd_VictoryAndDefeat(t *testing.T) {
	h := newHarness("P1", "P2")
	ctx := context.Background()
	h.mm.Connect("c1", "P1")
	h.mm.Connect("c2", "P2")

	_, err := h.mm.RequestMatch(ctx, "c1")
	require.NoError(t, err)
	m, err := h.mm.RequestMatch(ctx, "c2")
	require.NoError(t, err)
	require.NotNil(t, m)

	start, ok := h.notes.last("c1", EventStartGame)
	require.True(t, ok)
	payload := start.Data.(StartGamePayload)
	assert.Equal(t, m.ID, payload.MatchID)
	assert.Equal(t, 5, payload.DurationSeconds)
	assert.Equal(t, "name-P1", payload.Self.Name)
	assert.Equal(t, "name-P2", payload.Opponent.Name)

	start, ok = h.notes.last("c2", EventStartGame)
	require.True(t, ok)
	assert.Equal(t, "name-P2", start.Data.(StartGamePayload).Self.Name)

	require.NoError(t, h.mm.SubmitResult(ctx, "c1", 12))
	status, _ := h.mm.MatchStatusOf(m.ID)
	assert.Equal(t, StatusPending, status)
	require.NoError(t, h.mm.SubmitResult(ctx, "c2", 9))

	assert.Equal(t, []string{EventWaiting, EventStartGame, string(OutcomeVictory), EventScoreUpdated}, h.notes.types("c1"))
	assert.Equal(t, []string{EventStartGame, string(OutcomeDefeat), EventScoreUpdated}, h.notes.types("c2"))

	score, _ := h.notes.last("c1", EventScoreUpdated)
	assert.Equal(t, ScorePayload{Respect: 1, GamesPlayed: 1}, score.Data)
	score, _ = h.notes.last("c2", EventScoreUpdated)
	assert.Equal(t, ScorePayload{Respect: 0, GamesPlayed: 1}, score.Data)

	snap, err := h.mm.GetMatch(m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, snap.Status)
	assert.Equal(t, ReasonSubmitted, snap.Reason)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "P1", snap.Result.Winner)
	assert.Equal(t, 1, h.archive.count())
	assert.Equal(t, 1, h.metrics.MatchesSettled(string(ReasonSubmitted)))
}

func TestSubmitResult_DuplicateAndStale(t *testing.T) {
	h := newHarness("p1", "p2")
	ctx := context.Background()
	h.mm.Connect("c1", "p1")
	h.mm.Connect("c2", "p2")
	_, _ = h.mm.RequestMatch(ctx, "c1")
	_, _ = h.mm.RequestMatch(ctx, "c2")

	require.NoError(t, h.mm.SubmitResult(ctx, "c1", 3))
	err := h.mm.SubmitResult(ctx, "c1", 50)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.True(t, IsSilent(err))

	require.NoError(t, h.mm.SubmitResult(ctx, "c2", 1))
	err = h.mm.SubmitResult(ctx, "c2", 1)
	assert.ErrorIs(t, err, ErrStaleMatch)

	assert.Equal(t, 1, h.store.get("p1").Respect)
	assert.Equal(t, 1, h.store.incrementsOf("p1"))
}

func TestSubmitResult_Rejections(t *testing.T) {
	h := newHarness("p1")
	h.mm.Connect("c1", "p1")

	assert.ErrorIs(t, h.mm.SubmitResult(context.Background(), "c1", -1), ErrInvalidTapCount)
	assert.ErrorIs(t, h.mm.SubmitResult(context.Background(), "c1", 4), ErrUnknownConnection)
}

func TestDisconnect_ForcesSettlement(t *testing.T) {
	h := newHarness("A", "B")
	ctx := context.Background()
	h.mm.Connect("ca", "A")
	h.mm.Connect("cb", "B")
	_, _ = h.mm.RequestMatch(ctx, "ca")
	m, err := h.mm.RequestMatch(ctx, "cb")
	require.NoError(t, err)

	require.NoError(t, h.mm.SubmitResult(ctx, "ca", 7))
	h.notes.drop("cb")
	h.mm.Disconnect(ctx, "cb")

	snap, err := h.mm.GetMatch(m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, snap.Status)
	assert.Equal(t, ReasonDisconnect, snap.Reason)
	assert.Equal(t, 7, snap.Result.Sides[0].Taps)
	assert.Equal(t, 0, snap.Result.Sides[1].Taps)
	assert.True(t, snap.Result.Sides[1].Absent)

	assert.Equal(t, 1, h.store.get("A").Respect)
	assert.Equal(t, 1, h.store.get("B").GamesPlayed)
	assert.Equal(t, 0, h.store.get("B").Respect)

	_, ok := h.notes.last("ca", string(OutcomeVictory))
	assert.True(t, ok)

	// A second disconnect is a no-op.
	h.mm.Disconnect(ctx, "ca")
	h.mm.Disconnect(ctx, "cb")
	assert.Equal(t, 1, h.store.incrementsOf("A"))
	assert.Equal(t, 1, h.store.incrementsOf("B"))
}

func TestDisconnect_UnresolvableIdentityStillSettles(t *testing.T) {
	h := newHarness("A")
	ctx := context.Background()
	h.mm.Connect("ca", "A")
	h.mm.Connect("cb", "ghost")
	_, _ = h.mm.RequestMatch(ctx, "ca")
	m, err := h.mm.RequestMatch(ctx, "cb")
	require.NoError(t, err)

	start, _ := h.notes.last("ca", EventStartGame)
	assert.Equal(t, players.DefaultName, start.Data.(StartGamePayload).Opponent.Name)

	require.NoError(t, h.mm.SubmitResult(ctx, "ca", 7))
	h.notes.drop("cb")
	h.mm.Disconnect(ctx, "cb")

	snap, _ := h.mm.GetMatch(m.ID)
	assert.Equal(t, StatusSettled, snap.Status)
	assert.True(t, snap.Result.Sides[1].Failed)
	assert.Equal(t, 1, h.store.get("A").Respect)
	assert.Equal(t, []string{EventWaiting, EventStartGame, string(OutcomeVictory), EventScoreUpdated, EventError}, h.notes.types("ca"))
}

func TestDisconnect_WhileQueued(t *testing.T) {
	h := newHarness("p1", "p2", "p3")
	ctx := context.Background()
	h.mm.Connect("c1", "p1")
	h.mm.Connect("c2", "p2")
	h.mm.Connect("c3", "p3")
	_, _ = h.mm.RequestMatch(ctx, "c1")

	h.mm.Disconnect(ctx, "c1")
	assert.Equal(t, 0, h.mm.Status().Waiting)

	m, err := h.mm.RequestMatch(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, m)
	m, err = h.mm.RequestMatch(ctx, "c3")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, ConnID("c2"), m.A.Conn)
}

func TestSettlement_PersistenceFailure(t *testing.T) {
	h := newHarness("p1", "p2")
	ctx := context.Background()
	h.store.fail("p1")
	h.mm.Connect("c1", "p1")
	h.mm.Connect("c2", "p2")
	_, _ = h.mm.RequestMatch(ctx, "c1")
	m, _ := h.mm.RequestMatch(ctx, "c2")

	require.NoError(t, h.mm.SubmitResult(ctx, "c1", 10))
	require.NoError(t, h.mm.SubmitResult(ctx, "c2", 2))

	assert.Equal(t, []string{EventWaiting, EventStartGame, string(OutcomeVictory), EventError}, h.notes.types("c1"))
	errEv, _ := h.notes.last("c1", EventError)
	assert.Equal(t, ErrorPayload{Message: "Error al actualizar puntuación"}, errEv.Data)

	// The side whose update succeeded still gets its counters, then the error.
	assert.Equal(t, []string{EventStartGame, string(OutcomeDefeat), EventScoreUpdated, EventError}, h.notes.types("c2"))
	errEv, _ = h.notes.last("c2", EventError)
	assert.Equal(t, ErrorPayload{Message: "Error al actualizar puntuación"}, errEv.Data)
	assert.Equal(t, 1, h.store.get("p2").GamesPlayed)

	snap, _ := h.mm.GetMatch(m.ID)
	assert.Equal(t, StatusSettled, snap.Status)
	assert.ErrorIs(t, snap.Result.Sides[0].Err, ErrPersistence)
	assert.Equal(t, 1, h.metrics.SettlementFailures())
}

func TestMatchStatusOf(t *testing.T) {
	h := newHarness("p1", "p2")
	ctx := context.Background()
	_, ok := h.mm.MatchStatusOf("m_unknown")
	assert.False(t, ok)

	h.mm.Connect("c1", "p1")
	h.mm.Connect("c2", "p2")
	_, _ = h.mm.RequestMatch(ctx, "c1")
	m, _ := h.mm.RequestMatch(ctx, "c2")

	status, ok := h.mm.MatchStatusOf(m.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, status)

	require.NoError(t, h.mm.SubmitResult(ctx, "c1", 3))
	require.True(t, h.mm.Expire(ctx, m.ID))
	status, _ = h.mm.MatchStatusOf(m.ID)
	assert.Equal(t, StatusSettled, status)

	snap, _ := h.mm.GetMatch(m.ID)
	assert.False(t, snap.Result.Sides[0].Absent)
	assert.True(t, snap.Result.Sides[1].Absent, "a side that never reported is scored as zero")
	assert.Equal(t, 0, snap.Result.Sides[1].Taps)
}

func TestSettlement_ExactlyOnceUnderConcurrentTriggers(t *testing.T) {
	for round := 0; round < 50; round++ {
		h := newHarness("p1", "p2")
		ctx := context.Background()
		h.mm.Connect("c1", "p1")
		h.mm.Connect("c2", "p2")
		_, _ = h.mm.RequestMatch(ctx, "c1")
		m, _ := h.mm.RequestMatch(ctx, "c2")
		h.clock.Advance(time.Minute)

		var wg sync.WaitGroup
		wg.Add(6)
		go func() { defer wg.Done(); _ = h.mm.SubmitResult(ctx, "c1", 5) }()
		go func() { defer wg.Done(); _ = h.mm.SubmitResult(ctx, "c2", 3) }()
		go func() { defer wg.Done(); _ = h.mm.SubmitResult(ctx, "c2", 8) }()
		go func() { defer wg.Done(); h.mm.Disconnect(ctx, "c2") }()
		go func() { defer wg.Done(); h.mm.Sweep(ctx) }()
		go func() { defer wg.Done(); h.mm.Expire(ctx, m.ID) }()
		wg.Wait()

		status, _ := h.mm.MatchStatusOf(m.ID)
		require.Equal(t, StatusSettled, status)
		require.Equal(t, 1, h.store.incrementsOf("p1"))
		require.Equal(t, 1, h.store.incrementsOf("p2"))
		require.Equal(t, 1, h.store.get("p1").Respect+h.store.get("p2").Respect+tieCount(h))
		require.Equal(t, 1, h.archive.count())
	}
}

// tieCount is 1 when the archived result is a tie, so respect plus ties always sums to one.
func tieCount(h *harness) int {
	h.archive.mu.Lock()
	defer h.archive.mu.Unlock()
	if h.archive.results[0].Winner == "" {
		return 1
	}
	return 0
}

func TestSweep_DeadlineAndEviction(t *testing.T) {
	h := newHarness("p1", "p2")
	ctx := context.Background()
	h.mm.Connect("c1", "p1")
	h.mm.Connect("c2", "p2")
	_, _ = h.mm.RequestMatch(ctx, "c1")
	m, _ := h.mm.RequestMatch(ctx, "c2")

	expired, evicted := h.mm.Sweep(ctx)
	assert.Zero(t, expired)
	assert.Zero(t, evicted)

	h.clock.Advance(16 * time.Second)
	expired, evicted = h.mm.Sweep(ctx)
	assert.Equal(t, 1, expired)
	assert.Zero(t, evicted)

	snap, err := h.mm.GetMatch(m.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonDeadline, snap.Reason)
	assert.Empty(t, snap.Result.Winner)
	assert.Equal(t, 1, h.store.get("p1").GamesPlayed)
	assert.Equal(t, 0, h.store.get("p1").Respect)
	_, ok := h.notes.last("c1", string(OutcomeTie))
	assert.True(t, ok)

	assert.ErrorIs(t, h.mm.SubmitResult(ctx, "c1", 9), ErrStaleMatch)

	h.clock.Advance(31 * time.Second)
	expired, evicted = h.mm.Sweep(ctx)
	assert.Zero(t, expired)
	assert.Equal(t, 1, evicted)

	_, err = h.mm.GetMatch(m.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.ErrorIs(t, h.mm.SubmitResult(ctx, "c1", 9), ErrUnknownConnection)
	assert.Equal(t, 0, h.mm.Status().LiveMatches)
}

func TestSweep_KeepsNewerMatchOfConnection(t *testing.T) {
	h := newHarness("p1", "p2")
	ctx := context.Background()
	h.mm.Connect("c1", "p1")
	h.mm.Connect("c2", "p2")
	_, _ = h.mm.RequestMatch(ctx, "c1")
	first, _ := h.mm.RequestMatch(ctx, "c2")
	require.NoError(t, h.mm.SubmitResult(ctx, "c1", 1))
	require.NoError(t, h.mm.SubmitResult(ctx, "c2", 2))

	// Rematch right away, then let the first match age out.
	_, err := h.mm.RequestMatch(ctx, "c1")
	require.NoError(t, err)
	second, err := h.mm.RequestMatch(ctx, "c2")
	require.NoError(t, err)
	require.NotNil(t, second)
	require.NoError(t, h.mm.SubmitResult(ctx, "c1", 4))

	// The first match ages out; the second one is forced to settle by its deadline.
	h.clock.Advance(35 * time.Second)
	expired, evicted := h.mm.Sweep(ctx)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, evicted)

	_, err = h.mm.GetMatch(first.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	snap, err := h.mm.GetMatch(second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, snap.Status)
	assert.Equal(t, ReasonDeadline, snap.Reason)
	assert.Equal(t, 4, snap.Result.Sides[0].Taps)
}

func TestStartReaper_StopsOnCancel(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.mm.StartReaper(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
