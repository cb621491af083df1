package game

import (
	"context"
	"fmt"
	"time"

	"github.com/burzacoroyale/backend/internal/metrics"
	"github.com/burzacoroyale/backend/internal/players"
	"github.com/charmbracelet/log"
)

const scoreUpdateFailedMessage = "Error al actualizar puntuación"

// SideResult is the settlement outcome for one participant.
type SideResult struct {
	Conn             ConnID  `json:"-"`
	PlayerID         string  `json:"playerId"`
	Taps             int     `json:"taps"`
	Absent           bool    `json:"absent"` // Taps defaulted to zero
	Outcome          Outcome `json:"outcome"`
	RespectDelta     int     `json:"respectDelta"`
	GamesPlayedDelta int     `json:"gamesPlayedDelta"`
	Respect          int     `json:"respect"`
	GamesPlayed      int     `json:"gamesPlayed"`
	Failed           bool    `json:"failed"`
	Err              error   `json:"-"`
}

// Result is computed once per match.
type Result struct {
	MatchID string        `json:"matchId"`
	Winner  string        `json:"winner,omitempty"`
	Reason  SettleReason  `json:"reason"`
	Sides   [2]SideResult `json:"sides"`
	Settled time.Time     `json:"settledAt"`
}

// Decide applies the winner rule: strictly more taps wins, equal counts tie.
func Decide(tapsA, tapsB int) (Outcome, Outcome) {
	switch {
	case tapsA > tapsB:
		return OutcomeVictory, OutcomeDefeat
	case tapsB > tapsA:
		return OutcomeDefeat, OutcomeVictory
	default:
		return OutcomeTie, OutcomeTie
	}
}

// deltaFor returns the counter change for an outcome.
func deltaFor(o Outcome) players.Delta {
	if o == OutcomeVictory {
		return players.Delta{Respect: 1, GamesPlayed: 1}
	}
	return players.Delta{GamesPlayed: 1}
}

// Engine turns a match in Settling state into persisted counters and client
// notifications. Callers guarantee Settle runs once per match.
type Engine struct {
	store    PlayerStore
	notifier Notifier
	archive  Archive
	metrics  metrics.Metrics
	timeout  time.Duration
	logger   *log.Logger
}

func NewEngine(store PlayerStore, notifier Notifier, archive Archive, m metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.NewMock()
	}
	return &Engine{
		store:    store,
		notifier: notifier,
		archive:  archive,
		metrics:  m,
		timeout:  5 * time.Second,
		logger:   log.WithPrefix("SETTLE"),
	}
}

// Settle decides m, applies each participant's counters independently and
// notifies whichever participants are still connected. Store failures are
// reported to both participants; the other side is still applied.
func (e *Engine) Settle(ctx context.Context, m *Match) *Result {
	start := time.Now()

	// A closing connection can trigger settlement; its context must not abort the writes.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	tapsA, missingA := m.tapsOf(m.A.Conn)
	tapsB, missingB := m.tapsOf(m.B.Conn)
	outA, outB := Decide(tapsA, tapsB)

	res := &Result{
		MatchID: m.ID,
		Reason:  m.Reason,
		Sides: [2]SideResult{
			{Conn: m.A.Conn, PlayerID: m.A.PlayerID, Taps: tapsA, Absent: missingA, Outcome: outA},
			{Conn: m.B.Conn, PlayerID: m.B.PlayerID, Taps: tapsB, Absent: missingB, Outcome: outB},
		},
	}
	switch {
	case outA == OutcomeVictory:
		res.Winner = m.A.PlayerID
	case outB == OutcomeVictory:
		res.Winner = m.B.PlayerID
	}

	for i := range res.Sides {
		e.apply(ctx, &res.Sides[i])
	}

	failed := res.Sides[0].Failed || res.Sides[1].Failed
	for i := range res.Sides {
		e.notify(m.ID, &res.Sides[i], failed)
	}

	res.Settled = time.Now()
	e.metrics.ObserveSettlementDuration(time.Since(start).Seconds())

	e.logger.Info("match settled",
		"match", m.ID,
		"reason", m.Reason,
		"a", m.A.PlayerID, "taps_a", tapsA,
		"b", m.B.PlayerID, "taps_b", tapsB,
		"winner", res.Winner)

	if e.archive != nil {
		if err := e.archive.Save(ctx, res); err != nil {
			e.logger.Warn("archive failed", "match", m.ID, "err", err)
		}
	}

	return res
}

func (e *Engine) apply(ctx context.Context, side *SideResult) {
	d := deltaFor(side.Outcome)
	side.RespectDelta = d.Respect
	side.GamesPlayedDelta = d.GamesPlayed

	updated, err := e.store.IncrementCounters(ctx, side.PlayerID, d)
	if err != nil {
		side.Failed = true
		side.Err = fmt.Errorf("%w: player %s: %v", ErrPersistence, side.PlayerID, err)
		e.metrics.IncSettlementFailures()
		e.logger.Error("counter update failed", "player", side.PlayerID, "outcome", side.Outcome, "err", err)
		return
	}
	side.Respect = updated.Respect
	side.GamesPlayed = updated.GamesPlayed
}

// notify sends the outcome to one side, then its new counters. When either
// side's update failed, both connected sides also get the score error.
func (e *Engine) notify(matchID string, side *SideResult, matchFailed bool) {
	if e.notifier == nil {
		return
	}
	if !e.notifier.Notify(side.Conn, outcomeEvent(side.Outcome, matchID)) {
		e.logger.Debug("participant gone, result dropped", "match", matchID, "player", side.PlayerID)
		return
	}
	if !side.Failed {
		e.notifier.Notify(side.Conn, Event{
			Type: EventScoreUpdated,
			Data: ScorePayload{Respect: side.Respect, GamesPlayed: side.GamesPlayed},
		})
	}
	if matchFailed {
		e.notifier.Notify(side.Conn, ErrorEvent(scoreUpdateFailedMessage))
	}
}
