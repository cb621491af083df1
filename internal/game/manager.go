package game

import (
	"context"
	"sync"
	"time"

	"github.com/burzacoroyale/backend/internal/metrics"
	"github.com/burzacoroyale/backend/internal/players"
	"github.com/charmbracelet/log"
)

// Options tune round timing.
type Options struct {
	// RoundDuration is the client countdown announced in startGame.
	RoundDuration time.Duration
	// ResultDeadline is measured from pairing; overdue pending matches are force-settled.
	ResultDeadline time.Duration
	// SettledGrace is how long settled matches stay around to absorb late messages.
	SettledGrace time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RoundDuration <= 0 {
		o.RoundDuration = 5 * time.Second
	}
	if o.ResultDeadline <= 0 {
		o.ResultDeadline = o.RoundDuration + 10*time.Second
	}
	if o.SettledGrace <= 0 {
		o.SettledGrace = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Deps are the collaborators of a MatchManager.
type Deps struct {
	Store    PlayerStore
	Notifier Notifier
	Archive  Archive
	Metrics  metrics.Metrics
}

// QueueStatus is a point-in-time view of matchmaking load.
type QueueStatus struct {
	Waiting     int `json:"waiting"`
	LiveMatches int `json:"liveMatches"`
	Connected   int `json:"connected"`
}

// MatchManager owns the connection registry, the waiting queue and the live
// match table. Every mutation happens under mu; store I/O and notifications
// happen after mu is released.
type MatchManager struct {
	mu       sync.RWMutex
	registry *Registry
	queue    *Queue
	matches  map[string]*Match // match ID -> match
	byConn   map[ConnID]*Match // latest match of a connection

	store    PlayerStore
	notifier Notifier
	engine   *Engine
	metrics  metrics.Metrics
	opts     Options
	logger   *log.Logger
}

func NewMatchManager(deps Deps, opts Options) *MatchManager {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMock()
	}
	return &MatchManager{
		registry: NewRegistry(),
		queue:    NewQueue(),
		matches:  make(map[string]*Match),
		byConn:   make(map[ConnID]*Match),
		store:    deps.Store,
		notifier: deps.Notifier,
		engine:   NewEngine(deps.Store, deps.Notifier, deps.Archive, deps.Metrics),
		metrics:  deps.Metrics,
		opts:     opts.withDefaults(),
		logger:   log.WithPrefix("MATCHMAKER"),
	}
}

// Connect registers the identity a connection authenticated as.
func (mm *MatchManager) Connect(conn ConnID, playerID string) {
	mm.mu.Lock()
	mm.registry.Register(conn, playerID)
	mm.mu.Unlock()
	mm.logger.Debug("connection registered", "conn", conn, "player", playerID)
}

// RequestMatch pairs conn with the oldest waiting connection of another player,
// or queues it. The returned match is nil when conn was queued.
func (mm *MatchManager) RequestMatch(ctx context.Context, conn ConnID) (*Match, error) {
	mm.mu.Lock()
	playerID, ok := mm.registry.Lookup(conn)
	if !ok {
		mm.mu.Unlock()
		return nil, ErrUnknownConnection
	}
	if mm.queue.Contains(conn) || mm.inPlay(conn) {
		mm.mu.Unlock()
		mm.logger.Warn("duplicate match request rejected", "conn", conn, "player", playerID)
		return nil, ErrAlreadyQueued
	}

	now := mm.opts.Now()
	opponent, found := mm.queue.PopFirst(func(e QueueEntry) bool { return e.PlayerID != playerID })
	if !found {
		mm.queue.Push(QueueEntry{Conn: conn, PlayerID: playerID, EnqueuedAt: now})
		queued := mm.queue.Len()
		mm.mu.Unlock()

		mm.metrics.IncQueued()
		mm.metrics.SetQueueLength(queued)
		mm.logger.Info("waiting for opponent", "conn", conn, "player", playerID, "queue_len", queued)
		mm.send(conn, Event{Type: EventWaiting, Data: struct{}{}})
		return nil, nil
	}

	m := mm.createMatchLocked(
		Participant{Conn: opponent.Conn, PlayerID: opponent.PlayerID},
		Participant{Conn: conn, PlayerID: playerID},
		now,
	)
	queued, live := mm.queue.Len(), len(mm.matches)
	mm.mu.Unlock()

	mm.metrics.IncMatchesCreated()
	mm.metrics.ObserveQueueWait(now.Sub(opponent.EnqueuedAt).Seconds())
	mm.metrics.SetQueueLength(queued)
	mm.metrics.SetLiveMatches(live)
	mm.logger.Info("match created", "match", m.ID, "a", m.A.PlayerID, "b", m.B.PlayerID)

	mm.announce(ctx, m)
	return m, nil
}

// createMatchLocked builds and tracks a new match. Caller holds mu.
func (mm *MatchManager) createMatchLocked(a, b Participant, now time.Time) *Match {
	createdAt := now
	m := newMatch(a, b, createdAt, createdAt.Add(mm.opts.ResultDeadline))
	for _, exists := mm.matches[m.ID]; exists; _, exists = mm.matches[m.ID] {
		createdAt = createdAt.Add(time.Nanosecond)
		m = newMatch(a, b, createdAt, createdAt.Add(mm.opts.ResultDeadline))
	}
	mm.matches[m.ID] = m
	mm.byConn[a.Conn] = m
	mm.byConn[b.Conn] = m
	return m
}

// inPlay reports whether conn belongs to a match that has not settled yet. Caller holds mu.
func (mm *MatchManager) inPlay(conn ConnID) bool {
	m, ok := mm.byConn[conn]
	return ok && m.Status != StatusSettled
}

// announce sends startGame to both participants, each from their own point of view.
func (mm *MatchManager) announce(ctx context.Context, m *Match) {
	cardA := mm.card(ctx, m.A.PlayerID)
	cardB := mm.card(ctx, m.B.PlayerID)
	secs := int(mm.opts.RoundDuration / time.Second)

	mm.send(m.A.Conn, Event{Type: EventStartGame, Data: StartGamePayload{
		MatchID: m.ID, DurationSeconds: secs, Self: cardA, Opponent: cardB,
	}})
	mm.send(m.B.Conn, Event{Type: EventStartGame, Data: StartGamePayload{
		MatchID: m.ID, DurationSeconds: secs, Self: cardB, Opponent: cardA,
	}})
}

// card loads display data for playerID, falling back to an anonymous card.
func (mm *MatchManager) card(ctx context.Context, playerID string) PlayerCard {
	card := PlayerCard{Name: players.DefaultName}
	if mm.store == nil {
		return card
	}
	p, err := mm.store.FindByIdentity(ctx, playerID)
	if err != nil {
		mm.logger.Warn("player lookup failed for startGame", "player", playerID, "err", err)
		return card
	}
	card.Name = p.Name
	card.Respect = p.Respect
	rank, err := mm.store.RankOf(ctx, playerID)
	if err != nil {
		mm.logger.Warn("rank lookup failed for startGame", "player", playerID, "err", err)
		return card
	}
	card.Rank = rank
	return card
}

// SubmitResult records the final tap count of conn in its current match and
// settles the match once both results are known.
func (mm *MatchManager) SubmitResult(ctx context.Context, conn ConnID, taps int) error {
	if taps < 0 {
		return ErrInvalidTapCount
	}

	mm.mu.Lock()
	m, ok := mm.byConn[conn]
	if !ok {
		mm.mu.Unlock()
		mm.logger.Warn("result from connection without a match", "conn", conn, "taps", taps)
		return ErrUnknownConnection
	}
	if err := m.record(conn, taps); err != nil {
		mm.mu.Unlock()
		mm.logger.Debug("result ignored", "match", m.ID, "conn", conn, "taps", taps, "err", err)
		return err
	}
	ready := m.complete() && m.beginSettling(ReasonSubmitted)
	mm.mu.Unlock()

	mm.logger.Info("result recorded", "match", m.ID, "conn", conn, "taps", taps)
	if ready {
		mm.settle(ctx, m)
	}
	return nil
}

// Disconnect forgets conn. A waiting connection leaves the queue; a participant
// of a pending match is scored as zero taps if it never reported.
func (mm *MatchManager) Disconnect(ctx context.Context, conn ConnID) {
	mm.mu.Lock()
	leftQueue := mm.queue.Remove(conn)
	mm.registry.Remove(conn)
	queued := mm.queue.Len()

	var ready, absent bool
	m, inMatch := mm.byConn[conn]
	if inMatch && m.markAbsent(conn) {
		absent = true
		ready = m.complete() && m.beginSettling(ReasonDisconnect)
	}
	mm.mu.Unlock()

	if leftQueue {
		mm.metrics.SetQueueLength(queued)
		mm.logger.Info("left queue on disconnect", "conn", conn)
	}
	if absent {
		mm.logger.Info("participant left before reporting, scored as zero", "match", m.ID, "conn", conn)
	}
	if ready {
		mm.settle(ctx, m)
	}
}

// settle runs the engine for a match this goroutine moved to Settling.
func (mm *MatchManager) settle(ctx context.Context, m *Match) {
	res := mm.engine.Settle(ctx, m)

	mm.mu.Lock()
	m.markSettled(mm.opts.Now(), res)
	live := len(mm.matches)
	mm.mu.Unlock()

	mm.metrics.IncMatchesSettled(string(res.Reason))
	mm.metrics.SetLiveMatches(live)
}

// Expire force-settles matchID if it is still pending, scoring missing results as zero.
// It reports whether this call performed the settlement.
func (mm *MatchManager) Expire(ctx context.Context, matchID string) bool {
	mm.mu.Lock()
	m, ok := mm.matches[matchID]
	if !ok || !m.beginSettling(ReasonDeadline) {
		mm.mu.Unlock()
		return false
	}
	mm.mu.Unlock()

	mm.logger.Warn("result deadline passed", "match", matchID)
	mm.settle(ctx, m)
	return true
}

// Sweep force-settles pending matches past their deadline and evicts settled
// matches whose grace window ended. It returns how many of each it handled.
func (mm *MatchManager) Sweep(ctx context.Context) (expired, evicted int) {
	now := mm.opts.Now()

	mm.mu.Lock()
	var overdue []*Match
	for id, m := range mm.matches {
		switch m.Status {
		case StatusPending:
			if now.After(m.Deadline) && m.beginSettling(ReasonDeadline) {
				overdue = append(overdue, m)
			}
		case StatusSettled:
			if now.Sub(m.SettledAt) >= mm.opts.SettledGrace {
				delete(mm.matches, id)
				for _, p := range []Participant{m.A, m.B} {
					if mm.byConn[p.Conn] == m {
						delete(mm.byConn, p.Conn)
					}
				}
				evicted++
			}
		}
	}
	live := len(mm.matches)
	mm.mu.Unlock()

	for _, m := range overdue {
		mm.logger.Warn("result deadline passed", "match", m.ID)
		mm.settle(ctx, m)
	}
	if evicted > 0 {
		mm.metrics.SetLiveMatches(live)
		mm.logger.Debug("evicted settled matches", "count", evicted)
	}
	return len(overdue), evicted
}

// MatchSnapshot is a read-only copy of a match.
type MatchSnapshot struct {
	ID        string       `json:"matchId"`
	PlayerA   string       `json:"playerA"`
	PlayerB   string       `json:"playerB"`
	Status    MatchStatus  `json:"status"`
	Reason    SettleReason `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	Deadline  time.Time    `json:"deadline"`
	Result    *Result      `json:"result,omitempty"`
}

// GetMatch returns a copy of a live or recently settled match.
func (mm *MatchManager) GetMatch(matchID string) (MatchSnapshot, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	m, ok := mm.matches[matchID]
	if !ok {
		return MatchSnapshot{}, ErrMatchNotFound
	}
	return MatchSnapshot{
		ID:        m.ID,
		PlayerA:   m.A.PlayerID,
		PlayerB:   m.B.PlayerID,
		Status:    m.Status,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
		Deadline:  m.Deadline,
		Result:    m.Result,
	}, nil
}

// MatchStatusOf reports the lifecycle state of a live or recently settled match.
func (mm *MatchManager) MatchStatusOf(matchID string) (MatchStatus, bool) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	m, ok := mm.matches[matchID]
	if !ok {
		return "", false
	}
	return m.Status, true
}

// QueuePosition returns the 1-based queue position of conn, or 0.
func (mm *MatchManager) QueuePosition(conn ConnID) int {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.queue.Position(conn)
}

// Status returns queue and match counters.
func (mm *MatchManager) Status() QueueStatus {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return QueueStatus{
		Waiting:     mm.queue.Len(),
		LiveMatches: len(mm.matches),
		Connected:   mm.registry.Len(),
	}
}

func (mm *MatchManager) send(conn ConnID, ev Event) bool {
	if mm.notifier == nil {
		return false
	}
	return mm.notifier.Notify(conn, ev)
}
