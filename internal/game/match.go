package game

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Participant is one side of a match. Both fields are fixed at pairing time.
type Participant struct {
	Conn     ConnID
	PlayerID string
}

// Match is a single paired round. ID, A, B, CreatedAt and Deadline never
// change after creation; everything else is guarded by the MatchManager lock.
type Match struct {
	ID        string
	A         Participant
	B         Participant
	CreatedAt time.Time
	Deadline  time.Time

	Status    MatchStatus
	Reason    SettleReason
	SettledAt time.Time
	Result    *Result

	taps   map[ConnID]int
	absent map[ConnID]bool
}

func newMatch(a, b Participant, createdAt, deadline time.Time) *Match {
	return &Match{
		ID:        matchID(a.PlayerID, b.PlayerID, createdAt),
		A:         a,
		B:         b,
		CreatedAt: createdAt,
		Deadline:  deadline,
		Status:    StatusPending,
		taps:      make(map[ConnID]int, 2),
		absent:    make(map[ConnID]bool, 2),
	}
}

// matchID derives a stable identifier from both identities and the creation time.
func matchID(playerA, playerB string, createdAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", playerA, playerB, createdAt.UnixNano())))
	return "m_" + hex.EncodeToString(sum[:12])
}

// Participant returns the side conn plays and whether conn belongs to the match.
func (m *Match) Participant(conn ConnID) (Participant, bool) {
	switch conn {
	case m.A.Conn:
		return m.A, true
	case m.B.Conn:
		return m.B, true
	}
	return Participant{}, false
}

// Opponent returns the other side of conn.
func (m *Match) Opponent(conn ConnID) Participant {
	if conn == m.A.Conn {
		return m.B
	}
	return m.A
}

func (m *Match) hasResult(conn ConnID) bool {
	_, ok := m.taps[conn]
	return ok
}

// record stores the tap count of conn. Only one result per participant is kept.
func (m *Match) record(conn ConnID, taps int) error {
	if _, ok := m.Participant(conn); !ok {
		return ErrUnknownConnection
	}
	if m.Status != StatusPending {
		return ErrStaleMatch
	}
	if m.hasResult(conn) {
		return ErrDuplicateSubmission
	}
	m.taps[conn] = taps
	return nil
}

// markAbsent records a zero for a participant that left without reporting.
func (m *Match) markAbsent(conn ConnID) bool {
	if m.Status != StatusPending || m.hasResult(conn) {
		return false
	}
	if _, ok := m.Participant(conn); !ok {
		return false
	}
	m.taps[conn] = 0
	m.absent[conn] = true
	return true
}

func (m *Match) complete() bool {
	return m.hasResult(m.A.Conn) && m.hasResult(m.B.Conn)
}

// beginSettling moves a pending match to Settling. It returns true only for
// the single caller that performed the transition.
func (m *Match) beginSettling(reason SettleReason) bool {
	if m.Status != StatusPending {
		return false
	}
	m.Status = StatusSettling
	m.Reason = reason
	return true
}

func (m *Match) markSettled(at time.Time, res *Result) {
	m.Status = StatusSettled
	m.SettledAt = at
	m.Result = res
}

// tapsOf returns the count scored for conn and whether that count was
// defaulted to zero, either because conn never reported or because it left
// before reporting.
func (m *Match) tapsOf(conn ConnID) (taps int, missing bool) {
	taps, ok := m.taps[conn]
	return taps, !ok || m.absent[conn]
}

