package game

import "time"

// QueueEntry is a connection waiting for an opponent.
type QueueEntry struct {
	Conn       ConnID
	PlayerID   string
	EnqueuedAt time.Time
}

// Queue is the FIFO waiting list. Insertion order is pairing order.
// It is owned by the MatchManager and only touched under its lock.
type Queue struct {
	entries []QueueEntry
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(e QueueEntry) {
	q.entries = append(q.entries, e)
}

// PopFirst removes and returns the oldest entry accepted by match. Entries
// that are skipped keep their relative order.
func (q *Queue) PopFirst(match func(QueueEntry) bool) (QueueEntry, bool) {
	for i, e := range q.entries {
		if match == nil || match(e) {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return e, true
		}
	}
	return QueueEntry{}, false
}

// Remove drops conn from the queue and reports whether it was waiting.
func (q *Queue) Remove(conn ConnID) bool {
	for i, e := range q.entries {
		if e.Conn == conn {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) Contains(conn ConnID) bool {
	return q.Position(conn) > 0
}

// Position returns the 1-based place of conn in the queue, or 0.
func (q *Queue) Position(conn ConnID) int {
	for i, e := range q.entries {
		if e.Conn == conn {
			return i + 1
		}
	}
	return 0
}

func (q *Queue) Len() int {
	return len(q.entries)
}
