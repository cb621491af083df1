package metrics

import "sync"

var _ Metrics = (*Mock)(nil)

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                 sync.Mutex
	queued             int
	matchesCreated     int
	matchesSettled     map[string]int
	settlementFailures int
	queueLength        int
	liveMatches        int
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{matchesSettled: make(map[string]int)}
}

func (m *Mock) IncQueued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued++
}

func (m *Mock) IncMatchesCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCreated++
}

func (m *Mock) IncMatchesSettled(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesSettled[reason]++
}

func (m *Mock) IncSettlementFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlementFailures++
}

func (m *Mock) ObserveQueueWait(float64) {}

func (m *Mock) ObserveSettlementDuration(float64) {}

func (m *Mock) SetQueueLength(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueLength = n
}

func (m *Mock) SetLiveMatches(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveMatches = n
}

// Queued returns the number of times IncQueued was called.
func (m *Mock) Queued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queued
}

// MatchesCreated returns the number of times IncMatchesCreated was called.
func (m *Mock) MatchesCreated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCreated
}

// MatchesSettled returns how many matches were settled for reason.
func (m *Mock) MatchesSettled(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesSettled[reason]
}

// SettlementFailures returns the number of failed counter updates recorded.
func (m *Mock) SettlementFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settlementFailures
}

// QueueLength returns the last reported queue length.
func (m *Mock) QueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queueLength
}

// LiveMatches returns the last reported live match count.
func (m *Mock) LiveMatches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveMatches
}
