package metrics

// Metrics defines the matchmaking and settlement measurements.
// This decouples the game logic from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncQueued()
	IncMatchesCreated()
	IncMatchesSettled(reason string)
	IncSettlementFailures()
	ObserveQueueWait(seconds float64)
	ObserveSettlementDuration(seconds float64)
	SetQueueLength(n int)
	SetLiveMatches(n int)
}
