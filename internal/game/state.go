package game

// MatchStatus represents where a match is in its lifecycle.
// Pending -> Settling -> Settled, each step taken at most once.
type MatchStatus string

const (
	StatusPending  MatchStatus = "PENDING"
	StatusSettling MatchStatus = "SETTLING"
	StatusSettled  MatchStatus = "SETTLED"
)

// Outcome is the per-participant result of a settled match.
type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeTie     Outcome = "tie"
)

// SettleReason records what closed a match.
type SettleReason string

const (
	ReasonSubmitted  SettleReason = "submitted"
	ReasonDisconnect SettleReason = "disconnect"
	ReasonDeadline   SettleReason = "deadline"
)
