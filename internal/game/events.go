package game

// Event types sent to clients.
const (
	EventWelcome      = "welcome"
	EventWaiting      = "waitingForOpponent"
	EventStartGame    = "startGame"
	EventScoreUpdated = "scoreUpdated"
	EventError        = "error"
	EventPong         = "pong"
)

// Event is a server to client message.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PlayerCard is the public display data of a player.
type PlayerCard struct {
	Name    string `json:"name"`
	Respect int    `json:"respect"`
	Rank    int    `json:"rank"`
}

type StartGamePayload struct {
	MatchID         string     `json:"matchId"`
	DurationSeconds int        `json:"durationSeconds"`
	Self            PlayerCard `json:"self"`
	Opponent        PlayerCard `json:"opponent"`
}

type OutcomePayload struct {
	MatchID string `json:"matchId"`
}

type ScorePayload struct {
	Respect     int `json:"respect"`
	GamesPlayed int `json:"gamesPlayed"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type WelcomePayload struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	Respect     int    `json:"respect"`
	GamesPlayed int    `json:"gamesPlayed"`
	Rank        int    `json:"rank"`
}

func outcomeEvent(o Outcome, matchID string) Event {
	return Event{Type: string(o), Data: OutcomePayload{MatchID: matchID}}
}

// ErrorEvent builds an error message for a client.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Data: ErrorPayload{Message: message}}
}
