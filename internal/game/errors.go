package game

import "errors"

var (
	// ErrAlreadyQueued rejects a match request from a connection that is
	// already waiting or already playing.
	ErrAlreadyQueued = errors.New("connection already queued or in a match")
	// ErrUnknownConnection means the connection is not registered or has no live match.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrDuplicateSubmission is returned for a second result from the same participant.
	ErrDuplicateSubmission = errors.New("result already submitted")
	// ErrStaleMatch is returned for events against a match that is no longer pending.
	ErrStaleMatch = errors.New("match is no longer pending")
	// ErrInvalidTapCount rejects negative tap counts.
	ErrInvalidTapCount = errors.New("invalid tap count")
	// ErrMatchNotFound is returned for lookups of unknown or evicted matches.
	ErrMatchNotFound = errors.New("match not found")
	// ErrPersistence wraps player store failures during settlement.
	ErrPersistence = errors.New("persistence failure")
)

// IsSilent reports whether err is a protocol no-op that should be logged but
// never surfaced to the client.
func IsSilent(err error) bool {
	return errors.Is(err, ErrDuplicateSubmission) ||
		errors.Is(err, ErrStaleMatch) ||
		errors.Is(err, ErrUnknownConnection)
}
