package game

import (
	"context"

	"github.com/burzacoroyale/backend/internal/models"
	"github.com/burzacoroyale/backend/internal/players"
)

// PlayerStore is the persisted player record store used by matchmaking and settlement.
type PlayerStore interface {
	FindByIdentity(ctx context.Context, playerID string) (*models.Player, error)
	// IncrementCounters must apply the delta atomically and return the updated record.
	IncrementCounters(ctx context.Context, playerID string, d players.Delta) (*models.Player, error)
	RankOf(ctx context.Context, playerID string) (int, error)
}

// Notifier delivers events to a connection. It returns false when the
// connection is gone or the event was dropped.
type Notifier interface {
	Notify(conn ConnID, event Event) bool
}

// Archive keeps a copy of settled results for later lookup.
type Archive interface {
	Save(ctx context.Context, res *Result) error
}
