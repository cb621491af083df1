package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/burzacoroyale/backend/internal/game"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// EventsChannel carries one message per settled match.
const EventsChannel = "match_events"

// DefaultTTL is how long settled results stay readable.
const DefaultTTL = time.Hour

var ErrNotFound = errors.New("result not found")

// Archive stores settled match results in Redis. A nil client turns every
// call into a no-op so the server runs without Redis.
type Archive struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

var _ game.Archive = (*Archive)(nil)

func NewArchive(rdb *redis.Client, ttl time.Duration) *Archive {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Archive{rdb: rdb, ttl: ttl, logger: log.WithPrefix("RESULTS")}
}

func resultKey(matchID string) string {
	return fmt.Sprintf("match:%s:result", matchID)
}

// settledEvent is the pub/sub payload for EventsChannel.
type settledEvent struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	Winner  string `json:"winner,omitempty"`
	Reason  string `json:"reason"`
}

// Save writes the result snapshot with a TTL and announces it on EventsChannel.
func (a *Archive) Save(ctx context.Context, res *game.Result) error {
	if a.rdb == nil || res == nil {
		return nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result %s: %w", res.MatchID, err)
	}
	if err := a.rdb.SetEx(ctx, resultKey(res.MatchID), data, a.ttl).Err(); err != nil {
		return fmt.Errorf("store result %s: %w", res.MatchID, err)
	}

	ev, _ := json.Marshal(settledEvent{
		Type:    "match_settled",
		MatchID: res.MatchID,
		Winner:  res.Winner,
		Reason:  string(res.Reason),
	})
	n, err := a.rdb.Publish(ctx, EventsChannel, ev).Result()
	if err != nil {
		// The snapshot is already stored; a lost event is not fatal.
		a.logger.Warn("publish failed", "match", res.MatchID, "err", err)
		return nil
	}
	a.logger.Debug("result archived", "match", res.MatchID, "subscribers", n)
	return nil
}

// Load returns the archived result of matchID.
func (a *Archive) Load(ctx context.Context, matchID string) (*game.Result, error) {
	if a.rdb == nil {
		return nil, ErrNotFound
	}
	data, err := a.rdb.Get(ctx, resultKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", matchID, err)
	}

	var res game.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", matchID, err)
	}
	return &res, nil
}

// Watch logs every settled-match event published by any server instance
// until ctx is done.
func (a *Archive) Watch(ctx context.Context) {
	if a.rdb == nil {
		a.logger.Info("redis not configured; match event watcher not started")
		return
	}

	sub := a.rdb.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	a.logger.Info("match event watcher started", "channel", EventsChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev settledEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				a.logger.Warn("invalid event payload", "err", err)
				continue
			}
			a.logger.Info("match settled", "match", ev.MatchID, "winner", ev.Winner, "reason", ev.Reason)
		}
	}
}
