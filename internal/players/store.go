package players

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/burzacoroyale/backend/internal/models"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrNameTaken      = errors.New("name already taken")
)

// DefaultName is shown for players that never picked a name.
const DefaultName = "Anónimo"

const playerColumns = `id, player_id, name, normalized_name, password_hash, respect, games_played,
	login_attempts, locked_until, created_at, updated_at`

// rankedPlayers numbers every player with positive respect, highest first.
// Ties keep creation order.
const rankedPlayers = `
	SELECT player_id, name, respect, games_played,
	       ROW_NUMBER() OVER (ORDER BY respect DESC, id ASC) AS rank
	FROM players
	WHERE respect > 0`

// Delta is an atomic change applied to a player's counters.
type Delta struct {
	Respect     int
	GamesPlayed int
}

// Store persists player records in a SQL database through sqlx.
// Queries only use syntax shared by Postgres and SQLite.
type Store struct {
	db     *sqlx.DB
	logger *log.Logger
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, logger: log.WithPrefix("DB")}
}

// validID reports whether playerID can name a player. Identities are UUIDs;
// anything else would be rejected by the uuid column type in Postgres.
func validID(playerID string) bool {
	_, err := uuid.Parse(playerID)
	return err == nil
}

// Create inserts a guest player with a fresh identity.
func (s *Store) Create(ctx context.Context) (*models.Player, error) {
	now := time.Now().UTC()
	playerID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (player_id, name, respect, games_played, login_attempts, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 0, $3, $3)`,
		playerID, DefaultName, now)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	p, err := s.FindByIdentity(ctx, playerID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("player created", "player", p.PlayerID)
	return p, nil
}

// FindByIdentity loads the player record for playerID.
func (s *Store) FindByIdentity(ctx context.Context, playerID string) (*models.Player, error) {
	if !validID(playerID) {
		return nil, ErrPlayerNotFound
	}
	var p models.Player
	err := s.db.GetContext(ctx, &p, `SELECT `+playerColumns+` FROM players WHERE player_id = $1`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find player %s: %w", playerID, err)
	}
	return &p, nil
}

// FindByName looks a player up by the normalized form of their name.
func (s *Store) FindByName(ctx context.Context, normalized string) (*models.Player, error) {
	var p models.Player
	err := s.db.GetContext(ctx, &p, `SELECT `+playerColumns+` FROM players WHERE normalized_name = $1`, normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find player by name: %w", err)
	}
	return &p, nil
}

// IncrementCounters adds d to the player's counters in a single UPDATE and
// returns the row as stored afterwards. The read happens in the same
// transaction, so it observes exactly this increment.
func (s *Store) IncrementCounters(ctx context.Context, playerID string, d Delta) (*models.Player, error) {
	if !validID(playerID) {
		return nil, ErrPlayerNotFound
	}
	var p *models.Player
	err := s.updateAndLoad(ctx, playerID, func(tx *sqlx.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, `
			UPDATE players
			SET respect = respect + $1, games_played = games_played + $2, updated_at = $3
			WHERE player_id = $4`,
			d.Respect, d.GamesPlayed, time.Now().UTC(), playerID)
	}, &p)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("increment counters for %s: %w", playerID, err)
	}
	return p, nil
}

// RankOf returns the 1-based ranking position of playerID among players with
// positive respect, or 0 when the player is unranked.
func (s *Store) RankOf(ctx context.Context, playerID string) (int, error) {
	if !validID(playerID) {
		return 0, nil
	}
	var rank int
	err := s.db.GetContext(ctx, &rank, `SELECT ranked.rank FROM (`+rankedPlayers+`) ranked WHERE ranked.player_id = $1`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rank of %s: %w", playerID, err)
	}
	return rank, nil
}

// Ranking lists ranked players, best first.
func (s *Store) Ranking(ctx context.Context, limit int) ([]models.RankingEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	entries := []models.RankingEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT ranked.name, ranked.respect, ranked.games_played, ranked.rank
		FROM (`+rankedPlayers+`) ranked
		ORDER BY ranked.rank
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	return entries, nil
}

// UpdateCredentials sets the display name and password hash of playerID and
// clears any login lock. normalized must be unique across players.
func (s *Store) UpdateCredentials(ctx context.Context, playerID, name, normalized, passwordHash string) error {
	if !validID(playerID) {
		return ErrPlayerNotFound
	}
	var taken int
	if err := s.db.GetContext(ctx, &taken, `SELECT COUNT(*) FROM players WHERE normalized_name = $1 AND player_id <> $2`, normalized, playerID); err != nil {
		return fmt.Errorf("check name: %w", err)
	}
	if taken > 0 {
		return ErrNameTaken
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE players
		SET name = $1, normalized_name = $2, password_hash = $3, login_attempts = 0, locked_until = NULL, updated_at = $4
		WHERE player_id = $5`,
		name, normalized, passwordHash, time.Now().UTC(), playerID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameTaken
		}
		return fmt.Errorf("update credentials for %s: %w", playerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlayerNotFound
	}
	s.logger.Info("credentials updated", "player", playerID, "name", name)
	return nil
}

// RecordFailedLogin counts a failed password attempt. Reaching maxAttempts
// locks the account until lockUntil and restarts the count.
func (s *Store) RecordFailedLogin(ctx context.Context, playerID string, maxAttempts int, lockUntil time.Time) (*models.Player, error) {
	if !validID(playerID) {
		return nil, ErrPlayerNotFound
	}
	var p *models.Player
	err := s.updateAndLoad(ctx, playerID, func(tx *sqlx.Tx) (sql.Result, error) {
		return tx.ExecContext(ctx, `
			UPDATE players
			SET login_attempts = CASE WHEN login_attempts + 1 >= $1 THEN 0 ELSE login_attempts + 1 END,
			    locked_until = CASE WHEN login_attempts + 1 >= $1 THEN $2 ELSE locked_until END,
			    updated_at = $3
			WHERE player_id = $4`,
			maxAttempts, lockUntil.UTC(), time.Now().UTC(), playerID)
	}, &p)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("record failed login for %s: %w", playerID, err)
	}
	if p.IsLocked(time.Now()) {
		s.logger.Warn("login locked", "player", playerID, "until", p.LockedUntil.Time)
	}
	return p, nil
}

// updateAndLoad runs update and re-reads the row inside one transaction.
func (s *Store) updateAndLoad(ctx context.Context, playerID string, update func(tx *sqlx.Tx) (sql.Result, error), out **models.Player) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := update(tx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlayerNotFound
	}

	var p models.Player
	if err := tx.GetContext(ctx, &p, `SELECT `+playerColumns+` FROM players WHERE player_id = $1`, playerID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	*out = &p
	return nil
}

// ResetLoginAttempts clears the failed-attempt counter after a good login.
func (s *Store) ResetLoginAttempts(ctx context.Context, playerID string) error {
	if !validID(playerID) {
		return ErrPlayerNotFound
	}
	_, err := s.db.ExecContext(ctx, `UPDATE players SET login_attempts = 0, locked_until = NULL WHERE player_id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("reset login attempts for %s: %w", playerID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
