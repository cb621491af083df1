package models

import (
	"database/sql"
	"time"
)

// Player is the persisted record behind a player identity.
type Player struct {
	ID             int64          `db:"id" json:"-"`
	PlayerID       string         `db:"player_id" json:"playerId"`
	Name           string         `db:"name" json:"name"`
	NormalizedName sql.NullString `db:"normalized_name" json:"-"`
	PasswordHash   sql.NullString `db:"password_hash" json:"-"`
	Respect        int            `db:"respect" json:"respect"`
	GamesPlayed    int            `db:"games_played" json:"gamesPlayed"`
	LoginAttempts  int            `db:"login_attempts" json:"-"`
	LockedUntil    sql.NullTime   `db:"locked_until" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"-"`
}

// IsLocked reports whether login is temporarily blocked at now.
func (p *Player) IsLocked(now time.Time) bool {
	return p.LockedUntil.Valid && now.Before(p.LockedUntil.Time)
}

// RankingEntry is one row of the public ranking listing.
type RankingEntry struct {
	Name        string `db:"name" json:"name"`
	Respect     int    `db:"respect" json:"respect"`
	GamesPlayed int    `db:"games_played" json:"gamesPlayed"`
	Rank        int    `db:"rank" json:"rank"`
}
