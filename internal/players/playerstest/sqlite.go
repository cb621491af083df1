// Package playerstest provides an in-memory SQLite player store for tests.
package playerstest

import (
	"testing"

	"github.com/burzacoroyale/backend/internal/players"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// schema mirrors migrations/000001_create_players.up.sql in SQLite dialect.
const schema = `
CREATE TABLE players (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    player_id       TEXT      NOT NULL UNIQUE,
    name            TEXT      NOT NULL DEFAULT 'Anónimo',
    normalized_name TEXT      UNIQUE,
    password_hash   TEXT,
    respect         INTEGER   NOT NULL DEFAULT 0,
    games_played    INTEGER   NOT NULL DEFAULT 0,
    login_attempts  INTEGER   NOT NULL DEFAULT 0,
    locked_until    TIMESTAMP,
    created_at      TIMESTAMP NOT NULL,
    updated_at      TIMESTAMP NOT NULL
);`

// NewDB opens a fresh in-memory database with the players schema.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewStore returns a player store over a fresh in-memory database.
func NewStore(t *testing.T) (*players.Store, *sqlx.DB) {
	t.Helper()
	db := NewDB(t)
	return players.NewStore(db), db
}

// SetRespect overwrites the respect counter of playerID.
func SetRespect(t *testing.T, db *sqlx.DB, playerID string, respect int) {
	t.Helper()
	if _, err := db.Exec(`UPDATE players SET respect = $1 WHERE player_id = $2`, respect, playerID); err != nil {
		t.Fatalf("set respect: %v", err)
	}
}
