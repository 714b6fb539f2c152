package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var db *sqlx.DB

// Profile is a player's lifetime record across games.
type Profile struct {
	PlayerID   string    `db:"player_id"`
	Games      int       `db:"games"`
	Wins       int       `db:"wins"`
	Losses     int       `db:"losses"`
	LastPlayed time.Time `db:"last_played"`
}

// ArchiveRecord is the immutable post-game snapshot, queryable by its
// short code. The roster is stored as JSON.
type ArchiveRecord struct {
	Code      string    `db:"code"`
	RoomID    string    `db:"room_id"`
	SessionID string    `db:"session_id"`
	Winner    string    `db:"winner"`
	Nights    int       `db:"nights"`
	Roster    string    `db:"roster"`
	StartedAt time.Time `db:"started_at"`
	EndedAt   time.Time `db:"ended_at"`
}

// ArchivedPlayer is one roster entry inside an archive snapshot.
type ArchivedPlayer struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Seat        int    `json:"seat"`
	Role        string `json:"role"`
	Team        string `json:"team"`
	Alive       bool   `json:"alive"`
	DeathReason string `json:"death_reason,omitempty"`
	DeathOrder  int    `json:"death_order,omitempty"`
}

func initDB() error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS player (
		name TEXT UNIQUE NOT NULL,
		secret_code TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS profile (
		player_id TEXT PRIMARY KEY,
		games INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		last_played TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS archive (
		code TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		winner TEXT NOT NULL,
		nights INTEGER NOT NULL,
		roster TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// registerPlayer creates a player and returns their secret code.
func registerPlayer(name string) (string, error) {
	code, err := generateSecretCode()
	if err != nil {
		return "", err
	}
	if _, err := db.Exec(`INSERT INTO player (name, secret_code) VALUES (?, ?)`, name, code); err != nil {
		return "", err
	}
	return code, nil
}

// authenticatePlayer checks a name/secret-code pair.
func authenticatePlayer(name, code string) (bool, error) {
	var stored string
	err := db.Get(&stored, `SELECT secret_code FROM player WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	return stored == code, nil
}

func getProfile(playerID string) (Profile, error) {
	var p Profile
	err := db.Get(&p, `SELECT player_id, games, wins, losses, last_played
		FROM profile WHERE player_id = ?`, playerID)
	return p, err
}

// recordResult bumps a player's profile after a game.
func recordResult(playerID string, won bool) error {
	win, loss := 0, 1
	if won {
		win, loss = 1, 0
	}
	_, err := db.Exec(`INSERT INTO profile (player_id, games, wins, losses, last_played)
		VALUES (?, 1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(player_id) DO UPDATE SET
			games = games + 1,
			wins = wins + excluded.wins,
			losses = losses + excluded.losses,
			last_played = CURRENT_TIMESTAMP`, playerID, win, loss)
	return err
}

// archiveGame snapshots a finished session and returns its code.
func archiveGame(s *Session) (string, error) {
	roster := make([]ArchivedPlayer, 0, len(s.Players))
	for _, p := range s.Players {
		roster = append(roster, ArchivedPlayer{
			UserID:      p.UserID,
			Name:        p.Name,
			Seat:        p.Seat,
			Role:        p.Role.Code,
			Team:        string(p.Team),
			Alive:       p.Alive,
			DeathReason: p.DeathReason,
			DeathOrder:  p.DeathOrder,
		})
	}
	blob, err := json.Marshal(roster)
	if err != nil {
		return "", err
	}
	code := uuid.NewString()[:8]
	_, err = db.Exec(`INSERT INTO archive (code, room_id, session_id, winner, nights, roster, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		code, s.RoomID, s.ID, s.Winner, s.Night, string(blob), s.StartedAt, s.EndedAt)
	if err != nil {
		return "", err
	}
	return code, nil
}

func getArchive(code string) (ArchiveRecord, []ArchivedPlayer, error) {
	var rec ArchiveRecord
	err := db.Get(&rec, `SELECT code, room_id, session_id, winner, nights, roster, started_at, ended_at
		FROM archive WHERE code = ?`, code)
	if err != nil {
		return rec, nil, err
	}
	var roster []ArchivedPlayer
	if err := json.Unmarshal([]byte(rec.Roster), &roster); err != nil {
		return rec, nil, err
	}
	return rec, roster, nil
}
