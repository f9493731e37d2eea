// internal/progress/sqlite.go
//
// SQLite-backed progress, one row per player in the progress table.
// Also records finished rounds in the rounds table for history listings.
//
// Schema lives in assets/sql (applied by the server's migrate step).

package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore wraps a *sql.DB holding the progress and rounds tables.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore returns a store over db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// For returns the single-record Store for playerID.
func (s *SQLiteStore) For(playerID string) Store {
	return &playerRecord{db: s.db, playerID: playerID}
}

type playerRecord struct {
	db       *sql.DB
	playerID string
}

// Load reads the player's row. No row means no games yet.
func (p *playerRecord) Load(ctx context.Context) (State, error) {
	var st State
	err := p.db.QueryRowContext(ctx,
		`SELECT total_points, games_played FROM progress WHERE player_id=?`, p.playerID,
	).Scan(&st.TotalPoints, &st.GamesPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	return st, nil
}

// Save upserts the player's row.
func (p *playerRecord) Save(ctx context.Context, st State) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO progress (player_id, total_points, games_played, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(player_id) DO UPDATE SET
            total_points = excluded.total_points,
            games_played = excluded.games_played,
            updated_at   = excluded.updated_at`,
		p.playerID, st.TotalPoints, st.GamesPlayed, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}

// Add folds one round in a single upsert, so two sessions of the same player
// finishing together both count.
func (p *playerRecord) Add(ctx context.Context, sessionPoints int) (State, error) {
	var st State
	err := p.db.QueryRowContext(ctx, `
        INSERT INTO progress (player_id, total_points, games_played, updated_at)
        VALUES (?, ?, 1, ?)
        ON CONFLICT(player_id) DO UPDATE SET
            total_points = progress.total_points + excluded.total_points,
            games_played = progress.games_played + 1,
            updated_at   = excluded.updated_at
        RETURNING total_points, games_played`,
		p.playerID, sessionPoints, time.Now().UTC().Format(time.RFC3339),
	).Scan(&st.TotalPoints, &st.GamesPlayed)
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return st, nil
}

// Round is one finished round in a player's history.
type Round struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"-"`
	Mode       string    `json:"mode"`
	Outcome    string    `json:"outcome"`
	Points     int       `json:"points"`
	Picks      int       `json:"picks"`
	DailyDate  string    `json:"dailyDate,omitempty"` // set for daily-challenge rounds
	FinishedAt time.Time `json:"finishedAt"`
}

// RecordRound inserts a finished round. Re-recording the same ID, or a second
// daily round for the same player, mode and date, is ignored.
func (s *SQLiteStore) RecordRound(ctx context.Context, r Round) error {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO rounds (id, player_id, mode, outcome, points, picks, daily_date, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)`,
		r.ID, r.PlayerID, r.Mode, r.Outcome, r.Points, r.Picks, r.DailyDate, r.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: record round: %v", ErrStorageWrite, err)
	}
	return nil
}

// Rounds lists a player's most recent rounds, newest first. limit <= 0 means 20.
func (s *SQLiteStore) Rounds(ctx context.Context, playerID string, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, mode, outcome, points, picks, COALESCE(daily_date, ''), finished_at
        FROM rounds
        WHERE player_id=?
        ORDER BY finished_at DESC, rowid DESC
        LIMIT ?`, playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	defer rows.Close()

	out := make([]Round, 0, limit)
	for rows.Next() {
		var r Round
		var finished string
		if err := rows.Scan(&r.ID, &r.Mode, &r.Outcome, &r.Points, &r.Picks, &r.DailyDate, &finished); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
		}
		r.PlayerID = playerID
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	return out, nil
}

// ClaimRounds moves anonymous progress and history onto a player account.
// Anonymous totals are added to the account's totals.
// The account keeps its own daily round when both played the same daily.
func (s *SQLiteStore) ClaimRounds(ctx context.Context, anonID, playerID string) error {
	if anonID == "" || playerID == "" || anonID == playerID {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE OR IGNORE rounds SET player_id=? WHERE player_id=?`, playerID, anonID); err != nil {
		return fmt.Errorf("%w: claim rounds: %v", ErrStorageWrite, err)
	}
	// Left behind: daily rounds the account already has for that mode and date.
	// They stay in history but leave the leaderboard.
	if _, err := tx.ExecContext(ctx, `UPDATE rounds SET player_id=?, daily_date=NULL WHERE player_id=?`, playerID, anonID); err != nil {
		return fmt.Errorf("%w: claim rounds: %v", ErrStorageWrite, err)
	}

	var anon State
	err = tx.QueryRowContext(ctx,
		`SELECT total_points, games_played FROM progress WHERE player_id=?`, anonID,
	).Scan(&anon.TotalPoints, &anon.GamesPlayed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return tx.Commit()
	case err != nil:
		return fmt.Errorf("%w: %v", ErrStorageRead, err)
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO progress (player_id, total_points, games_played, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(player_id) DO UPDATE SET
            total_points = progress.total_points + excluded.total_points,
            games_played = progress.games_played + excluded.games_played,
            updated_at   = excluded.updated_at`,
		playerID, anon.TotalPoints, anon.GamesPlayed, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("%w: claim progress: %v", ErrStorageWrite, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM progress WHERE player_id=?`, anonID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}
