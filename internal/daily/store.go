package daily

import (
	"context"
	"database/sql"
)

// LBRow is one leaderboard entry.
type LBRow struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username,omitempty"`
	Mode     string `json:"mode"`
	Outcome  string `json:"outcome"`
	Points   int    `json:"points"`
	Picks    int    `json:"picks"`
}

// Store reads daily rounds from the rounds table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether player finished a daily round in mode on date.
func (s *Store) AlreadyPlayed(ctx context.Context, playerID, mode, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM rounds WHERE player_id=? AND mode=? AND daily_date=?`,
		playerID, mode, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// Leaderboard returns the best daily rounds for date and mode: most points,
// then fewest picks, then earliest finish. limit <= 0 means 20.
func (s *Store) Leaderboard(ctx context.Context, date, mode string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.player_id, COALESCE(p.username, ''), r.mode, r.outcome, r.points, r.picks
		FROM rounds r
		LEFT JOIN players p ON p.id = r.player_id
		WHERE r.daily_date=? AND r.mode=?
		ORDER BY r.points DESC, r.picks ASC, r.finished_at ASC
		LIMIT ?`, date, mode, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Username, &r.Mode, &r.Outcome, &r.Points, &r.Picks); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
