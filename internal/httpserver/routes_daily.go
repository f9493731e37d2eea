// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge".
// Exposes two endpoints under /daily:
//   - POST /daily/sessions    → start today's round (one per player and mode,
//                               finished or still open)
//   - GET  /daily/leaderboard → top results for today (or ?date=YYYY-MM-DD), per ?mode=
//
// Every player draws the same options on the same date: the sampler is seeded
// from HMAC(DAILY_SALT, date). Finished daily rounds are tagged with the date.

package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/gerdgame/internal/daily"
	"github.com/robalobadob/gerdgame/internal/game"
)

var (
	errDailyPlayed = errors.New("daily round already played")
	errDailyOpen   = errors.New("daily round already in progress")
	errDailyReplay = errors.New("daily sessions play a single round")
)

// dailyTag marks a live session as a daily round.
type dailyTag struct {
	date string
	key  string
}

// dailyKey identifies one player's daily round for a mode and date.
func dailyKey(player string, mode game.Mode, date string) string {
	return player + "|" + string(mode) + "|" + date
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/sessions", s.handleDailyNew)
		r.Get("/leaderboard", s.handleDailyLeaderboard)
	})
}

// handleDailyNew starts today's daily round unless the player already finished one.
func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if !s.decode(w, r, &req) {
		return
	}
	mode, _ := game.ParseMode(req.Mode)
	player := s.playerID(w, r)
	date := daily.DateKey(s.now())

	played, err := s.dailyDB.AlreadyPlayed(r.Context(), player, string(mode), date)
	if err != nil {
		s.log.Error().Err(err).Msg("daily already played")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if played {
		s.writeSessionError(w, errDailyPlayed)
		return
	}
	key := dailyKey(player, mode, date)
	if _, open := s.dailyOpen.LoadOrStore(key, struct{}{}); open {
		s.writeSessionError(w, errDailyOpen)
		return
	}
	if !s.createSession(w, r, player, mode, date) {
		s.dailyOpen.Delete(key)
	}
}

type leaderboardRes struct {
	Date string        `json:"date"`
	Mode game.Mode     `json:"mode"`
	Rows []daily.LBRow `json:"rows"`
}

// handleDailyLeaderboard lists the best daily rounds for a date and mode
// (defaults: today, sequential, 20 rows).
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	mode := game.ModeSequential
	if m := q.Get("mode"); m != "" {
		var err error
		if mode, err = game.ParseMode(m); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	rows, err := s.dailyDB.Leaderboard(r.Context(), date, string(mode), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, leaderboardRes{Date: date, Mode: mode, Rows: rows})
}
