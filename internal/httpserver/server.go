// internal/httpserver/server.go
//
// HTTP server wiring for the GERD game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/catalog".
//   - Session endpoints (optional auth): create a controller, start rounds,
//     submit choices, return to menu.
//   - Progress + history for the calling player: /progress, /rounds/mine.
//   - Daily challenge endpoints: mounted under /daily.
//   - Auth endpoints: /auth/*.
//
// Notes:
//   - Every request resolves to a player ID: the authenticated player when a
//     valid token is present, otherwise a long-lived anonymous cookie.
//   - Controllers are held in memory; progress and finished rounds are persisted.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/robalobadob/gerdgame/internal/catalog"
	"github.com/robalobadob/gerdgame/internal/config"
	"github.com/robalobadob/gerdgame/internal/daily"
	"github.com/robalobadob/gerdgame/internal/game"
	"github.com/robalobadob/gerdgame/internal/progress"
	"github.com/robalobadob/gerdgame/internal/sampler"
	"github.com/robalobadob/gerdgame/internal/session"
	"github.com/robalobadob/gerdgame/internal/store"
)

// ProgressFunc returns the progress record for a player.
type ProgressFunc func(playerID string) progress.Store

// Server bundles router, session registry, catalog and persistence.
type Server struct {
	r         *chi.Mux
	cfg       *config.Config
	cat       *catalog.Catalog
	sessions  store.Store
	db        *sql.DB
	history   *progress.SQLiteStore
	progress  ProgressFunc
	log       zerolog.Logger
	validate  *validator.Validate
	rounds    atomic.Int64 // offsets a fixed RANDOM_SEED per session
	daily     sync.Map     // session id -> dailyTag
	dailyOpen sync.Map     // dailyKey -> struct{}, open or finished daily sessions
	dailyDB   *daily.Store
	now       func() time.Time
}

// Deps are the collaborators New needs.
type Deps struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Sessions store.Store
	DB       *sql.DB
	Progress ProgressFunc // nil keys progress by player in DB
	Logger   zerolog.Logger
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      d.Config,
		cat:      d.Catalog,
		sessions: d.Sessions,
		db:       d.DB,
		history:  progress.NewSQLiteStore(d.DB),
		progress: d.Progress,
		log:      d.Logger,
		validate: validator.New(),
		dailyDB:  daily.NewStore(d.DB),
		now:      time.Now,
	}
	if s.progress == nil {
		s.progress = s.history.For
	}
	_ = s.validate.RegisterValidation("username", validUsername)

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(s.requestLogger)                 // zerolog access log
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"gerd-game","endpoints":["/health","/catalog","POST /sessions","/progress","/daily/*","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/catalog", s.handleCatalog)

	// Sessions + progress: OPTIONAL AUTH (guests play on an anonymous id)
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/start", s.handleStartRound)
			r.Post("/choose", s.handleChoose)
			r.Post("/menu", s.handleMenu)
		})
		r.Get("/progress", s.handleProgress)
		r.Get("/rounds/mine", s.handleMyRounds)
		s.mountDaily(r)
	})

	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger writes one zerolog line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("reqId", chimw.GetReqID(r.Context())).
			Msg("http")
	})
}

// ------------------------------ CATALOG ------------------------------------

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  s.cat.Len(),
		"groups": sampler.GroupByCategory(s.cat.Items()),
	})
}

// ------------------------------ SESSIONS -----------------------------------

// snapshot is what the client renders for a session.
type snapshot struct {
	ID        string             `json:"id"`
	Phase     session.Phase      `json:"phase"`
	Mode      game.Mode          `json:"mode,omitempty"`
	Daily     string             `json:"daily,omitempty"`
	Points    int                `json:"points"`
	PicksMade int                `json:"picksMade"`
	PickLimit int                `json:"pickLimit,omitempty"`
	AcidLevel int                `json:"acidLevel"`
	AcidBar   string             `json:"acidBar"`
	Message   string             `json:"message"`
	Options   []catalog.FoodItem `json:"options"`
	Groups    []sampler.Group    `json:"groups,omitempty"`
	Summary   *session.Summary   `json:"summary,omitempty"`
}

func (s *Server) snapshot(c *session.Controller) snapshot {
	snap := snapshot{
		ID:        c.ID(),
		Phase:     c.Phase(),
		Points:    c.CurrentPoints(),
		PicksMade: c.PicksMade(),
		AcidLevel: c.AcidLevel(),
		AcidBar:   c.AcidBar(),
		Message:   c.CurrentOutcomeMessage(),
		Options:   c.CurrentOptions(),
		Summary:   c.Summary(),
	}
	if d, ok := s.daily.Load(c.ID()); ok {
		snap.Daily = d.(dailyTag).date
	}
	if c.Phase() != session.PhaseMainMenu {
		snap.Mode = c.Mode()
	}
	if snap.Mode == game.ModeGrocery {
		snap.Groups = c.CurrentGroups()
		snap.PickLimit = c.Config().GroceryPickLimit
	}
	if snap.Options == nil {
		snap.Options = []catalog.FoodItem{}
	}
	return snap
}

type startReq struct {
	Mode string `json:"mode" validate:"required,oneof=sequential grocery"`
}

// handleCreateSession registers a new controller for the caller and starts
// its first round.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if !s.decode(w, r, &req) {
		return
	}
	mode, _ := game.ParseMode(req.Mode)
	s.createSession(w, r, s.playerID(w, r), mode, "")
}

// createSession builds, starts and registers a controller, then writes its
// snapshot. It reports whether the session was registered.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request, player string, mode game.Mode, dailyDate string) bool {
	c, err := s.newController(player, dailyDate)
	if err != nil {
		s.log.Error().Err(err).Msg("new session")
		writeError(w, http.StatusInternalServerError, "session_failed")
		return false
	}
	if err := c.StartSession(r.Context(), mode); err != nil {
		s.writeSessionError(w, err)
		return false
	}
	if dailyDate != "" {
		s.daily.Store(c.ID(), dailyTag{date: dailyDate, key: dailyKey(player, mode, dailyDate)})
	}
	if err := s.sessions.Save(r.Context(), player, c); err != nil {
		s.daily.Delete(c.ID())
		writeError(w, http.StatusInternalServerError, "save_failed")
		return false
	}
	writeJSON(w, http.StatusCreated, s.snapshot(c))
	return true
}

// newController wires a controller for player. Daily rounds draw from the
// date's shared seed; others from RANDOM_SEED (offset per session) or crypto.
func (s *Server) newController(player, dailyDate string) (*session.Controller, error) {
	var seed int64
	switch {
	case dailyDate != "":
		seed = daily.SeedFor(dailyDate, s.cfg.DailySalt)
	case s.cfg.RandomSeed != 0:
		seed = s.cfg.RandomSeed + s.rounds.Add(1)
	default:
		var err error
		if seed, err = sampler.NewSeed(); err != nil {
			return nil, err
		}
	}
	id := uuid.NewString()
	return session.New(s.cfg.Game(), s.cat, sampler.NewSource(seed), s.progress(player),
		session.WithID(id),
		session.WithLogger(s.log.With().Str("player", player).Logger()),
		session.WithFinishHook(func(ctx context.Context, sid string, sum session.Summary) {
			s.recordRound(ctx, player, dailyDate, sum)
		}),
	)
}

// recordRound stores a finished round for history (best effort, non-fatal).
func (s *Server) recordRound(ctx context.Context, player, dailyDate string, sum session.Summary) {
	err := s.history.RecordRound(ctx, progress.Round{
		ID:        uuid.NewString(),
		PlayerID:  player,
		Mode:      string(sum.Mode),
		Outcome:   string(sum.Outcome),
		Points:    sum.FinalPoints,
		Picks:     sum.PicksMade,
		DailyDate: dailyDate,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("player", player).Msg("record round")
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(c *session.Controller) error {
		writeJSON(w, http.StatusOK, s.snapshot(c))
		return nil
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(r.Context(), s.playerID(w, r), id); err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if tag, ok := s.daily.LoadAndDelete(id); ok {
		s.dailyOpen.Delete(tag.(dailyTag).key)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartRound starts another round on an existing controller.
// A daily controller plays exactly one round.
func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if !s.decode(w, r, &req) {
		return
	}
	mode, _ := game.ParseMode(req.Mode)
	s.withSession(w, r, func(c *session.Controller) error {
		if _, ok := s.daily.Load(c.ID()); ok {
			return errDailyReplay
		}
		if err := c.StartSession(r.Context(), mode); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, s.snapshot(c))
		return nil
	})
}

type chooseReq struct {
	Name string `json:"name" validate:"required"`
}

type chooseRes struct {
	Result  session.Result `json:"result"`
	Session snapshot       `json:"session"`
}

func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	var req chooseReq
	if !s.decode(w, r, &req) {
		return
	}
	s.withSession(w, r, func(c *session.Controller) error {
		res, err := c.Choose(r.Context(), req.Name)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, chooseRes{Result: res, Session: s.snapshot(c)})
		return nil
	})
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(c *session.Controller) error {
		if err := c.ReturnToMenu(); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, s.snapshot(c))
		return nil
	})
}

// withSession runs fn on the caller's controller from the URL and maps errors.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(c *session.Controller) error) {
	err := s.sessions.Do(r.Context(), s.playerID(w, r), chi.URLParam(r, "id"), fn)
	if err != nil {
		s.writeSessionError(w, err)
	}
}

// writeSessionError maps engine errors onto HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, session.ErrInvalidChoice):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrRoundInProgress), errors.Is(err, session.ErrNoActiveRound),
		errors.Is(err, errDailyReplay), errors.Is(err, errDailyPlayed), errors.Is(err, errDailyOpen):
		writeError(w, http.StatusConflict, err.Error())
	default:
		// catalog/sampler failures: the data cannot serve this round
		s.log.Error().Err(err).Msg("session")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ------------------------------ PROGRESS -----------------------------------

type progressRes struct {
	progress.State
	Average float64 `json:"average"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.progress(s.playerID(w, r)).Load(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("load progress")
		writeError(w, http.StatusInternalServerError, "progress_unreadable")
		return
	}
	writeJSON(w, http.StatusOK, progressRes{State: p, Average: p.Average()})
}

func (s *Server) handleMyRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.history.Rounds(r.Context(), s.playerID(w, r), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

// ------------------------------- helpers -----------------------------------

// decode reads a JSON body into v and validates it; on failure it writes 400.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
