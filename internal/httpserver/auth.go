// internal/httpserver/auth.go
//
// Player accounts and identity.
// Responsibilities:
//   - Signup/login with bcrypt-hashed passwords; HS256 JWT in a cookie or bearer header.
//   - Optional-auth middleware that resolves every request to a player ID
//     (account when a valid token is present, anonymous cookie otherwise).
//   - Claiming anonymous progress and history when a guest signs up or logs in.

package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const anonCookieName = "gerd_anon"

var errUsernameTaken = errors.New("username taken")

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// validUsername backs the "username" validation tag: letters, numbers, underscore.
func validUsername(fl validator.FieldLevel) bool {
	return usernameRe.MatchString(fl.Field().String())
}

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ctxUserKey struct{}
type ctxPlayerKey struct{}

type credentialsReq struct {
	Username string `json:"username" validate:"required,min=3,max=24,username"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

// mountAuthRoutes registers /auth/*.
func (s *Server) mountAuthRoutes() {
	s.r.Route("/auth", func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireAuth).Get("/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, currentUser(r))
		})
	})
}

// handleSignup creates a player, signs a JWT, sets the cookie and claims anon history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if !s.decode(w, r, &body) {
		return
	}
	u, err := s.createPlayer(r.Context(), body.Username, body.Password)
	if errors.Is(err, errUsernameTaken) {
		writeError(w, http.StatusConflict, "Username taken")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("create player")
		writeError(w, http.StatusInternalServerError, "signup_failed")
		return
	}
	if !s.signIn(w, r, u) {
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// handleLogin authenticates a player, sets the cookie and claims anon history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if !s.decode(w, r, &body) {
		return
	}
	u, hash, err := s.findPlayerByUsername(r.Context(), strings.TrimSpace(body.Username))
	if err != nil || bcrypt.CompareHashAndPassword([]byte(hash), []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !s.signIn(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, s.cfg.CookieName, "", time.Time{}, -1)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// signIn sets the auth cookie and claims the guest's history. On failure it
// writes the error response and returns false.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, u *authUser) bool {
	tok, exp, err := s.signJWT(u)
	if err != nil {
		s.log.Error().Err(err).Msg("sign jwt")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.setCookie(w, s.cfg.CookieName, tok, exp, 0)
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		if err := s.history.ClaimRounds(r.Context(), c.Value, u.ID); err != nil {
			s.log.Warn().Err(err).Msg("claim anon progress")
		}
	}
	return true
}

// --------------------------- optional auth ---------------------------------

// withOptionalAuth resolves the caller to a player ID. It never 401s.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if u := s.userFromToken(ctx, bearerOrCookie(r, s.cfg.CookieName)); u != nil {
				ctx = context.WithValue(ctx, ctxUserKey{}, u)
				ctx = context.WithValue(ctx, ctxPlayerKey{}, u.ID)
			} else {
				ctx = context.WithValue(ctx, ctxPlayerKey{}, s.ensureAnonID(w, r))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAuth rejects requests that withOptionalAuth did not authenticate.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *authUser {
	u, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return u
}

// playerID returns the ID resolved by withOptionalAuth, falling back to the
// anonymous cookie for routes mounted without it.
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) string {
	if id, _ := r.Context().Value(ctxPlayerKey{}).(string); id != "" {
		return id
	}
	return s.ensureAnonID(w, r)
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := "anon-" + uuid.NewString()
	s.setCookie(w, anonCookieName, id, s.now().Add(180*24*time.Hour), 0)
	return id
}

// userFromToken validates tok and checks the player still exists.
func (s *Server) userFromToken(ctx context.Context, tok string) *authUser {
	if tok == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return nil
	}
	u, err := s.findPlayerByID(ctx, id)
	if err != nil {
		return nil
	}
	return u
}

// ------------------------------- players -----------------------------------

// createPlayer hashes the password and inserts a new player.
func (s *Server) createPlayer(ctx context.Context, username, pw string) (*authUser, error) {
	username = strings.TrimSpace(username)
	var exists int
	_ = s.db.QueryRowContext(ctx, `SELECT 1 FROM players WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, errUsernameTaken
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &authUser{ID: uuid.NewString(), Username: username}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, string(h), s.now().UTC().Format(time.RFC3339),
	); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Server) findPlayerByUsername(ctx context.Context, username string) (*authUser, string, error) {
	var u authUser
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM players WHERE lower(username)=lower(?)`, username,
	).Scan(&u.ID, &u.Username, &hash)
	if err != nil {
		return nil, "", err
	}
	return &u, hash, nil
}

func (s *Server) findPlayerByID(ctx context.Context, id string) (*authUser, error) {
	var u authUser
	err := s.db.QueryRowContext(ctx, `SELECT id, username FROM players WHERE id=?`, id).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("no such player")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT with id/username expiring after JWT_EXPIRES_DAYS.
func (s *Server) signJWT(u *authUser) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(time.Duration(s.cfg.JWTExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       u.ID,
		"username": u.Username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// setCookie writes an HttpOnly cookie; maxAge < 0 deletes it.
func (s *Server) setCookie(w http.ResponseWriter, name, value string, exp time.Time, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: sameSite,
		Expires:  exp,
		MaxAge:   maxAge,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func bearerOrCookie(r *http.Request, cookieName string) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
