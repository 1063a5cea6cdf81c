// Package server exposes the HTTP surface: account endpoints, the bounded
// message history, and the chat-completion proxy.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"chatvault/internal/app"
	"chatvault/internal/ratelimit"
	"chatvault/internal/token"
	"chatvault/internal/util"
	"chatvault/pkg/ai"
	"chatvault/pkg/domain"
)

const refreshCookieName = "refreshToken"

// Completer produces chat completions for the proxy endpoint.
type Completer interface {
	Complete(ctx context.Context, messages []ai.Message) (json.RawMessage, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App       *app.App
	Tokens    *token.Service
	Completer Completer

	// CORSOrigin is the single browser origin allowed to send credentials.
	CORSOrigin string
	// SecureCookies marks the refresh cookie Secure (production deployments).
	SecureCookies bool

	// Limiters are optional; nil disables limiting for that endpoint.
	LoginLimiter    *ratelimit.FixedWindowLimiter
	RegisterLimiter *ratelimit.FixedWindowLimiter
	TrustedProxies  *util.TrustedProxies
}

// Server exposes the HTTP endpoints.
type Server struct {
	app             *app.App
	tokens          *token.Service
	completer       Completer
	corsOrigin      string
	secureCookies   bool
	loginLimiter    *ratelimit.FixedWindowLimiter
	registerLimiter *ratelimit.FixedWindowLimiter
	trustedProxies  *util.TrustedProxies
	mux             *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:             cfg.App,
		tokens:          cfg.Tokens,
		completer:       cfg.Completer,
		corsOrigin:      cfg.CORSOrigin,
		secureCookies:   cfg.SecureCookies,
		loginLimiter:    cfg.LoginLimiter,
		registerLimiter: cfg.RegisterLimiter,
		trustedProxies:  cfg.TrustedProxies,
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.corsOrigin, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// accounts
	s.mux.HandleFunc("/register", s.handleRegister)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/logout", s.handleLogout)
	s.mux.HandleFunc("/refresh-token", s.handleRefreshToken)
	s.mux.Handle("/profile", s.authenticated(s.handleProfile))
	s.mux.Handle("/update", s.authenticated(s.handleUpdate))

	// message history
	s.mux.Handle("/saveMessage", s.authenticated(s.handleSaveMessage))
	s.mux.Handle("/deleteAllMessages", s.authenticated(s.handleDeleteAllMessages))

	// completion proxy
	s.mux.HandleFunc("/api/chat", s.handleChat)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session middleware

type authHandler func(http.ResponseWriter, *http.Request, string)

// authenticated gates a handler behind bearer-token verification. A missing
// credential is 401; a present-but-rejected one is 403. No I/O happens here.
func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		subject, status := s.tokens.Verify(raw, token.KindAccess)
		if status != token.StatusValid {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, subject)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if raw == "" {
		return "", false
	}
	return raw, true
}

// account handlers

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allow(s.registerLimiter, r) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	account, err := s.app.Register(app.RegisterInput{
		Name:     req.Name,
		SurName:  req.SurName,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmailTaken), errors.Is(err, app.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.internalError(w, r, "register", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allow(s.loginLimiter, r) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	pair, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, r, "login", err)
		return
	}
	s.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "successfully logged out"})
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accessToken, err := s.app.Refresh(cookie.Value)
	if err != nil {
		if errors.Is(err, app.ErrRefreshRejected) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		s.internalError(w, r, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, subject string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	account, err := s.app.GetProfile(subject)
	if err != nil {
		if errors.Is(err, app.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.internalError(w, r, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, subject string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	account, err := s.app.UpdateProfile(subject, app.ProfileInput{
		Name:    req.Name,
		SurName: req.SurName,
		Age:     req.Age,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrAccountNotFound):
			// The original surfaces a vanished update target as forbidden.
			writeError(w, http.StatusForbidden, "forbidden")
		default:
			s.internalError(w, r, "update", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// message history handlers

func (s *Server) handleSaveMessage(w http.ResponseWriter, r *http.Request, subject string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req saveMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	account, err := s.app.MergeMessages(subject, req.Chat)
	if err != nil {
		if errors.Is(err, app.ErrAccountNotFound) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		s.internalError(w, r, "save message", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAllMessages(w http.ResponseWriter, r *http.Request, subject string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	count, err := s.app.DeleteAllMessages(subject)
	if err != nil {
		s.internalError(w, r, "delete messages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"modifiedCount": count})
}

// completion proxy

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "missing required parameter: 'messages'")
		return
	}
	raw, err := s.completer.Complete(r.Context(), req.Messages)
	if err != nil {
		s.internalError(w, r, "chat completion", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// helpers

func (s *Server) allow(limiter *ratelimit.FixedWindowLimiter, r *http.Request) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(util.ClientIP(r, s.trustedProxies))
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.tokens.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie uses the same attributes as setRefreshCookie so browsers
// actually drop it.
func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	util.LoggerFromContext(r.Context()).Error(op+" failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// request payloads

type registerRequest struct {
	Name     string `json:"name"`
	SurName  string `json:"surName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateRequest struct {
	Name    *string `json:"name"`
	SurName *string `json:"surName"`
	Age     *int    `json:"age"`
}

type saveMessageRequest struct {
	Chat []domain.MessagePair `json:"chat"`
}

type chatRequest struct {
	Messages []ai.Message `json:"messages"`
}
