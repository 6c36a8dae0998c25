// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package api

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/tomtom215/backbeat/internal/logging"
)

const (
	stateCookie    = "backbeat_oauth_state"
	stateCookieAge = 600
)

// handleLogin redirects to the Spotify consent page with a fresh state
// value, remembered in a short-lived cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   stateCookieAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.deps.Auth.AuthorizationURL(url.Values{"state": {state}}), http.StatusFound)
}

// handleCallback validates state, exchanges the code and stores the token.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	if denied := q.Get("error"); denied != "" {
		rw.BadRequest("authorization denied: " + denied)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	state := q.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		rw.BadRequest("invalid or expired state")
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true})

	code := q.Get("code")
	if code == "" {
		rw.BadRequest("missing authorization code")
		return
	}

	tok, err := s.deps.Auth.Exchange(r.Context(), code)
	if err != nil {
		rw.ExternalServiceError("spotify accounts", err)
		return
	}
	if err := s.deps.Tokens.Save(tok); err != nil {
		rw.InternalError("failed to store token", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("scope", tok.Scope).Msg("Spotify authorization stored")
	rw.Success(map[string]interface{}{
		"authorized": true,
		"scope":      tok.Scope,
		"expires_at": tok.Expiry,
	})
}
