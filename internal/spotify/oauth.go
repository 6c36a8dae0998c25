// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/backbeat/internal/config"
)

// DefaultScope grants read access to the listening history.
const DefaultScope = "user-read-recently-played"

const (
	authorizePath = "/authorize"
	tokenPath     = "/api/token"
)

// ErrNoRefreshToken is returned by Refresh when the token cannot be renewed.
var ErrNoRefreshToken = errors.New("spotify: token has no refresh token")

// Token is an OAuth access token as persisted in the token file.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// ExpiresWithin reports whether the token expires within d of now. A token
// without an expiry never expires.
func (t *Token) ExpiresWithin(now time.Time, d time.Duration) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return !now.Add(d).Before(t.Expiry)
}

// tokenResponse is the accounts service token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// OAuth implements the authorization-code flow against the accounts service.
type OAuth struct {
	accountsURL  string
	clientID     string
	clientSecret string
	redirectURI  string
	scope        string
	httpClient   *http.Client
	now          func() time.Time
}

// NewOAuth creates an OAuth client from the spotify config section.
func NewOAuth(cfg *config.SpotifyConfig) *OAuth {
	scope := cfg.Scope
	if scope == "" {
		scope = DefaultScope
	}
	return &OAuth{
		accountsURL:  strings.TrimSuffix(cfg.AccountsURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		scope:        scope,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		now:          time.Now,
	}
}

// AuthorizationURL returns the URL the user visits to grant access. extra is
// merged into the query (for example a state parameter).
func (o *OAuth) AuthorizationURL(extra url.Values) string {
	q := url.Values{}
	q.Set("client_id", o.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", o.redirectURI)
	if o.scope != "" {
		q.Set("scope", o.scope)
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return o.accountsURL + authorizePath + "?" + q.Encode()
}

// Exchange trades an authorization code for a token.
func (o *OAuth) Exchange(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, fmt.Errorf("spotify: authorization code is required")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", o.redirectURI)
	return o.requestToken(ctx, form)
}

// Refresh renews tok. The refresh token is carried over when the accounts
// service does not rotate it.
func (o *OAuth) Refresh(ctx context.Context, tok *Token) (*Token, error) {
	if tok == nil || tok.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", tok.RefreshToken)

	fresh, err := o.requestToken(ctx, form)
	if err != nil {
		return nil, err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	if fresh.Scope == "" {
		fresh.Scope = tok.Scope
	}
	return fresh, nil
}

func (o *OAuth) requestToken(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.accountsURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(o.clientID, o.clientSecret)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("spotify: token response has no access_token")
	}

	tok := &Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = o.now().UTC().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}
