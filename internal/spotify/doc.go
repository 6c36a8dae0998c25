// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package spotify talks to the Spotify Web API and its accounts service.

It provides the upstream side of the pipeline: fetching the recently-played
endpoint and managing the OAuth token used to do so.

# Components

  - Client: GET /v1/me/player/recently-played with bearer auth, a client-side
    rate limiter (golang.org/x/time/rate) and HTTP 429 retry with backoff
  - CircuitBreakerClient: wraps Client with sony/gobreaker so a failing
    upstream is not hammered by scheduled runs
  - OAuth: authorization-code flow (AuthorizationURL, Exchange, Refresh)
  - TokenStore / TokenSource: token file persistence and refresh on expiry

# Errors

Non-2xx responses other than 429 are returned as *StatusError and are never
swallowed. A 429 that persists past the retry budget is also a *StatusError.

# Usage

	oauth := spotify.NewOAuth(&cfg.Spotify)
	tokens := spotify.NewTokenSource(oauth, spotify.NewTokenStore(cfg.Spotify.TokenFile))
	client := spotify.NewCircuitBreakerClient(&cfg.Spotify)

	access, err := tokens.AccessToken(ctx)
	if err != nil {
	    return err
	}
	batch, err := client.FetchRecentlyPlayed(ctx, access, cfg.Spotify.FetchLimit)
*/
package spotify
