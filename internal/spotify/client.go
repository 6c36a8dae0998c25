// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package spotify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/metrics"
	"github.com/tomtom215/backbeat/internal/models"
)

// Fetch limits accepted by the recently-played endpoint.
const (
	MinFetchLimit = 1
	MaxFetchLimit = 50
)

const (
	recentlyPlayedPath = "/v1/me/player/recently-played"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20

	// maxErrorBodyBytes caps the body kept on a StatusError.
	maxErrorBodyBytes = 4 << 10
)

// StatusError is returned for a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("spotify: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client fetches play history from the Spotify Web API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	now        func() time.Time
}

// NewClient creates a client from the spotify config section.
func NewClient(cfg *config.SpotifyConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.APIURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries: cfg.MaxRetries,
		baseDelay:  time.Second,
		now:        time.Now,
	}
}

// ClampLimit bounds a requested fetch size to what the endpoint accepts.
func ClampLimit(limit int) int {
	if limit < MinFetchLimit {
		return MinFetchLimit
	}
	if limit > MaxFetchLimit {
		return MaxFetchLimit
	}
	return limit
}

// FetchRecentlyPlayed requests up to limit of the most recent play events.
// The returned batch carries the response body verbatim for snapshotting.
func (c *Client) FetchRecentlyPlayed(ctx context.Context, accessToken string, limit int) (models.RawBatch, error) {
	if accessToken == "" {
		return models.RawBatch{}, fmt.Errorf("spotify: access token is required")
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(ClampLimit(limit)))
	reqURL := c.baseURL + recentlyPlayedPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRateLimit(req)
	if err != nil {
		return models.RawBatch{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.RawBatch{}, newStatusError(resp.StatusCode, body)
	}

	var batch models.RawBatch
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&batch); err != nil {
		return models.RawBatch{}, fmt.Errorf("decode response: %w", err)
	}
	batch.Body = body
	batch.FetchedAt = c.now().UTC()

	logging.Ctx(ctx).Debug().
		Int("events", len(batch.Items)).
		Int("bytes", len(body)).
		Msg("Fetched recently played")

	return batch, nil
}

// doRequestWithRateLimit waits on the client-side limiter, then executes req,
// retrying HTTP 429 with exponential backoff. A Retry-After header overrides
// the computed delay. When the retry budget is exhausted the 429 is returned
// as a *StatusError.
func (c *Client) doRequestWithRateLimit(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordUpstreamRequest(recentlyPlayedPath, 0, time.Since(start))
			return nil, fmt.Errorf("execute request: %w", err)
		}
		metrics.RecordUpstreamRequest(recentlyPlayedPath, resp.StatusCode, time.Since(start))

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= c.maxRetries {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
			resp.Body.Close()
			return nil, newStatusError(resp.StatusCode, body)
		}

		retryDelay := retryAfter(resp.Header.Get("Retry-After"), c.baseDelay*(1<<attempt))
		resp.Body.Close()

		logging.Ctx(ctx).Warn().
			Dur("retry_delay", retryDelay).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Spotify API rate limited (HTTP 429), retrying")

		timer := time.NewTimer(retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// retryAfter parses a Retry-After header given in seconds. Anything else
// falls back to def.
func retryAfter(header string, def time.Duration) time.Duration {
	if header == "" {
		return def
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

func newStatusError(code int, body []byte) *StatusError {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return &StatusError{StatusCode: code, Body: strings.TrimSpace(string(body))}
}
