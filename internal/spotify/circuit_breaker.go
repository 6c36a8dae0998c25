// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package spotify

import (
	"context"
	"errors"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/metrics"
	"github.com/tomtom215/backbeat/internal/models"
)

const breakerName = "spotify-api"

// CircuitBreakerClient wraps Client with a circuit breaker.
//
// The breaker trips when at least 5 requests in the measurement window have a
// failure rate of 60% or more, and probes again after 2 minutes. Client errors
// (4xx other than 429) count as successes for the breaker: they mean the
// upstream is up and the request itself was wrong.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[models.RawBatch]
	name   string
}

// NewCircuitBreakerClient creates a Client guarded by a circuit breaker.
func NewCircuitBreakerClient(cfg *config.SpotifyConfig) *CircuitBreakerClient {
	return WrapClient(NewClient(cfg), breakerSettings())
}

// WrapClient guards an existing client with the given breaker settings.
func WrapClient(client *Client, st gobreaker.Settings) *CircuitBreakerClient {
	if st.Name == "" {
		st.Name = breakerName
	}

	metrics.CircuitBreakerState.WithLabelValues(st.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(st.Name).Set(0)

	return &CircuitBreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker[models.RawBatch](st),
		name:   st.Name,
	}
}

func breakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := from.String(), to.String()
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	}
}

// isBreakerSuccess reports whether err should count as a healthy upstream.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// FetchRecentlyPlayed calls Client.FetchRecentlyPlayed through the breaker.
// While the circuit is open it fails fast with gobreaker.ErrOpenState.
func (cbc *CircuitBreakerClient) FetchRecentlyPlayed(ctx context.Context, accessToken string, limit int) (models.RawBatch, error) {
	batch, err := cbc.cb.Execute(func() (models.RawBatch, error) {
		return cbc.client.FetchRecentlyPlayed(ctx, accessToken, limit)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Ctx(ctx).Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
			counts := cbc.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
		}
		return models.RawBatch{}, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
	return batch, nil
}

// State returns the current breaker state.
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
