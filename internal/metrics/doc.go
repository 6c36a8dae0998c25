// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package metrics provides Prometheus instrumentation for Backbeat.

All collectors are registered on the default registry through promauto and
exposed by the HTTP server at /metrics.

# Metric Families

Pipeline runs:
  - backbeat_runs_total{status}
  - backbeat_run_duration_seconds
  - backbeat_run_last_timestamp_seconds{status}
  - backbeat_run_in_progress
  - backbeat_raw_events_read_total

Snapshots:
  - backbeat_snapshots_persisted_total
  - backbeat_snapshot_bytes_total

Materializations:
  - backbeat_rows_inserted_total{materialization}
  - backbeat_materialization_rows{materialization}
  - backbeat_materialization_outcomes_total{materialization, status}

Sinks:
  - backbeat_sink_write_duration_seconds{sink, materialization}
  - backbeat_sink_write_errors_total{sink, materialization}
  - backbeat_relational_dirty_tables

Upstream API and circuit breaker:
  - backbeat_upstream_requests_total{endpoint, status_code}
  - backbeat_upstream_request_duration_seconds{endpoint}
  - backbeat_upstream_rate_limited_total
  - circuit_breaker_state{name}
  - circuit_breaker_requests_total{name, result}
  - circuit_breaker_consecutive_failures{name}
  - circuit_breaker_state_transitions_total{name, from_state, to_state}

HTTP API:
  - api_requests_total{method, endpoint, status_code}
  - api_request_duration_seconds{method, endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Notifications:
  - backbeat_notifications_published_total{transport, result}

# Example Queries

Runs that left a sink behind in the last day:

	increase(backbeat_runs_total{status="incomplete"}[1d])

Hours since the last successful run:

	(time() - backbeat_run_last_timestamp_seconds{status="succeeded"}) / 3600

New plays per day:

	increase(backbeat_rows_inserted_total{materialization="recently_played"}[1d])

# Alerting

	- alert: BackbeatRelationalOutOfSync
	  expr: backbeat_relational_dirty_tables > 0
	  for: 2h

	- alert: BackbeatUpstreamCircuitOpen
	  expr: circuit_breaker_state{name="spotify-api"} == 2
	  for: 15m
*/
package metrics
