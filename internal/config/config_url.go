// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	natsSchemes     = []string{"nats", "tls", "ws", "wss"}
	postgresSchemes = []string{"postgres", "postgresql"}
)

// checkURL requires raw to parse with one of schemes and a non-empty host.
func checkURL(raw string, schemes []string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !slices.Contains(schemes, u.Scheme) {
		return fmt.Errorf("scheme %q not one of %s", u.Scheme, strings.Join(schemes, ", "))
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

func validateNATSURL(raw string) error {
	return checkURL(raw, natsSchemes)
}

// validatePostgresDSN checks URL-form DSNs only. Keyword/value DSNs
// ("host=... dbname=...") have no scheme and are left to pgx.
func validatePostgresDSN(dsn string) error {
	if !strings.Contains(dsn, "://") {
		return nil
	}
	return checkURL(dsn, postgresSchemes)
}

