// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/models"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

const (
	exitOK         = 0
	exitError      = 1
	exitUsage      = 2
	exitIncomplete = 3
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, cfg *config.Config) error
}

var commands = []command{
	{"run", "execute one pipeline run and exit", cmdRun},
	{"serve", "run the scheduler and the operational HTTP API", cmdServe},
	{"authorize", "start a login server and store the Spotify token", cmdAuthorize},
	{"schema", "create relational schemas and tables", cmdSchema},
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	name := args[0]
	switch name {
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, "backbeat", version)
		return exitOK
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return exitOK
	}

	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(stderr, "backbeat: unknown command %q\n\n", name)
		usage(stderr)
		return exitUsage
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "backbeat: %v\n", err)
		return exitError
	}

	logging.Init(logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Caller))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, cfg); err != nil {
		return exitCode(err)
	}
	return exitOK
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// exitCode maps a command error to the process exit status. Incomplete runs
// exit 3 so that cron wrappers can tell them apart from hard failures.
func exitCode(err error) int {
	if errors.Is(err, models.ErrSinkWriteFailure) {
		logging.Warn().Err(err).Msg("Run incomplete")
		return exitIncomplete
	}
	logging.Error().Err(err).Msg("Command failed")
	return exitError
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: backbeat <command> [-config file]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "  %-10s %s\n", "version", "print the build version")
}
