// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package runstate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/models"
)

const (
	lastRunKey    = "run:last"
	historyPrefix = "run:history:"
	dirtyPrefix   = "sink:dirty:"
)

// Badger is a Journal backed by BadgerDB.
type Badger struct {
	db    *badger.DB
	limit int
}

// OpenBadger opens (or creates) the journal in dir. Opening a directory
// already held by another process fails.
func OpenBadger(dir string) (*Badger, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create runstate directory %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = newBadgerLogger()

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for runstate: %w", err)
	}
	return NewBadgerFromDB(db), nil
}

// NewBadgerFromDB wraps an open database. Close closes db.
func NewBadgerFromDB(db *badger.DB) *Badger {
	return &Badger{db: db, limit: DefaultHistoryLimit}
}

// RecordRun stores report and prunes history beyond the retention limit.
func (b *Badger) RecordRun(ctx context.Context, report *models.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(lastRunKey), data); err != nil {
			return err
		}
		return txn.Set(historyKey(report), data)
	})
	if err != nil {
		return fmt.Errorf("record run %s: %w", report.ID, err)
	}

	return b.prune()
}

// LastRun returns the latest report.
func (b *Badger) LastRun(ctx context.Context) (*models.RunReport, error) {
	var report *models.RunReport

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastRunKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			report = &models.RunReport{}
			return json.Unmarshal(val, report)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load last run: %w", err)
	}
	return report, nil
}

// Runs iterates history in reverse key order.
func (b *Badger) Runs(ctx context.Context, limit int) ([]models.RunReport, error) {
	if limit <= 0 {
		limit = b.limit
	}
	var reports []models.RunReport

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true
		opts.Prefix = []byte(historyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(historyPrefix)
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix) && len(reports) < limit; it.Next() {
			var r models.RunReport
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			reports = append(reports, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return reports, nil
}

// MarkDirty stores mark unless one already exists for the materialization.
func (b *Badger) MarkDirty(ctx context.Context, mark DirtyMark) error {
	key := []byte(dirtyPrefix + mark.Materialization)

	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(mark)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("mark %s dirty: %w", mark.Materialization, err)
	}
	return nil
}

// ClearDirty deletes the mark.
func (b *Badger) ClearDirty(ctx context.Context, materialization string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(dirtyPrefix + materialization))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("clear %s dirty mark: %w", materialization, err)
	}
	return nil
}

// Dirty lists marks. Badger iterates keys in byte order, which sorts by name.
func (b *Badger) Dirty(ctx context.Context) ([]DirtyMark, error) {
	var marks []DirtyMark

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(dirtyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m DirtyMark
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			marks = append(marks, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list dirty marks: %w", err)
	}
	return marks, nil
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// prune deletes history entries beyond the retention limit.
func (b *Badger) prune() error {
	var stale [][]byte

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(historyPrefix)
		n := 0
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix); it.Next() {
			n++
			if n > b.limit {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// historyKey orders reports by start time; the run id breaks ties.
func historyKey(r *models.RunReport) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", historyPrefix, r.StartedAt.UnixNano(), r.ID))
}

// badgerLogger routes BadgerDB's internal logging through zerolog. Info and
// debug chatter is dropped below warn level.
type badgerLogger struct {
	logger zerolog.Logger
}

func newBadgerLogger() *badgerLogger {
	return &badgerLogger{logger: logging.WithComponent("badger")}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

var _ Journal = (*Badger)(nil)
