// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/backbeat/internal/blobstore"
	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/metrics"
	"github.com/tomtom215/backbeat/internal/models"
	"github.com/tomtom215/backbeat/internal/normalize"
	"github.com/tomtom215/backbeat/internal/notify"
	"github.com/tomtom215/backbeat/internal/relational"
	"github.com/tomtom215/backbeat/internal/runstate"
	"github.com/tomtom215/backbeat/internal/sink"
	"github.com/tomtom215/backbeat/internal/snapshot"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still executing.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Fetcher pulls a batch of recent play events from upstream.
type Fetcher interface {
	FetchRecentlyPlayed(ctx context.Context, accessToken string, limit int) (models.RawBatch, error)
}

// TokenProvider supplies a valid upstream access token.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Deps are the collaborators of a Runner. Relational and Publisher may be nil.
type Deps struct {
	Store      blobstore.Store
	Relational relational.Sink
	Journal    runstate.Journal
	Publisher  notify.Publisher

	// Prefix is the partition root of the raw snapshots.
	Prefix string
}

// Option configures a Runner.
type Option func(*Runner)

// WithFetcher makes every run fetch and persist a new snapshot first.
func WithFetcher(f Fetcher, tokens TokenProvider, limit int) Option {
	return func(r *Runner) {
		r.fetcher = f
		r.tokens = tokens
		r.fetchLimit = limit
	}
}

// WithClock overrides the time source used for run timestamps and load dates.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithRunTimeout bounds runs started with Start. Zero means no bound.
func WithRunTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.runTimeout = d
	}
}

// Runner executes pipeline runs.
type Runner struct {
	mu      sync.Mutex
	running atomic.Bool

	writer      *sink.Writer
	snapshots   *snapshot.Writer
	cleaned     *CleanedBuilder
	dimensional *DimensionalBuilder
	journal     runstate.Journal
	publisher   notify.Publisher

	fetcher    Fetcher
	tokens     TokenProvider
	fetchLimit int

	now        func() time.Time
	runTimeout time.Duration
}

// New creates a Runner.
func New(deps Deps, opts ...Option) *Runner {
	r := &Runner{
		journal:   deps.Journal,
		publisher: deps.Publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.journal == nil {
		r.journal = runstate.NewInMemory()
	}

	r.writer = sink.NewWriter(deps.Store, deps.Relational)
	r.snapshots = snapshot.NewWriter(deps.Store, deps.Prefix)
	r.cleaned = NewCleanedBuilder(
		snapshot.NewReader(deps.Store, deps.Prefix),
		normalize.New(normalize.WithClock(r.now)),
		r.writer,
	)
	r.dimensional = NewDimensionalBuilder(r.writer)
	return r
}

// Running reports whether a run is executing.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Run executes one run synchronously and returns its report.
//
// The error is non-nil when the run failed or is incomplete; the report is
// returned in both cases. Incomplete runs return an error matching
// models.ErrSinkWriteFailure.
func (r *Runner) Run(ctx context.Context) (*models.RunReport, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	return r.run(ctx, logging.NewRunID())
}

// Start launches a run in the background and returns its ID. The run is
// detached from ctx cancellation and bounded by the run timeout.
func (r *Runner) Start(ctx context.Context) (string, error) {
	if !r.mu.TryLock() {
		return "", ErrRunInProgress
	}

	id := logging.NewRunID()
	runCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if r.runTimeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, r.runTimeout)
	}

	go func() {
		defer r.mu.Unlock()
		defer cancel()
		if _, err := r.run(runCtx, id); err != nil {
			logging.Warn().Str("run_id", id).Err(err).Msg("Background run did not succeed")
		}
	}()
	return id, nil
}

// runState carries the bookkeeping of one run through its stages.
type runState struct {
	report   *models.RunReport
	dirty    map[string]bool
	sinkErrs []error
	stopped  bool
}

func (r *Runner) run(ctx context.Context, id string) (*models.RunReport, error) {
	r.running.Store(true)
	metrics.RunInProgress.Set(1)
	defer func() {
		r.running.Store(false)
		metrics.RunInProgress.Set(0)
	}()

	ctx = logging.ContextWithRunID(ctx, id)
	log := logging.Ctx(ctx)

	st := &runState{
		report: &models.RunReport{
			ID:        id,
			StartedAt: r.now().UTC(),
			Status:    models.RunSucceeded,
		},
		dirty: map[string]bool{},
	}
	log.Info().Msg("Pipeline run started")

	err := r.execute(ctx, st)

	report := st.report
	report.FinishedAt = r.now().UTC()
	switch {
	case err != nil:
		report.Status = models.RunFailed
		report.Error = err.Error()
	case len(st.sinkErrs) > 0:
		report.Status = models.RunIncomplete
		err = errors.Join(st.sinkErrs...)
		report.Error = err.Error()
	}

	r.finish(ctx, report)

	event := log.Info()
	if report.Status != models.RunSucceeded {
		event = log.Warn().Str("error", report.Error)
	}
	event.Str("status", string(report.Status)).
		Int("events_read", report.EventsRead).
		Int("inserted", report.Inserted()).
		Dur("duration", report.Duration()).
		Msg("Pipeline run finished")

	return report, err
}

// execute runs every stage. A returned error is fatal for the run; sink
// failures are collected on st instead.
func (r *Runner) execute(ctx context.Context, st *runState) error {
	if err := r.writer.EnsureSchema(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Relational schema bootstrap failed, tables will be marked dirty")
	}

	marks, err := r.journal.Dirty(ctx)
	if err != nil {
		return fmt.Errorf("read dirty marks: %w", err)
	}
	for _, m := range marks {
		st.dirty[m.Materialization] = true
	}

	if r.fetcher != nil {
		if err := r.fetch(ctx, st); err != nil {
			return err
		}
	}

	cleaned, err := r.cleaned.Build(ctx)
	if err != nil {
		st.fail(catalog.NameCleaned)
		return fmt.Errorf("build cleaned layer: %w", err)
	}
	st.report.EventsRead = cleaned.EventsRead
	commitBuild(ctx, r, st, cleaned.Build)

	rows := cleaned.Result.Final

	artists, err := r.dimensional.Artists(ctx, rows)
	if err != nil {
		st.fail(catalog.NameDimArtist)
		return fmt.Errorf("build %s: %w", catalog.NameDimArtist, err)
	}
	commitBuild(ctx, r, st, artists)

	albums, err := r.dimensional.Albums(ctx, rows)
	if err != nil {
		st.fail(catalog.NameDimAlbum)
		return fmt.Errorf("build %s: %w", catalog.NameDimAlbum, err)
	}
	commitBuild(ctx, r, st, albums)

	tracks, err := r.dimensional.Tracks(ctx, rows)
	if err != nil {
		st.fail(catalog.NameDimTrack)
		return fmt.Errorf("build %s: %w", catalog.NameDimTrack, err)
	}
	commitBuild(ctx, r, st, tracks)

	facts, err := r.dimensional.Facts(ctx, rows)
	if err != nil {
		st.fail(catalog.NameFact)
		return fmt.Errorf("build %s: %w", catalog.NameFact, err)
	}
	commitBuild(ctx, r, st, facts)

	return nil
}

func (r *Runner) fetch(ctx context.Context, st *runState) error {
	token, err := r.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("access token: %w", err)
	}

	batch, err := r.fetcher.FetchRecentlyPlayed(ctx, token, r.fetchLimit)
	if err != nil {
		return fmt.Errorf("fetch recently played: %w", err)
	}
	if batch.FetchedAt.IsZero() {
		batch.FetchedAt = r.now()
	}

	handle, err := r.snapshots.Persist(ctx, batch)
	if err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	metrics.RecordSnapshot(handle.Bytes)
	st.report.Snapshot = handle

	logging.Ctx(ctx).Info().
		Str("key", handle.Key).
		Int("events", handle.Events).
		Msg("Raw snapshot persisted")
	return nil
}

// commitBuild writes one build according to its merge outcome and records
// the materialization report. Once a blob write has failed every later
// materialization is skipped.
func commitBuild[R any](ctx context.Context, r *Runner, st *runState, b Build[R]) {
	name := b.Name()
	m := models.MaterializationReport{
		Name:       name,
		Candidates: b.Result.Candidates,
		Inserted:   len(b.Result.Inserted),
		Total:      len(b.Result.Final),
	}

	ctx = logging.ContextWithMaterialization(ctx, name)
	log := logging.Ctx(ctx)

	if st.stopped {
		m.Status = models.MaterializationSkipped
		m.Inserted = 0
		st.report.Materializations = append(st.report.Materializations, m)
		return
	}

	var err error
	switch {
	case !b.Result.NoOp():
		m.Status = models.MaterializationCommitted
		err = r.writer.Commit(ctx, b.Table.Spec, b.Values())
	case st.dirty[name] && b.Existed && r.writer.HasRelational():
		m.Status = models.MaterializationResynced
		err = r.writer.ReplaceRelational(ctx, b.Table.Spec, b.Values())
	default:
		m.Status = models.MaterializationNoOp
	}

	var sinkErr *models.SinkError
	switch {
	case err == nil:
		if m.Status != models.MaterializationNoOp && st.dirty[name] && r.writer.HasRelational() {
			if cerr := r.journal.ClearDirty(ctx, name); cerr != nil {
				log.Warn().Err(cerr).Msg("Failed to clear dirty mark")
			} else {
				delete(st.dirty, name)
			}
		}
	case errors.As(err, &sinkErr) && sinkErr.IsRelational():
		m.Status = models.MaterializationIncomplete
		m.RelationalError = sinkErr.Err.Error()
		st.sinkErrs = append(st.sinkErrs, err)
		st.dirty[name] = true
		mark := runstate.DirtyMark{
			Materialization: name,
			Since:           r.now().UTC(),
			RunID:           st.report.ID,
			Cause:           sinkErr.Err.Error(),
		}
		if merr := r.journal.MarkDirty(ctx, mark); merr != nil {
			log.Error().Err(merr).Msg("Failed to record dirty mark")
		}
	default:
		m.Status = models.MaterializationIncomplete
		m.BlobError = err.Error()
		m.Inserted = 0
		st.sinkErrs = append(st.sinkErrs, err)
		st.stopped = true
	}

	log.Info().
		Str("status", string(m.Status)).
		Int("candidates", m.Candidates).
		Int("inserted", m.Inserted).
		Int("total", m.Total).
		Int("duplicates", b.Result.Duplicates).
		Int("discarded", b.Result.Discarded).
		Msg("Materialization processed")
	if err != nil {
		log.Error().Err(err).Msg("Sink write failed")
	}

	st.report.Materializations = append(st.report.Materializations, m)
}

// fail records name as failed and every materialization after it as skipped.
func (st *runState) fail(name string) {
	failed := false
	for _, spec := range catalog.Specs() {
		if spec.Name == name {
			failed = true
			st.report.Materializations = append(st.report.Materializations,
				models.MaterializationReport{Name: name, Status: models.MaterializationFailed})
			continue
		}
		if failed {
			st.report.Materializations = append(st.report.Materializations,
				models.MaterializationReport{Name: spec.Name, Status: models.MaterializationSkipped})
		}
	}
}

// finish journals, publishes and records metrics for a finished run.
func (r *Runner) finish(ctx context.Context, report *models.RunReport) {
	log := logging.Ctx(ctx)

	if err := r.journal.RecordRun(ctx, report); err != nil {
		log.Error().Err(err).Msg("Failed to record run")
	}

	if marks, err := r.journal.Dirty(ctx); err == nil {
		metrics.DirtyTables.Set(float64(len(marks)))
	}

	if r.publisher != nil {
		err := r.publisher.Publish(ctx, report)
		metrics.RecordNotification(r.publisher.Transport(), err)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to publish run notification")
		}
	}

	metrics.RecordRun(report)
}
