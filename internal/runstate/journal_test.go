// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package runstate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/backbeat/internal/models"
)

func journals(t *testing.T) map[string]func() Journal {
	return map[string]func() Journal{
		"badger": func() Journal {
			j, err := OpenBadger(t.TempDir())
			if err != nil {
				t.Fatalf("OpenBadger() error = %v", err)
			}
			return j
		},
		"memory": func() Journal { return NewInMemory() },
	}
}

func report(id string, started time.Time, status models.RunStatus) *models.RunReport {
	return &models.RunReport{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Status:     status,
		Materializations: []models.MaterializationReport{
			{Name: "recently_played", Status: models.MaterializationCommitted, Inserted: 3, Total: 3},
		},
	}
}

func TestJournal_Runs(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	for name, open := range journals(t) {
		t.Run(name, func(t *testing.T) {
			j := open()
			defer j.Close()

			last, err := j.LastRun(ctx)
			if err != nil || last != nil {
				t.Fatalf("LastRun() on empty journal = %v, %v", last, err)
			}

			for i := 0; i < 3; i++ {
				r := report(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour), models.RunSucceeded)
				if err := j.RecordRun(ctx, r); err != nil {
					t.Fatalf("RecordRun() error = %v", err)
				}
			}

			last, err = j.LastRun(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if last.ID != "run-2" || last.Materializations[0].Inserted != 3 {
				t.Errorf("LastRun() = %+v", last)
			}
			if !last.StartedAt.Equal(base.Add(2 * time.Hour)) {
				t.Errorf("StartedAt = %v", last.StartedAt)
			}

			runs, err := j.Runs(ctx, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != 2 || runs[0].ID != "run-2" || runs[1].ID != "run-1" {
				t.Errorf("Runs(2) = %v, want run-2, run-1", ids(runs))
			}

			all, _ := j.Runs(ctx, 0)
			if len(all) != 3 {
				t.Errorf("Runs(0) returned %d, want 3", len(all))
			}
		})
	}
}

func ids(runs []models.RunReport) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func TestJournal_Dirty(t *testing.T) {
	ctx := context.Background()
	since := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	for name, open := range journals(t) {
		t.Run(name, func(t *testing.T) {
			j := open()
			defer j.Close()

			marks := []DirtyMark{
				{Materialization: "fact_recently_played", Since: since, RunID: "r1", Cause: "timeout"},
				{Materialization: "dim_album", Since: since, RunID: "r1", Cause: "timeout"},
			}
			for _, m := range marks {
				if err := j.MarkDirty(ctx, m); err != nil {
					t.Fatalf("MarkDirty() error = %v", err)
				}
			}
			// Re-marking keeps the original mark.
			if err := j.MarkDirty(ctx, DirtyMark{Materialization: "dim_album", Since: since.Add(time.Hour), RunID: "r2"}); err != nil {
				t.Fatal(err)
			}

			got, err := j.Dirty(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got[0].Materialization != "dim_album" || got[1].Materialization != "fact_recently_played" {
				t.Fatalf("Dirty() = %+v, want sorted by name", got)
			}
			if got[0].RunID != "r1" || !got[0].Since.Equal(since) {
				t.Errorf("re-mark replaced original: %+v", got[0])
			}

			if err := j.ClearDirty(ctx, "dim_album"); err != nil {
				t.Fatal(err)
			}
			if err := j.ClearDirty(ctx, "never_marked"); err != nil {
				t.Errorf("ClearDirty(unmarked) error = %v", err)
			}
			got, _ = j.Dirty(ctx)
			if len(got) != 1 || got[0].Materialization != "fact_recently_played" {
				t.Errorf("Dirty() after clear = %+v", got)
			}
		})
	}
}

func TestBadger_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, err := OpenBadger(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.RecordRun(ctx, report("r1", time.Now(), models.RunIncomplete)); err != nil {
		t.Fatal(err)
	}
	if err := j.MarkDirty(ctx, DirtyMark{Materialization: "dim_track"}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j, err = OpenBadger(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer j.Close()

	last, _ := j.LastRun(ctx)
	if last == nil || last.ID != "r1" || last.Status != models.RunIncomplete {
		t.Errorf("LastRun() after reopen = %+v", last)
	}
	dirty, _ := j.Dirty(ctx)
	if len(dirty) != 1 {
		t.Errorf("Dirty() after reopen = %+v", dirty)
	}
}

func TestBadger_ExclusiveDirectory(t *testing.T) {
	dir := t.TempDir()
	j, err := OpenBadger(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	if second, err := OpenBadger(dir); err == nil {
		second.Close()
		t.Error("second OpenBadger() on a held directory should fail")
	}
}

func TestBadger_Prune(t *testing.T) {
	ctx := context.Background()
	j, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	j.limit = 3

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := j.RecordRun(ctx, report(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute), models.RunSucceeded)); err != nil {
			t.Fatal(err)
		}
	}

	runs, _ := j.Runs(ctx, 10)
	if len(runs) != 3 || runs[2].ID != "r2" {
		t.Errorf("Runs() after prune = %v, want r4, r3, r2", ids(runs))
	}
}

func TestInMemory_CopiesReports(t *testing.T) {
	ctx := context.Background()
	j := NewInMemory()
	r := report("r1", time.Now(), models.RunSucceeded)
	if err := j.RecordRun(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.Materializations[0].Inserted = 99

	last, _ := j.LastRun(ctx)
	if last.Materializations[0].Inserted != 3 {
		t.Error("journal shares memory with the caller's report")
	}
}
