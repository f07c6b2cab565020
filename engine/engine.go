// Package engine wires the split planner, worker pool, and day-mergers
// into the single driver-facing entry point: Run(ctx, cfg). Workers and
// mergers are supervised by golang.org/x/sync/errgroup so a failing
// worker aborts the whole run and its error reaches the caller, rather
// than being silently dropped.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/obfactors/engine/internal/csvout"
	"github.com/obfactors/engine/internal/reduce"
	"github.com/obfactors/engine/internal/rowset"
	"github.com/obfactors/engine/internal/splitplan"
	"github.com/obfactors/engine/internal/worker"
)

// Run processes the tree rooted at cfg.Root and writes one committed CSV
// (and, if enabled, one Arrow file) per discovered trading day under
// cfg.OutputDir. It returns nil only if every day committed successfully;
// any single worker or merger failure aborts the whole run and no partial
// day file is left committed.
func Run(ctx context.Context, cfg Config) error {
	days, err := splitplan.Discover(cfg.Root)
	if err != nil {
		return fmt.Errorf("engine: discover: %w", err)
	}
	if len(days) == 0 {
		return ErrNoTradingDays
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("engine: mkdir output: %w", err)
	}

	p := cfg.Parallelism
	if p <= 0 {
		p = runtime.GOMAXPROCS(0)
	}
	if hw := runtime.NumCPU(); p > hw {
		p = hw
	}
	chunks := splitplan.Plan(days, p)
	log.Printf("engine: %d trading days, %d chunks, parallelism %d", len(days), len(chunks), p)

	jobs := make(map[int]*dayJob, len(days))
	for _, d := range days {
		jobs[d.DayID] = &dayJob{day: d, ch: make(chan worker.Record, cfg.recordBuffer())}
	}
	for _, c := range chunks {
		jobs[c.DayID].chunkCount++
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			return runDay(gctx, cfg, job.day, job.ch)
		})
	}

	var mu sync.Mutex
	remaining := make(map[int]int, len(jobs))
	for id, job := range jobs {
		remaining[id] = job.chunkCount
	}

	for _, c := range chunks {
		c := c
		job := jobs[c.DayID]
		g.Go(func() error {
			defer func() {
				mu.Lock()
				remaining[c.DayID]--
				done := remaining[c.DayID] == 0
				mu.Unlock()
				if done {
					close(job.ch)
				}
			}()
			return worker.Run(gctx, c, job.ch)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("engine: committed %d day files under %s", len(days), cfg.OutputDir)
	return nil
}

type dayJob struct {
	day        splitplan.Day
	ch         chan worker.Record
	chunkCount int
}

// runDay absorbs every record routed to day until ch is closed (all of
// the day's workers finished) or the group context is cancelled, then
// finalizes and commits the day's output.
func runDay(ctx context.Context, cfg Config, day splitplan.Day, ch <-chan worker.Record) error {
	m := reduce.NewMerger(day.DayID)

	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				rows := m.Finalize()
				return writeDay(cfg, day.MMDD, rows)
			}
			m.Absorb(rec.Packed, &rec.Sum, rec.Count)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func writeDay(cfg Config, mmdd string, rows []rowset.Row) error {
	csvSink, arrowSink := sinks(cfg)

	w, err := csvout.New(csvSink, mmdd)
	if err != nil {
		return fmt.Errorf("engine: %s: %w", mmdd, err)
	}

	if err := w.WriteHeader(); err != nil {
		w.Abort()
		return fmt.Errorf("engine: %s: write header: %w", mmdd, err)
	}
	if err := w.WriteRows(rows); err != nil {
		w.Abort()
		return fmt.Errorf("engine: %s: write rows: %w", mmdd, err)
	}
	if err := w.Commit(); err != nil {
		return fmt.Errorf("engine: %s: commit: %w", mmdd, err)
	}

	if arrowSink != nil {
		if err := arrowSink.WriteDay(mmdd, rows); err != nil {
			return fmt.Errorf("engine: %s: arrow sink: %w", mmdd, err)
		}
	}

	log.Printf("engine: day %s committed, %d rows", mmdd, len(rows))
	return nil
}
