package core

// runner.go executes one migration job from start to a terminal status.
//
// A job without a file runs a fixed simulation. A job with a file is read
// row by row through the reader chosen by its suffix; each row goes through
// the importer for the job's kind. A row that fails is counted and logged as
// a warning and the job moves on. Anything else that goes wrong, including a
// panic, fails the whole job with the error text as its message.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/JonMunkholm/migrator/internal/logging"
)

// simulationTotal is the row count reported by a file-less job.
const simulationTotal = 100

// RunnerConfig tunes the runner.
type RunnerConfig struct {
	// CheckpointEvery is the number of rows between persisted progress updates.
	CheckpointEvery int
	// SimulationStep is the pause between steps of a file-less job.
	SimulationStep time.Duration
}

// Runner executes migration jobs.
type Runner struct {
	store   Store
	files   LocalFiles
	formats *Formats
	log     *ProgressLogger
	cfg     RunnerConfig
}

func NewRunner(store Store, files LocalFiles, formats *Formats, log *ProgressLogger, cfg RunnerConfig) *Runner {
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 10
	}
	return &Runner{store: store, files: files, formats: formats, log: log, cfg: cfg}
}

// Run drives job jobID to completed or failed. The returned error covers
// only failures to load the job; everything after that is reported through
// the job's status and log.
func (r *Runner) Run(ctx context.Context, jobID int64) error {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load migration %d: %w", jobID, err)
	}
	if job.Status != StatusRunning {
		return nil
	}

	var c Counters
	defer func() {
		if p := recover(); p != nil {
			logging.ForJob(ctx, jobID).Error("migration panicked", "panic", p, "stack", string(debug.Stack()))
			r.abort(ctx, job, c, fmt.Errorf("panic: %v", p))
		}
	}()

	r.log.Logf(ctx, job.ID, LevelInfo, "Starting migration: %s", job.Name)

	if err := r.execute(ctx, job, &c); err != nil {
		r.abort(ctx, job, c, err)
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, job Job, c *Counters) error {
	if job.FileName == "" {
		return r.simulate(ctx, job, c)
	}

	reader, err := r.formats.ForFile(job.FileName)
	if err != nil {
		return err
	}
	path, err := r.files.Path(job.FileName)
	if err != nil {
		return err
	}
	importer, ok := ImporterFor(job.Kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, job.Kind)
	}

	src, err := reader.Open(ctx, path)
	if err != nil {
		return err
	}
	defer src.Close()

	c.Total = src.Total()
	r.checkpoint(ctx, job.ID, *c)
	r.log.Logf(ctx, job.ID, LevelInfo, "%s file loaded: %d rows", reader.Name(), c.Total)
	if c.Total == 0 {
		r.log.Log(ctx, job.ID, LevelWarning, "File contains no data rows")
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("interrupted after %d rows: %w", c.Processed, err)
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		index := c.Processed + 1
		if err != nil && !errors.Is(err, ErrRowDecode) {
			return fmt.Errorf("read row %d: %w", index, err)
		}
		if err == nil {
			err = r.importRow(ctx, importer, row)
		}

		c.Processed++
		if c.Processed > c.Total {
			c.Total = c.Processed
		}
		if err != nil {
			c.Failed++
			r.log.Logf(ctx, job.ID, LevelWarning, "Row %d: %v", index, err)
		} else {
			c.Succeeded++
		}

		if c.Processed%r.cfg.CheckpointEvery == 0 {
			r.checkpoint(ctx, job.ID, *c)
			r.log.Logf(ctx, job.ID, LevelInfo, "Progress: %d/%d rows processed", c.Processed, c.Total)
		}
	}

	// Total was counted before iterating; settle on what was actually read.
	c.Total = c.Processed
	return r.finish(ctx, job, *c)
}

// importRow runs the importer, turning a panic into a row error.
func (r *Runner) importRow(ctx context.Context, imp Importer, row Row) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return imp(ctx, r.store, row)
}

// simulate reports synthetic progress for a job that has no file.
func (r *Runner) simulate(ctx context.Context, job Job, c *Counters) error {
	r.log.Log(ctx, job.ID, LevelInfo, "No file attached, running a simulated migration")
	c.Total = simulationTotal

	for i := 0; i <= simulationTotal; i += 10 {
		c.Processed = i
		c.Failed = i / 20
		c.Succeeded = i - c.Failed
		r.checkpoint(ctx, job.ID, *c)
		r.log.Logf(ctx, job.ID, LevelInfo, "Simulated progress: %d/%d", i, simulationTotal)

		if i < simulationTotal {
			if err := sleepWithContext(ctx, r.cfg.SimulationStep); err != nil {
				return fmt.Errorf("simulation interrupted: %w", err)
			}
		}
	}
	return r.finish(ctx, job, *c)
}

// finish applies the completion policy: a job completes when no row failed
// or at least one row succeeded.
func (r *Runner) finish(ctx context.Context, job Job, c Counters) error {
	outcome := Outcome{Status: StatusCompleted, Counters: c}
	if c.Failed > 0 && c.Succeeded == 0 {
		outcome.Status = StatusFailed
		outcome.ErrorMessage = fmt.Sprintf("all %d rows failed", c.Failed)
	}

	r.log.Logf(ctx, job.ID, LevelInfo, "Processed %d/%d rows: %d succeeded, %d failed",
		c.Processed, c.Total, c.Succeeded, c.Failed)
	if outcome.Status == StatusCompleted {
		r.log.Logf(ctx, job.ID, LevelSuccess, "Migration completed successfully. %d records imported.", c.Succeeded)
	} else {
		r.log.Logf(ctx, job.ID, LevelError, "Migration failed: %s", outcome.ErrorMessage)
	}

	if err := r.store.FinishJob(ctx, job.ID, outcome); err != nil {
		logging.ForJob(ctx, job.ID).Error("persist migration outcome failed", "status", outcome.Status, "error", err)
	}
	return nil
}

// abort fails the job with cause as its message. The failure is recorded
// even when cause is ctx's own cancellation.
func (r *Runner) abort(ctx context.Context, job Job, c Counters, cause error) {
	ctx = context.WithoutCancel(ctx)
	msg := cause.Error()
	switch {
	case errors.Is(cause, ErrFileNotFound),
		errors.Is(cause, ErrUnsupportedFormat),
		errors.Is(cause, ErrSpreadsheetUnavailable),
		errors.Is(cause, ErrMalformedShape),
		errors.Is(cause, ErrUnknownTarget):
		r.log.Log(ctx, job.ID, LevelError, msg)
	default:
		r.log.Logf(ctx, job.ID, LevelError, "Critical error: %s", msg)
	}

	if c.Processed > c.Total {
		c.Total = c.Processed
	}
	if err := r.store.FinishJob(ctx, job.ID, Outcome{Status: StatusFailed, Counters: c, ErrorMessage: msg}); err != nil {
		logging.ForJob(ctx, job.ID).Error("persist migration failure failed", "cause", msg, "error", err)
	}
}

// checkpoint persists counters. A failed checkpoint is logged and the job
// carries on; the final outcome is written separately.
func (r *Runner) checkpoint(ctx context.Context, jobID int64, c Counters) {
	if err := r.store.SaveProgress(ctx, jobID, c); err != nil {
		slog.Warn("save migration progress failed", "job_id", jobID, "processed", c.Processed, "error", err)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
