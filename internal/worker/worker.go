package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/core"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/export"
	"github.com/joseph-ayodele/pdf2jpk/internal/repository"
)

// Stats summarizes one sweep.
type Stats struct {
	Scanned int
	Done    int
	Failed  int
	Busy    int
}

// Worker runs sweeps over a job store.
type Worker struct {
	store    repository.JobStore
	proc     *core.Processor
	leases   repository.LeaseStore
	leaseTTL time.Duration
	reporter *export.Reporter
	owner    string
	logger   *slog.Logger
}

type Option func(*Worker)

// WithLeases guards each job with a lease held for ttl while it is processed.
func WithLeases(l repository.LeaseStore, ttl time.Duration) Option {
	return func(w *Worker) {
		w.leases = l
		if ttl > 0 {
			w.leaseTTL = ttl
		}
	}
}

// WithReporter enables the XLSX review report next to each result.
func WithReporter(r *export.Reporter) Option {
	return func(w *Worker) { w.reporter = r }
}

// WithOwner sets the lease owner name; the default is unique per Worker.
func WithOwner(owner string) Option {
	return func(w *Worker) {
		if owner != "" {
			w.owner = owner
		}
	}
}

func New(store repository.JobStore, proc *core.Processor, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	host, _ := os.Hostname()
	w := &Worker{
		store:    store,
		proc:     proc,
		leaseTTL: 10 * time.Minute,
		owner:    fmt.Sprintf("%s:%d:%s", host, os.Getpid(), uuid.NewString()[:8]),
		logger:   logger,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Sweep processes every pending job once, in store order. A failing job does
// not abort the sweep; only context cancellation does.
func (w *Worker) Sweep(ctx context.Context) (Stats, error) {
	start := time.Now()
	var st Stats

	jobs, err := w.store.List(ctx)
	if err != nil {
		return st, fmt.Errorf("list jobs: %w", err)
	}
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Scanned++
		if job.Status != constants.JobStatusPending {
			continue
		}
		status, err := w.runJob(ctx, job.ID)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return st, err
		case err != nil:
			w.logger.Error("job processing failed", "job_id", job.ID, "error", err)
		}
		switch status {
		case constants.JobStatusDone:
			st.Done++
		case constants.JobStatusError:
			st.Failed++
		case statusBusy:
			st.Busy++
		}
	}

	w.logger.Info("sweep finished",
		"scanned", st.Scanned,
		"done", st.Done,
		"failed", st.Failed,
		"busy", st.Busy,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return st, nil
}

const statusBusy constants.JobStatus = "busy"

// runJob claims, processes and publishes one job. The returned status is the
// one written, statusBusy when another worker holds the job, or "" when the
// job vanished or was no longer pending.
func (w *Worker) runJob(ctx context.Context, id string) (constants.JobStatus, error) {
	if w.leases != nil {
		ok, err := w.leases.Claim(ctx, id, w.owner, w.leaseTTL)
		if err != nil {
			return "", err
		}
		if !ok {
			w.logger.Info("job leased elsewhere, skipping", "job_id", id)
			return statusBusy, nil
		}
		defer func() {
			if err := w.leases.Release(context.WithoutCancel(ctx), id, w.owner); err != nil {
				w.logger.Warn("lease release failed", "job_id", id, "error", err)
			}
		}()
	}

	// Re-read under the lease: another sweep may have finished it meanwhile.
	job, err := w.store.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if job.Status != constants.JobStatusPending {
		return "", nil
	}

	w.logger.Info("job started", "job_id", id, "files", len(job.Files))
	if _, err := os.Stat(w.store.InputDir(id)); errors.Is(err, fs.ErrNotExist) {
		job.Status = constants.JobStatusError
		job.Error = "job directory missing"
		return w.publish(ctx, job)
	}

	files := make([]core.InputFile, 0, len(job.Files))
	for _, f := range job.Files {
		files = append(files, core.InputFile{
			Path:         w.store.InputPath(id, f),
			OriginalName: f.OriginalName,
			Ext:          f.Extension,
		})
	}

	procCtx, stopRenew, lost := w.keepLease(ctx, id)
	out, procErr := w.proc.Process(procCtx, files, job.Meta)
	stopRenew()
	if err := ctx.Err(); err != nil {
		// leave the job pending for the next sweep
		return "", err
	}
	if lost() {
		w.logger.Warn("lease lost during processing, result discarded", "job_id", id)
		return statusBusy, nil
	}
	job.RecordCount = len(out.Records)

	if procErr != nil {
		job.Status = constants.JobStatusError
		job.Error = errorMessage(procErr)
		if strings.TrimSpace(out.RawText) != "" {
			path, err := w.store.WriteArtifact(ctx, id, repository.ArtifactDiagnostic, []byte(out.RawText))
			if err != nil {
				w.logger.Warn("diagnostic write failed", "job_id", id, "error", err)
			} else {
				job.DiagnosticFile = path
			}
		}
		return w.publish(ctx, job)
	}

	path, err := w.store.WriteArtifact(ctx, id, repository.ArtifactResult, out.XML)
	if err != nil {
		job.Status = constants.JobStatusError
		job.Error = fmt.Sprintf("write result: %v", err)
		return w.publish(ctx, job)
	}
	job.ResultFile = path
	job.Status = constants.JobStatusDone

	if w.reporter != nil {
		if data, err := w.reporter.RecordsXLSX(id, out.Records); err != nil {
			w.logger.Warn("report build failed", "job_id", id, "error", err)
		} else if path, err := w.store.WriteArtifact(ctx, id, repository.ArtifactReport, data); err != nil {
			w.logger.Warn("report write failed", "job_id", id, "error", err)
		} else {
			job.ReportFile = path
		}
	}
	return w.publish(ctx, job)
}

// keepLease renews the job lease every third of its TTL while the job is
// processed. If another owner takes the job over, the returned context is
// cancelled and lost reports true.
func (w *Worker) keepLease(ctx context.Context, id string) (context.Context, func(), func() bool) {
	if w.leases == nil {
		return ctx, func() {}, func() bool { return false }
	}
	procCtx, cancel := context.WithCancel(ctx)
	var lost atomic.Bool
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		t := time.NewTicker(max(w.leaseTTL/3, 10*time.Millisecond))
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-procCtx.Done():
				return
			case <-t.C:
				ok, err := w.leases.Claim(procCtx, id, w.owner, w.leaseTTL)
				switch {
				case err != nil:
					w.logger.Warn("lease renewal failed", "job_id", id, "error", err)
				case !ok:
					lost.Store(true)
					cancel()
					return
				default:
					w.logger.Debug("lease renewed", "job_id", id)
				}
			}
		}
	}()

	stop := func() {
		close(done)
		<-stopped
		cancel()
	}
	return procCtx, stop, lost.Load
}

// publish persists the final descriptor. A job deleted while it was being
// processed has its artifacts removed instead.
func (w *Worker) publish(ctx context.Context, job *entity.JobDescriptor) (constants.JobStatus, error) {
	err := w.store.Update(ctx, job)
	if errors.Is(err, common.ErrNotFound) {
		w.store.RemoveArtifacts(job.ID)
		w.logger.Warn("job deleted during processing, result discarded", "job_id", job.ID)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if job.Status == constants.JobStatusError {
		w.logger.Warn("job finished (error)", "job_id", job.ID, "error", job.Error)
	} else {
		w.logger.Info("job finished (done)", "job_id", job.ID, "records", job.RecordCount)
	}
	return job.Status, nil
}

func errorMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Code + ": " + appErr.Message
	}
	return err.Error()
}
