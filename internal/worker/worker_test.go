package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/core"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/joseph-ayodele/pdf2jpk/internal/export"
	"github.com/joseph-ayodele/pdf2jpk/internal/ocr"
	"github.com/joseph-ayodele/pdf2jpk/internal/repository"
	"github.com/joseph-ayodele/pdf2jpk/internal/sources"
)

const invoiceText = "Wartość netto 100,00 PLN\nWartość VAT 23,00 PLN\nFaktura numer: FV/1/2024\nData wystawienia: 2024-03-01\nNIP 1111111111\nNIP 2222222222"

// acquirer returns text for stored inputs by their content marker.
type acquirer struct {
	calls int
	hook  func()
}

func (a *acquirer) Acquire(_ context.Context, path string) ocr.AcquireResult {
	a.calls++
	if a.hook != nil {
		a.hook()
	}
	b, _ := os.ReadFile(path)
	return ocr.AcquireResult{Text: string(b)}
}

var meta = entity.JobMeta{CompanyName: "Firma", CompanyNIP: "1111111111", OfficeCode: "1475", Purpose: 1}

type fixture struct {
	store repository.JobStore
	acq   *acquirer
	proc  *core.Processor
	src   string
}

func newFixture(t *testing.T, opts ...repository.JobStoreOption) *fixture {
	t.Helper()
	store, err := repository.NewJobStore(filepath.Join(t.TempDir(), "jobs"), nil, opts...)
	require.NoError(t, err)
	acq := &acquirer{}
	reg := sources.NewRegistry(nil, sources.NewPDFAdapter(acq, nil), sources.NewTabularAdapter(nil), sources.NewJPKAdapter(nil))
	return &fixture{store: store, acq: acq, proc: core.NewProcessor(reg, nil, nil), src: t.TempDir()}
}

func (f *fixture) submit(t *testing.T, name, content string) *entity.JobDescriptor {
	t.Helper()
	p := filepath.Join(f.src, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	job, err := f.store.Create(context.Background(), meta, []entity.SubmittedFile{{Path: p, OriginalName: name}})
	require.NoError(t, err)
	return job
}

func TestSweep_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.submit(t, "fv1.pdf", invoiceText)

	w := New(f.store, f.proc, nil, WithReporter(export.NewReporter(nil)))
	st, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Scanned: 1, Done: 1}, st)

	got, err := f.store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, got.Status)
	assert.Equal(t, 1, got.RecordCount)
	assert.Empty(t, got.Error)
	assert.FileExists(t, got.ReportFile)

	xml, err := os.ReadFile(got.ResultFile)
	require.NoError(t, err)
	assert.Contains(t, string(xml), "<tns:P_19>100.00</tns:P_19>")
	assert.Contains(t, string(xml), "<tns:P_20>23.00</tns:P_20>")
	assert.Contains(t, string(xml), "<tns:LiczbaWierszySprzedazy>1</tns:LiczbaWierszySprzedazy>")
}

func TestSweep_TwoSweepsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ok := f.submit(t, "fv1.pdf", invoiceText)
	bad := f.submit(t, "blank.pdf", "")

	w := New(f.store, f.proc, nil)
	st, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Done)
	assert.Equal(t, 1, st.Failed)
	calls := f.acq.calls

	first, err := f.store.Get(ctx, ok.ID)
	require.NoError(t, err)

	st, err = w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Scanned: 2}, st)
	assert.Equal(t, calls, f.acq.calls, "finished jobs must not be reprocessed")

	again, err := f.store.Get(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, again.UpdatedAt)

	failed, err := f.store.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusError, failed.Status)
	assert.Contains(t, failed.Error, core.CodeNoText)
}

func TestSweep_NoMatchWritesDiagnostic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.submit(t, "scan.pdf", "jakiś tekst bez faktury")

	_, err := New(f.store, f.proc, nil).Sweep(ctx)
	require.NoError(t, err)

	got, err := f.store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusError, got.Status)
	assert.Contains(t, got.Error, core.CodeNoMatch)
	assert.Empty(t, got.ResultFile)

	diag, err := os.ReadFile(got.DiagnosticFile)
	require.NoError(t, err)
	assert.Contains(t, string(diag), "jakiś tekst bez faktury")
}

func TestSweep_MissingDirMarksErrorAndContinues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	broken := f.submit(t, "a.pdf", invoiceText)
	fine := f.submit(t, "b.pdf", invoiceText)
	require.NoError(t, os.RemoveAll(f.store.InputDir(broken.ID)))

	st, err := New(f.store, f.proc, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 1, st.Done)

	got, err := f.store.Get(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusError, got.Status)
	assert.Equal(t, "job directory missing", got.Error)

	got, err = f.store.Get(ctx, fine.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, got.Status)
}

func TestSweep_SkipsJobLeasedElsewhere(t *testing.T) {
	ctx := context.Background()
	leases, err := repository.OpenLeaseStore(ctx, filepath.Join(t.TempDir(), "leases.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = leases.Close() })

	f := newFixture(t, repository.WithLeases(leases))
	job := f.submit(t, "fv1.pdf", invoiceText)

	claimed, err := leases.Claim(ctx, job.ID, "other", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	w := New(f.store, f.proc, nil, WithLeases(leases, time.Minute), WithOwner("me"))
	st, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Busy)
	assert.Zero(t, f.acq.calls)

	require.NoError(t, leases.Release(ctx, job.ID, "other"))
	st, err = w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Done)

	held, err := leases.Held(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, held, "lease is released after processing")
}

func TestSweep_RenewsLeaseDuringLongJob(t *testing.T) {
	ctx := context.Background()
	leases, err := repository.OpenLeaseStore(ctx, filepath.Join(t.TempDir(), "leases.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = leases.Close() })

	f := newFixture(t, repository.WithLeases(leases))
	job := f.submit(t, "fv1.pdf", invoiceText)

	var stolen bool
	f.acq.hook = func() {
		// several TTLs pass while the file is being read
		time.Sleep(600 * time.Millisecond)
		stolen, err = leases.Claim(ctx, job.ID, "other", time.Minute)
	}

	w := New(f.store, f.proc, nil, WithLeases(leases, 150*time.Millisecond), WithOwner("me"))
	st, sweepErr := w.Sweep(ctx)
	require.NoError(t, sweepErr)
	require.NoError(t, err)
	assert.False(t, stolen, "a renewed lease cannot be claimed by another worker")
	assert.Equal(t, 1, st.Done)
}

func TestSweep_LostLeaseDiscardsResult(t *testing.T) {
	ctx := context.Background()
	leases, err := repository.OpenLeaseStore(ctx, filepath.Join(t.TempDir(), "leases.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = leases.Close() })

	f := newFixture(t, repository.WithLeases(leases))
	job := f.submit(t, "fv1.pdf", invoiceText)

	f.acq.hook = func() {
		require.NoError(t, leases.Drop(ctx, job.ID))
		ok, err := leases.Claim(ctx, job.ID, "other", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		time.Sleep(300 * time.Millisecond)
	}

	w := New(f.store, f.proc, nil, WithLeases(leases, 150*time.Millisecond), WithOwner("me"))
	st, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Scanned: 1, Busy: 1}, st)

	got, err := f.store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusPending, got.Status)
	assert.Empty(t, got.ResultFile)

	held, err := leases.Held(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, held, "the new owner keeps its lease")
}

func TestSweep_DeletedDuringProcessingIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := f.submit(t, "fv1.pdf", invoiceText)

	f.acq.hook = func() { require.NoError(t, f.store.Delete(ctx, job.ID)) }

	st, err := New(f.store, f.proc, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Done)

	jobs, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	entries, err := os.ReadDir(filepath.Dir(f.store.InputDir(job.ID)))
	require.NoError(t, err)
	assert.Empty(t, entries, "no result is published for a deleted job")
}

func TestSweep_CancelledContextStops(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "fv1.pdf", invoiceText)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(f.store, f.proc, nil).Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.acq.calls)
}
