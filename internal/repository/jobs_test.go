package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, dir, name, content string) entity.SubmittedFile {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return entity.SubmittedFile{Path: p, OriginalName: name}
}

func newStore(t *testing.T, opts ...JobStoreOption) (JobStore, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "jobs")
	s, err := NewJobStore(root, nil, opts...)
	require.NoError(t, err)
	return s, root
}

func TestJobStore_CreateCopiesAndDedupes(t *testing.T) {
	ctx := context.Background()
	store, root := newStore(t)
	src := t.TempDir()

	files := []entity.SubmittedFile{
		writeInput(t, src, "a.pdf", "same"),
		writeInput(t, src, "b.PDF", "same"),
		writeInput(t, src, "ledger.csv", "other"),
	}
	job, err := store.Create(ctx, entity.JobMeta{CompanyNIP: "1111111111"}, files)
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9]{8}T[0-9]{6}Z_[0-9a-f]{12}$`, job.ID)
	assert.Equal(t, constants.JobStatusPending, job.Status)
	require.Len(t, job.Files, 2)
	assert.Equal(t, "file-1.pdf", job.Files[0].StoredName)
	assert.Equal(t, "file-2.csv", job.Files[1].StoredName)
	assert.Equal(t, "ledger.csv", job.Files[1].OriginalName)

	data, err := os.ReadFile(store.InputPath(job.ID, job.Files[1]))
	require.NoError(t, err)
	assert.Equal(t, "other", string(data))
	assert.FileExists(t, filepath.Join(root, job.ID+".json"))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "1111111111", got.Meta.CompanyNIP)
}

func TestJobStore_CreateWithoutDedupe(t *testing.T) {
	store, _ := newStore(t, WithDedupe(false))
	src := t.TempDir()
	job, err := store.Create(context.Background(), entity.JobMeta{}, []entity.SubmittedFile{
		writeInput(t, src, "a.pdf", "same"),
		writeInput(t, src, "b.pdf", "same"),
	})
	require.NoError(t, err)
	assert.Len(t, job.Files, 2)
}

func TestJobStore_CreateRejectsUnsupported(t *testing.T) {
	store, root := newStore(t)
	src := t.TempDir()
	_, err := store.Create(context.Background(), entity.JobMeta{}, []entity.SubmittedFile{
		writeInput(t, src, "photo.png", "x"),
	})
	require.ErrorIs(t, err, common.ErrInvalidInput)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJobStore_ListInCreationOrder(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store, root := newStore(t, WithClock(func() time.Time { return clock }))
	src := t.TempDir()

	first, err := store.Create(ctx, entity.JobMeta{}, []entity.SubmittedFile{writeInput(t, src, "a.pdf", "1")})
	require.NoError(t, err)
	clock = clock.Add(time.Second)
	second, err := store.Create(ctx, entity.JobMeta{}, []entity.SubmittedFile{writeInput(t, src, "b.pdf", "2")})
	require.NoError(t, err)

	// broken descriptors are skipped, not fatal
	require.NoError(t, os.WriteFile(filepath.Join(root, "20240301T100005Z_aaaaaaaaaaaa.json"), []byte(`{"id":1}`), 0o644))

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].ID)
	assert.Equal(t, second.ID, jobs[1].ID)
}

func TestJobStore_UpdateIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	job, err := store.Create(ctx, entity.JobMeta{}, []entity.SubmittedFile{writeInput(t, t.TempDir(), "a.pdf", "1")})
	require.NoError(t, err)

	job.Status = constants.JobStatusDone
	job.RecordCount = 3
	require.NoError(t, store.Update(ctx, job))

	job.Status = constants.JobStatusPending
	err = store.Update(ctx, job)
	require.ErrorIs(t, err, common.ErrTerminalStatus)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, got.Status)
	assert.Equal(t, 3, got.RecordCount)
}

func TestJobStore_GetRejectsBadIDs(t *testing.T) {
	store, _ := newStore(t)
	for _, id := range []string{"", "../etc/passwd", "20240301T100000Z_zzzzzzzzzzzz"} {
		_, err := store.Get(context.Background(), id)
		assert.ErrorIs(t, err, common.ErrNotFound, id)
	}
}

func TestJobStore_DeleteRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store, root := newStore(t)
	job, err := store.Create(ctx, entity.JobMeta{}, []entity.SubmittedFile{writeInput(t, t.TempDir(), "a.pdf", "1")})
	require.NoError(t, err)
	_, err = store.WriteArtifact(ctx, job.ID, ArtifactResult, []byte("<xml/>"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, job.ID))
	assert.NoFileExists(t, filepath.Join(root, job.ID+".json"))
	assert.NoFileExists(t, filepath.Join(root, job.ID+".xml"))
	assert.NoDirExists(t, store.InputDir(job.ID))

	require.ErrorIs(t, store.Delete(ctx, job.ID), common.ErrNotFound)
}

func TestJobStore_DeleteRefusesLeasedJob(t *testing.T) {
	ctx := context.Background()
	leases, err := OpenLeaseStore(ctx, filepath.Join(t.TempDir(), "leases.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = leases.Close() })

	store, _ := newStore(t, WithLeases(leases))
	job, err := store.Create(ctx, entity.JobMeta{}, []entity.SubmittedFile{writeInput(t, t.TempDir(), "a.pdf", "1")})
	require.NoError(t, err)

	ok, err := leases.Claim(ctx, job.ID, "worker-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.ErrorIs(t, store.Delete(ctx, job.ID), common.ErrJobBusy)

	require.NoError(t, leases.Release(ctx, job.ID, "worker-1"))
	require.NoError(t, store.Delete(ctx, job.ID))
}
