package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

func TestNew_WiresStoreAndLeases(t *testing.T) {
	dir := t.TempDir()
	cfg := &common.Config{}
	cfg.Store.JobsDir = filepath.Join(dir, "jobs")
	cfg.Store.LeaseDB = filepath.Join(dir, "state", "leases.db")
	cfg.Store.DedupeSHA = true

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	src := filepath.Join(dir, "ledger.csv")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	job, err := a.Store.Create(context.Background(), entity.JobMeta{CompanyNIP: "1111111111"}, []entity.SubmittedFile{{Path: src}})
	require.NoError(t, err)

	st, err := a.Worker.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Failed, "a ledger without the required columns yields no records")

	got, err := a.Store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Error, "NO_MATCH")
	assert.FileExists(t, cfg.Store.LeaseDB)
}

func TestOCRConfig(t *testing.T) {
	c := OCRConfig(common.OCRConfig{Languages: "pol+eng", DPI: 200, Rasterizer: "fitz", Backends: []string{"pdfcpu"}})
	assert.Equal(t, "pol+eng", c.TesseractLang)
	assert.Equal(t, 200, c.DPI)
	assert.Equal(t, "fitz", c.Rasterizer)
	assert.Equal(t, []string{"pdfcpu"}, c.Backends)
}
