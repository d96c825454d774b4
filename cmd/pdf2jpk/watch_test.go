package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsideDir(t *testing.T) {
	root := t.TempDir()
	jobs := filepath.Join(root, "jobs")
	assert.True(t, insideDir(filepath.Join(jobs, "x", "file-1.pdf"), jobs))
	assert.False(t, insideDir(filepath.Join(root, "inbox", "a.pdf"), jobs))
	assert.False(t, insideDir(filepath.Join(root, "jobs2", "a.pdf"), jobs))
}

func TestForwardedFlags(t *testing.T) {
	cfgFile, jobsDir, logLevel = "/etc/pdf2jpk.yaml", "/data/jobs", ""
	t.Cleanup(func() { cfgFile, jobsDir, logLevel = "", "", "" })
	assert.Equal(t, []string{"--config", "/etc/pdf2jpk.yaml", "--jobs-dir", "/data/jobs"}, forwardedFlags())
}
