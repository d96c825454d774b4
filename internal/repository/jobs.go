package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/pdf2jpk/constants"
	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

// Artifact extensions written next to a job descriptor.
const (
	ArtifactResult     = "xml"
	ArtifactReport     = "xlsx"
	ArtifactDiagnostic = "txt"
)

const idTimeLayout = "20060102T150405Z"

var reJobID = regexp.MustCompile(`^[0-9]{8}T[0-9]{6}Z_[0-9a-f]{12}$`)

// JobStore persists job descriptors, their input files and produced artifacts.
type JobStore interface {
	Create(ctx context.Context, meta entity.JobMeta, files []entity.SubmittedFile) (*entity.JobDescriptor, error)
	Get(ctx context.Context, id string) (*entity.JobDescriptor, error)
	List(ctx context.Context) ([]*entity.JobDescriptor, error)
	// Update rewrites the descriptor atomically. Moving a job out of a
	// terminal status fails with common.ErrTerminalStatus.
	Update(ctx context.Context, job *entity.JobDescriptor) error
	Delete(ctx context.Context, id string) error

	InputDir(id string) string
	InputPath(id string, f entity.JobFile) string
	WriteArtifact(ctx context.Context, id, ext string, data []byte) (string, error)
	RemoveArtifacts(id string)
}

// JobStoreOption configures a file job store.
type JobStoreOption func(*fileJobStore)

// WithDedupe toggles skipping of byte-identical inputs within one submission.
func WithDedupe(on bool) JobStoreOption {
	return func(s *fileJobStore) { s.dedupe = on }
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) JobStoreOption {
	return func(s *fileJobStore) { s.now = now }
}

// WithLeases makes Delete refuse jobs that are currently leased.
func WithLeases(l LeaseStore) JobStoreOption {
	return func(s *fileJobStore) { s.leases = l }
}

type fileJobStore struct {
	root   string
	dedupe bool
	now    func() time.Time
	leases LeaseStore
	log    *slog.Logger
}

// NewJobStore returns a JobStore rooted at dir, creating the directory if needed.
func NewJobStore(dir string, log *slog.Logger, opts ...JobStoreOption) (JobStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create jobs dir: %w", err)
	}
	s := &fileJobStore{root: dir, dedupe: true, now: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *fileJobStore) descriptorPath(id string) string {
	return filepath.Join(s.root, id+".json")
}

func (s *fileJobStore) artifactPath(id, ext string) string {
	return filepath.Join(s.root, id+"."+ext)
}

func (s *fileJobStore) InputDir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *fileJobStore) InputPath(id string, f entity.JobFile) string {
	return filepath.Join(s.root, id, f.StoredName)
}

func (s *fileJobStore) newID() string {
	hexID := strings.ReplaceAll(uuid.NewString(), "-", "")
	return s.now().UTC().Format(idTimeLayout) + "_" + hexID[:12]
}

func (s *fileJobStore) Create(ctx context.Context, meta entity.JobMeta, files []entity.SubmittedFile) (*entity.JobDescriptor, error) {
	if len(files) == 0 {
		return nil, common.NewAppError("NO_FILES", "submission has no files", common.ErrInvalidInput)
	}
	id := s.newID()
	dir := s.InputDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}

	seen := map[string]bool{}
	stored := []entity.JobFile{}
	for _, in := range files {
		if err := ctx.Err(); err != nil {
			_ = os.RemoveAll(dir)
			return nil, err
		}
		name := in.OriginalName
		if name == "" {
			name = filepath.Base(in.Path)
		}
		ext := constants.NormalizeExt(filepath.Ext(name))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			_ = os.RemoveAll(dir)
			return nil, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("unsupported file type: %s", name), common.ErrInvalidInput)
		}
		jf := entity.JobFile{
			OriginalName: name,
			StoredName:   fmt.Sprintf("file-%d.%s", len(stored)+1, ext),
			Extension:    ext,
		}
		dst := filepath.Join(dir, jf.StoredName)
		sum, size, err := copyHashed(in.Path, dst)
		if err != nil {
			_ = os.RemoveAll(dir)
			s.log.Error("job input copy failed", "job_id", id, "file", name, "err", err)
			return nil, fmt.Errorf("store %s: %w", name, err)
		}
		if s.dedupe && seen[sum] {
			_ = os.Remove(dst)
			s.log.Info("duplicate input skipped", "job_id", id, "file", name, "sha256", sum)
			continue
		}
		seen[sum] = true
		jf.SHA256 = sum
		jf.Size = size
		stored = append(stored, jf)
	}

	now := s.now().UTC()
	job := &entity.JobDescriptor{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    constants.JobStatusPending,
		Meta:      meta,
		Files:     stored,
	}
	// The descriptor is written last so a sweep never sees a job without its inputs.
	if err := s.writeDescriptor(job); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	s.log.Info("job created", "job_id", id, "files", len(stored))
	return job, nil
}

func (s *fileJobStore) Get(ctx context.Context, id string) (*entity.JobDescriptor, error) {
	if !reJobID.MatchString(id) {
		return nil, common.ErrNotFound
	}
	return s.load(s.descriptorPath(id))
}

func (s *fileJobStore) load(path string) (*entity.JobDescriptor, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	if err := validateDescriptor(data); err != nil {
		return nil, common.NewAppError("INVALID_DESCRIPTOR", filepath.Base(path), err)
	}
	var job entity.JobDescriptor
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	return &job, nil
}

// List returns every readable descriptor in file name order, which is creation order.
func (s *fileJobStore) List(ctx context.Context) ([]*entity.JobDescriptor, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var jobs []*entity.JobDescriptor
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if !reJobID.MatchString(strings.TrimSuffix(e.Name(), ".json")) {
			continue
		}
		job, err := s.load(filepath.Join(s.root, e.Name()))
		if err != nil {
			// deleted between ReadDir and load, or unreadable
			if !errors.Is(err, common.ErrNotFound) {
				s.log.Warn("skipping unreadable descriptor", "file", e.Name(), "err", err)
			}
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *fileJobStore) Update(ctx context.Context, job *entity.JobDescriptor) error {
	if job == nil || !reJobID.MatchString(job.ID) {
		return common.ErrNotFound
	}
	if !job.Status.Valid() {
		return common.NewAppError("INVALID_STATUS", string(job.Status), common.ErrInvalidInput)
	}
	current, err := s.load(s.descriptorPath(job.ID))
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() && current.Status != job.Status {
		return common.NewAppError("TERMINAL_STATUS",
			fmt.Sprintf("job %s is %s", job.ID, current.Status), common.ErrTerminalStatus)
	}
	job.UpdatedAt = s.now().UTC()
	if err := s.writeDescriptor(job); err != nil {
		return err
	}
	s.log.Info("job updated", "job_id", job.ID, "status", job.Status)
	return nil
}

func (s *fileJobStore) Delete(ctx context.Context, id string) error {
	if !reJobID.MatchString(id) {
		return common.ErrNotFound
	}
	if _, err := os.Stat(s.descriptorPath(id)); errors.Is(err, fs.ErrNotExist) {
		return common.ErrNotFound
	}
	if s.leases != nil {
		busy, err := s.leases.Held(ctx, id)
		if err != nil {
			return err
		}
		if busy {
			return common.NewAppError("JOB_BUSY", id, common.ErrJobBusy)
		}
	}
	if err := os.Remove(s.descriptorPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove descriptor: %w", err)
	}
	if err := os.RemoveAll(s.InputDir(id)); err != nil {
		s.log.Warn("job dir removal failed", "job_id", id, "err", err)
	}
	s.RemoveArtifacts(id)
	if s.leases != nil {
		if err := s.leases.Drop(ctx, id); err != nil {
			s.log.Warn("lease drop failed", "job_id", id, "err", err)
		}
	}
	s.log.Info("job deleted", "job_id", id)
	return nil
}

// WriteArtifact atomically writes <root>/<id>.<ext> and returns its path.
func (s *fileJobStore) WriteArtifact(ctx context.Context, id, ext string, data []byte) (string, error) {
	if !reJobID.MatchString(id) {
		return "", common.ErrNotFound
	}
	path := s.artifactPath(id, ext)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *fileJobStore) RemoveArtifacts(id string) {
	for _, ext := range []string{ArtifactResult, ArtifactReport, ArtifactDiagnostic} {
		_ = os.Remove(s.artifactPath(id, ext))
	}
}

func (s *fileJobStore) writeDescriptor(job *entity.JobDescriptor) error {
	if job.Files == nil {
		job.Files = []entity.JobFile{}
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	return writeFileAtomic(s.descriptorPath(job.ID), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func copyHashed(src, dst string) (string, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", 0, err
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
