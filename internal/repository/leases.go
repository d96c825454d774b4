package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// LeaseStore serializes processing of a job across concurrent sweeps and processes.
type LeaseStore interface {
	// Claim takes the lease for jobID, or renews it when owner already holds it.
	// It returns false when another owner holds an unexpired lease.
	Claim(ctx context.Context, jobID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, jobID, owner string) error
	Held(ctx context.Context, jobID string) (bool, error)
	Drop(ctx context.Context, jobID string) error
	Close() error
}

const leaseSchema = `CREATE TABLE IF NOT EXISTS job_leases (
	job_id     TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
)`

var leasePragmas = []string{
	"PRAGMA busy_timeout = 10000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
}

type sqliteLeases struct {
	db  *sql.DB
	now func() time.Time
	log *slog.Logger
}

// OpenLeaseStore opens (creating if needed) the SQLite lease database at path.
func OpenLeaseStore(ctx context.Context, path string, log *slog.Logger) (LeaseStore, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open lease db: %w", err)
	}
	for _, p := range leasePragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("lease db %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, leaseSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create job_leases: %w", err)
	}
	log.Debug("lease store opened", "path", path)
	return &sqliteLeases{db: db, now: time.Now, log: log}, nil
}

func (s *sqliteLeases) Claim(ctx context.Context, jobID, owner string, ttl time.Duration) (bool, error) {
	now := s.now().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_leases (job_id, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE job_leases.expires_at <= ? OR job_leases.owner = excluded.owner`,
		jobID, owner, now+ttl.Milliseconds(), now)
	if err != nil {
		s.log.Error("lease claim failed", "job_id", jobID, "owner", owner, "err", err)
		return false, fmt.Errorf("claim lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim lease: %w", err)
	}
	return n > 0, nil
}

func (s *sqliteLeases) Release(ctx context.Context, jobID, owner string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM job_leases WHERE job_id = ? AND owner = ?`, jobID, owner); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

func (s *sqliteLeases) Held(ctx context.Context, jobID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM job_leases WHERE job_id = ? AND expires_at > ?`,
		jobID, s.now().UnixMilli()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check lease: %w", err)
	}
	return n > 0, nil
}

// Drop removes any lease row for jobID regardless of owner.
func (s *sqliteLeases) Drop(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM job_leases WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("drop lease: %w", err)
	}
	return nil
}

func (s *sqliteLeases) Close() error {
	return s.db.Close()
}
