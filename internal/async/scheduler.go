package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/pdf2jpk/internal/worker"
)

// Sweeper is the unit of work the scheduler repeats.
type Sweeper interface {
	Sweep(ctx context.Context) (worker.Stats, error)
}

// Scheduler runs sweeps one at a time: on start, every interval, and after
// each Kick. Kicks arriving during a sweep collapse into one follow-up sweep.
type Scheduler struct {
	sweeper  Sweeper
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration

	kick   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	cancel context.CancelFunc
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSweepTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewScheduler(sweeper Sweeper, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		sweeper:  sweeper,
		logger:   logger,
		interval: 30 * time.Second,
		timeout:  30 * time.Minute,
		kick:     make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Kick requests a sweep as soon as the current one (if any) finishes.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
		s.logger.Debug("sweep requested")
	default:
	}
}

// Run blocks, sweeping until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval.String())
	s.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		case <-s.kick:
		}
		s.sweepOnce(ctx)
	}
}

// Start runs the scheduler in the background until Shutdown.
func (s *Scheduler) Start(ctx context.Context) {
	s.once.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = s.Run(ctx)
		}()
	})
}

// Shutdown stops a started scheduler and waits for the running sweep, or for ctx.
func (s *Scheduler) Shutdown(ctx context.Context) {
	if s.cancel == nil {
		return
	}
	s.cancel()

	done := make(chan struct{})
	go func() { defer close(done); s.wg.Wait() }()

	select {
	case <-ctx.Done():
		s.logger.Warn("shutdown interrupted by context")
	case <-done:
		s.logger.Info("scheduler drained, shutdown complete")
	}
}

func (s *Scheduler) sweepOnce(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Error("sweep failed", "error", err)
	}
}
