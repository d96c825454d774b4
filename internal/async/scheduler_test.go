package async

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf2jpk/internal/worker"
)

type countingSweeper struct {
	n     atomic.Int32
	block chan struct{}
}

func (c *countingSweeper) Sweep(ctx context.Context) (worker.Stats, error) {
	c.n.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	return worker.Stats{}, nil
}

func TestScheduler_InitialSweepAndKick(t *testing.T) {
	sw := &countingSweeper{}
	s := NewScheduler(sw, nil, WithInterval(time.Hour))
	s.Start(context.Background())
	defer s.Shutdown(context.Background())

	require.Eventually(t, func() bool { return sw.n.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Kick()
	require.Eventually(t, func() bool { return sw.n.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_KicksCoalesce(t *testing.T) {
	sw := &countingSweeper{block: make(chan struct{})}
	s := NewScheduler(sw, nil, WithInterval(time.Hour))
	s.Start(context.Background())

	require.Eventually(t, func() bool { return sw.n.Load() == 1 }, time.Second, 5*time.Millisecond)
	for i := 0; i < 5; i++ {
		s.Kick()
	}
	sw.block <- struct{}{}
	require.Eventually(t, func() bool { return sw.n.Load() == 2 }, time.Second, 5*time.Millisecond)
	sw.block <- struct{}{}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), sw.n.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Shutdown(ctx)
}

func TestScheduler_RunStopsWithContext(t *testing.T) {
	sw := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewScheduler(sw, nil, WithInterval(10*time.Millisecond)).Run(ctx) }()

	require.Eventually(t, func() bool { return sw.n.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestDetachedCommand(t *testing.T) {
	cmd := detachedCommand("/usr/local/bin/pdf2jpk", []string{"--jobs-dir", "/data/jobs"})
	assert.Equal(t, []string{"/usr/local/bin/pdf2jpk", "worker", "--jobs-dir", "/data/jobs"}, cmd.Args)
	assert.Nil(t, cmd.Stdout)
}
