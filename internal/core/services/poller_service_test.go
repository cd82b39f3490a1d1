package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/backend/internal/core/ports"
	"github.com/agentdeck/backend/internal/domain"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
)

type fakeSource struct {
	mu      sync.Mutex
	batches [][]ports.ChatUpdate
	err     error
	calls   int
}

func (f *fakeSource) Poll(ctx context.Context) ([]ports.ChatUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingQueue struct {
	mu      sync.Mutex
	prompts []string
}

func (q *recordingQueue) Enqueue(ctx context.Context, prompt, chatID, platform, provider, workDir string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prompts = append(q.prompts, prompt)
	return &domain.Task{ID: uint64(len(q.prompts)), Prompt: prompt}, nil
}

func (q *recordingQueue) Get(ctx context.Context, id uint64) (*domain.Task, error) {
	return nil, ErrTaskNotFound
}

func (q *recordingQueue) List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	return nil, nil
}

func (q *recordingQueue) Cancel(ctx context.Context, id uint64) error { return nil }

func (q *recordingQueue) Stats(ctx context.Context) (*domain.TaskStats, error) {
	return &domain.TaskStats{}, nil
}

func (q *recordingQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.prompts...)
}

func TestPollerEnqueuesEachUpdate(t *testing.T) {
	source := &fakeSource{batches: [][]ports.ChatUpdate{
		{
			{UpdateID: "1", ChatID: "c1", Platform: "telegram", Text: "first"},
			{UpdateID: "2", ChatID: "c1", Platform: "telegram", Text: "second"},
		},
	}}
	queue := &recordingQueue{}

	svc := NewPollerService(source, queue, 5*time.Millisecond, logger.NewNop())
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	require.Eventually(t, func() bool {
		return len(queue.enqueued()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, queue.enqueued())
}

func TestPollerStartWithoutSource(t *testing.T) {
	svc := NewPollerService(nil, &recordingQueue{}, time.Millisecond, logger.NewNop())

	err := svc.Start()
	assert.ErrorIs(t, err, ErrPollerNotConfigured)
	assert.False(t, svc.Status().Active)
}

func TestPollerStartStopIdempotent(t *testing.T) {
	svc := NewPollerService(&fakeSource{}, &recordingQueue{}, time.Millisecond, logger.NewNop())

	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start())
	assert.True(t, svc.Status().Active)

	svc.Stop()
	svc.Stop()
	assert.False(t, svc.Status().Active)
}

func TestPollerStatusUptime(t *testing.T) {
	svc := NewPollerService(&fakeSource{}, &recordingQueue{}, time.Millisecond, logger.NewNop())

	assert.Equal(t, ports.PollerStatus{}, svc.Status())

	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	time.Sleep(20 * time.Millisecond)
	status := svc.Status()
	assert.True(t, status.Active)
	assert.Greater(t, status.Uptime, time.Duration(0))
}

func TestPollerSurvivesSourceErrors(t *testing.T) {
	source := &fakeSource{err: errors.New("gateway down")}
	svc := NewPollerService(source, &recordingQueue{}, time.Millisecond, logger.NewNop())

	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	// Keeps retrying with backoff instead of dying on the first error.
	require.Eventually(t, func() bool {
		return source.callCount() >= 2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, svc.Status().Active)
}
