package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentdeck/backend/internal/core/ports"
	"github.com/agentdeck/backend/internal/domain"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
)

// Dispatcher is the single logical worker. Concurrency is fixed at one: the
// agent binary holds exclusive state (working directory, session files) that
// rules out overlapping invocations, so overlap is disallowed rather than
// coordinated.
type Dispatcher struct {
	queue    *QueueService
	runner   ports.AgentRunner
	hub      *EventHub
	log      *logger.Logger
	idlePoll time.Duration

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type DispatcherConfig struct {
	Queue    *QueueService
	Runner   ports.AgentRunner
	Hub      *EventHub
	Logger   *logger.Logger
	IdlePoll time.Duration
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = 15 * time.Second
	}
	return &Dispatcher{
		queue:    cfg.Queue,
		runner:   cfg.Runner,
		hub:      cfg.Hub,
		log:      cfg.Logger,
		idlePoll: cfg.IdlePoll,
	}
}

// Start runs crash recovery and launches the worker loop. Starting an
// already-running dispatcher is a no-op.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return nil
	}

	if _, err := d.queue.RecoverOrphans(ctx); err != nil {
		d.running.Store(false)
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.loop(loopCtx)

	d.log.Info("dispatcher started")
	return nil
}

// Stop cancels the loop and waits for the in-flight task, if any, to wind
// down through the runner's abort path.
func (d *Dispatcher) Stop() {
	if !d.running.Load() {
		return
	}
	d.cancel()
	d.wg.Wait()
	d.running.Store(false)
	d.log.Info("dispatcher stopped")
}

func (d *Dispatcher) IsRunning() bool {
	return d.running.Load()
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()
	defer d.running.Store(false)

	for {
		if ctx.Err() != nil {
			return
		}

		task, err := d.queue.Claim(ctx)
		if err != nil {
			d.log.Errorw("dispatcher_claim_failed", "error", err)
		}
		if task != nil {
			d.execute(ctx, task)
			continue
		}

		// Idle: suspend until a new enqueue wakes us. The ticker is a
		// safety net, not the wake mechanism.
		select {
		case <-ctx.Done():
			return
		case <-d.queue.Wake():
		case <-time.After(d.idlePoll):
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, task *domain.Task) {
	d.log.Infow("task_started", "id", task.ID, "provider", task.Provider)

	var acc domain.StreamAccumulator
	onEvent := func(ev domain.StreamEvent) {
		acc.Add(ev)
		d.hub.Publish(TaskEvent{
			TaskID: task.ID,
			Phase:  acc.Phase(),
			Kind:   ev.Kind,
			Text:   ev.Text,
			Tool:   ev.Tool,
		})
	}

	result, runErr := d.runner.Run(ctx, task, onEvent)

	// Persist with a fresh context: the loop context may already be
	// cancelled during shutdown, and the outcome must not be lost.
	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr != nil {
		if err := d.queue.Fail(writeCtx, task.ID, runErr.Error()); err != nil {
			d.log.Errorw("task_fail_write_failed", "id", task.ID, "error", err)
		}
		d.hub.Publish(TaskEvent{TaskID: task.ID, Phase: acc.Phase(), Status: domain.TaskStatusFailed})
		return
	}

	result.Text = acc.Text()
	if err := d.queue.Complete(writeCtx, task.ID, result); err != nil {
		d.log.Errorw("task_complete_write_failed", "id", task.ID, "error", err)
		return
	}
	d.hub.Publish(TaskEvent{TaskID: task.ID, Phase: acc.Phase(), Status: domain.TaskStatusCompleted})
}
