package services

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/agentdeck/backend/internal/core/ports"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
)

// PollerService runs the background receive loop for chat platforms that use
// long-polling instead of webhooks. Start and Stop are idempotent; the loop
// survives source errors with backoff and never crashes the process.
type PollerService struct {
	source   ports.UpdateSource
	queue    ports.TaskQueueService
	log      *logger.Logger
	interval time.Duration

	mu        sync.Mutex
	cancel    context.CancelFunc
	startedAt time.Time
	wg        sync.WaitGroup
}

func NewPollerService(source ports.UpdateSource, queue ports.TaskQueueService, interval time.Duration, log *logger.Logger) *PollerService {
	return &PollerService{
		source:   source,
		queue:    queue,
		log:      log,
		interval: interval,
	}
}

func (s *PollerService) Start() error {
	if s.source == nil {
		return ErrPollerNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.startedAt = time.Now()

	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Info("poller started")
	return nil
}

func (s *PollerService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("poller stopped")
}

func (s *PollerService) Status() ports.PollerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return ports.PollerStatus{}
	}
	return ports.PollerStatus{
		Active: true,
		Uptime: time.Since(s.startedAt),
	}
}

func (s *PollerService) loop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("poller_panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	backoff := s.interval
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := s.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warnw("poller_fetch_failed", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < time.Minute {
				backoff *= 2
			}
			continue
		}
		backoff = s.interval

		for _, u := range updates {
			if _, err := s.queue.Enqueue(ctx, u.Text, u.ChatID, u.Platform, "", ""); err != nil {
				s.log.Warnw("poller_enqueue_failed", "update_id", u.UpdateID, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}
