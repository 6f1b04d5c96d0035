// Package scheduler triggers polling cycles on a cron schedule. One
// invocation runs to completion before the next is allowed to start; the
// orchestrator skips a firing if the previous cycle is still running.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yapay-ai/spendwatch/pkg/poller"
)

// Scheduler drives the orchestrator from a cron expression.
type Scheduler struct {
	orch     *poller.Orchestrator
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a scheduler. An empty schedule disables periodic polling.
func New(orch *poller.Orchestrator, schedule string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		orch:     orch,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start begins firing cycles on the configured schedule and returns
// immediately. It stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("poll schedule not configured, periodic polling disabled")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule poll cycle: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("poll scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if err := s.orch.RunCycle(ctx, time.Now().UTC()); err != nil {
		s.logger.Error("poll cycle failed", "error", err)
	}
}

// Stop halts the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		s.running = false
		s.logger.Info("poll scheduler stopped")
	}
}

// IsRunning reports whether the scheduler has been started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
