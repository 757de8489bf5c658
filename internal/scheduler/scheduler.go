package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/SHKSHBZ/AlgoTrader/internal/interfaces"
	"github.com/SHKSHBZ/AlgoTrader/internal/logger"
	"github.com/SHKSHBZ/AlgoTrader/internal/tradelog"
)

// Scheduler drives evaluation cycles on a cron spec during market hours.
type Scheduler struct {
	cron    *cron.Cron
	engine  interfaces.Engine
	symbols []string
	ctx     context.Context

	mu      sync.Mutex
	running bool
}

func New(ctx context.Context, eng interfaces.Engine, symbols []string) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		engine:  eng,
		symbols: symbols,
		ctx:     ctx,
	}
}

// Register installs the cycle task plus nightly log compression.
func (s *Scheduler) Register(cycleCron string) error {
	if _, err := s.cron.AddFunc(cycleCron, s.runCycle); err != nil {
		return fmt.Errorf("register cycle task: %w", err)
	}
	// Nightly at 01:00: gzip trade logs older than 7 days.
	if _, err := s.cron.AddFunc("0 0 1 * * *", func() {
		if err := tradelog.CompressOlder(7); err != nil {
			logger.Warn(s.ctx, "Log compression failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register log compression: %w", err)
	}
	return nil
}

// runCycle skips the tick if the previous cycle is still in flight.
func (s *Scheduler) runCycle() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warn(s.ctx, "Previous cycle still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.ctx.Err() != nil {
		return
	}
	if _, err := s.engine.RunCycle(s.ctx, s.symbols); err != nil {
		logger.ErrorWithErr(s.ctx, "Evaluation cycle failed", err)
	}
}

// RunOnce triggers a single cycle immediately, outside the cron schedule.
func (s *Scheduler) RunOnce() {
	s.runCycle()
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(s.ctx, "Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info(s.ctx, "Scheduler stopped")
}
