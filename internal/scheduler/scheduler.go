// Package scheduler runs background evaluation jobs
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/loan-service/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// BatchEvaluator scores every pending applicant
type BatchEvaluator interface {
	EvaluatePending(ctx context.Context) (service.BatchResult, error)
}

// Scheduler manages cron tasks
type Scheduler struct {
	cron    *cron.Cron
	batch   BatchEvaluator
	log     *logrus.Logger
	ctx     context.Context
	timeout time.Duration
}

// NewScheduler creates a scheduler whose jobs run under ctx. Overlapping
// runs of the same job are skipped.
func NewScheduler(ctx context.Context, batch BatchEvaluator, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		batch:   batch,
		log:     log,
		ctx:     ctx,
		timeout: 30 * time.Minute,
	}
}

// Register schedules the pending-applicant evaluation on spec. An empty
// spec disables the job.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		s.log.Info("Pending evaluation job disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("failed to register evaluation job: %w", err)
	}
	s.log.Infof("Pending evaluation job scheduled: %s", spec)
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// RunNow evaluates pending applicants immediately
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.batch.EvaluatePending(ctx)
	fields := logrus.Fields{
		"evaluated":   result.Evaluated,
		"failed":      result.Failed,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		s.log.WithError(err).WithFields(fields).Error("Pending evaluation run failed")
		return
	}
	s.log.WithFields(fields).Info("Pending evaluation run finished")
}
