package scheduler

import (
	"context"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"marketplace-sync-service/internal/config"
	"marketplace-sync-service/internal/logger"
	"marketplace-sync-service/internal/marketplace"
	"marketplace-sync-service/internal/sync"
)

// Scheduler triggers configured per-tenant sync jobs on cron expressions.
// A job whose (tenant, kind) pair is still running is skipped, not queued.
type Scheduler struct {
	cfg     config.SchedulerConfig
	manager *sync.Manager
	cron    *cron.Cron
}

func NewScheduler(cfg config.SchedulerConfig, manager *sync.Manager) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		manager: manager,
		cron:    cron.New(),
	}
}

func (s *Scheduler) Start() {
	if !s.cfg.Enabled {
		logger.Log.Info("Scheduler is disabled")
		return
	}

	for _, job := range s.cfg.Jobs {
		job := job
		_, err := s.cron.AddFunc(job.Schedule, func() {
			s.triggerJob(job)
		})
		if err != nil {
			logger.Log.Error("Failed to schedule job",
				zap.String("tenant", job.TenantID),
				zap.String("schedule", job.Schedule),
				zap.Error(err),
			)
			continue
		}
		logger.Log.Info("Scheduled sync job",
			zap.String("tenant", job.TenantID),
			zap.String("kinds", strings.Join(job.Kinds, ",")),
			zap.String("schedule", job.Schedule),
		)
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	logger.Log.Info("Stopped scheduler")
}

func (s *Scheduler) triggerJob(job config.JobConfig) {
	for _, raw := range job.Kinds {
		kind, err := marketplace.ParseKind(raw)
		if err != nil {
			logger.Log.Error("Skipping job with unknown kind",
				zap.String("tenant", job.TenantID),
				zap.String("kind", raw),
			)
			continue
		}

		logger.Log.Info("Triggering scheduled sync",
			zap.String("tenant", job.TenantID),
			zap.String("kind", raw),
		)

		_, err = s.manager.RunSync(context.Background(), sync.RunParams{
			TenantID: job.TenantID,
			APIKey:   job.APIKey,
			Kind:     kind,
		})
		if err != nil {
			// Already-running pairs land here; next tick picks it up again.
			logger.Log.Info("Scheduled sync skipped",
				zap.String("tenant", job.TenantID),
				zap.String("kind", raw),
				zap.Error(err),
			)
		}
	}
}
