package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/constants"
	"github.com/tabiguide-next/internal/logger"
	"github.com/tabiguide-next/internal/queue"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

const snapshotRunTimeout = time.Minute

// ErrWorkerDisabled neither the queue nor snapshots are enabled
var ErrWorkerDisabled = errors.New("worker disabled: queue and snapshot are both off")

// Service background worker: asynq consumer plus the snapshot scheduler
type Service struct {
	name      string
	server    *asynq.Server
	mux       *asynq.ServeMux
	consumer  *Consumer
	scheduler *cron.Cron
	snapshot  *SnapshotJob
}

// NewService creates the worker. Each half is built only when enabled in cfg.
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !cfg.Queue.Enabled && !cfg.Snapshot.Enabled {
		return nil, ErrWorkerDisabled
	}
	if consumer == nil || consumer.Container == nil {
		return nil, errors.New("consumer is nil")
	}
	s := &Service{
		name:     "worker",
		consumer: consumer,
	}

	if cfg.Queue.Enabled {
		opt, serverCfg := queue.ServerOptions(&cfg.Queue)
		s.server = asynq.NewServer(opt, serverCfg)
		s.mux = asynq.NewServeMux()
		consumer.Register(s.mux)
	}

	if cfg.Snapshot.Enabled {
		if consumer.ReferralService == nil {
			return nil, errors.New("snapshot enabled without a referral service")
		}
		s.snapshot = NewSnapshotJob(consumer.ReferralService, cfg.Snapshot)
		schedule := strings.TrimSpace(cfg.Snapshot.Schedule)
		if schedule == "" {
			schedule = constants.SnapshotScheduleDefault
		}
		s.scheduler = cron.New()
		if _, err := s.scheduler.AddFunc(schedule, s.runSnapshot); err != nil {
			return nil, fmt.Errorf("invalid snapshot schedule %q: %w", schedule, err)
		}
	}
	return s, nil
}

// Name service name
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start runs the scheduler and blocks on the asynq server, or on ctx when the queue is off
func (s *Service) Start(ctx context.Context) error {
	if s == nil || (s.server == nil && s.scheduler == nil) {
		return errors.New("worker not initialized")
	}
	if s.scheduler != nil {
		s.scheduler.Start()
		logger.Infow("worker_snapshot_scheduler_started", "dir", s.snapshot.dir, "keep", s.snapshot.keep)
	}
	if s.server != nil {
		return s.server.Run(s.mux)
	}
	<-ctx.Done()
	return nil
}

// Stop shuts the asynq server down and waits for a running snapshot up to ctx
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if s.server != nil {
		s.server.Shutdown()
	}
	if s.scheduler != nil {
		stopCtx := s.scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Service) runSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotRunTimeout)
	defer cancel()
	if _, err := s.snapshot.Run(ctx); err != nil {
		logger.Errorw("worker_snapshot_failed", "error", err)
	}
}
