package worker

import (
	"context"
	"errors"
	"strings"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultCleanupCron = "@every 5m"

// Service 异步队列服务（任务消费 + 周期调度）
type Service struct {
	name      string
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	consumer  *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, orderCfg *config.OrderConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	scheduler, err := buildScheduler(cfg, orderCfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		name:      "worker",
		server:    server,
		scheduler: scheduler,
		mux:       mux,
		consumer:  consumer,
	}, nil
}

func buildScheduler(cfg *config.QueueConfig, orderCfg *config.OrderConfig) (*asynq.Scheduler, error) {
	spec := defaultCleanupCron
	if orderCfg != nil && strings.TrimSpace(orderCfg.ReservationCleanupCron) != "" {
		spec = strings.TrimSpace(orderCfg.ReservationCleanupCron)
	}
	opt, schedulerOpts := queue.BuildSchedulerOpts(cfg)
	scheduler := asynq.NewScheduler(opt, schedulerOpts)
	task, err := queue.NewReservationCleanupTask(queue.ReservationCleanupPayload{Trigger: "schedule"})
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(spec, task, asynq.Queue(queue.DefaultQueue), asynq.MaxRetry(0))
	if err != nil {
		return nil, err
	}
	logger.Infow("worker_reservation_cleanup_scheduled", "cron", spec, "entry_id", entryID)
	return scheduler, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return err
		}
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
	s.server.Shutdown()
	return nil
}
