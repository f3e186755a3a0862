package service

import (
	"context"
	"time"

	"github.com/dujiao-next/checkout/internal/cache"
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/metrics"

	"go.uber.org/multierr"
)

const defaultCleanupLockTTL = time.Minute

// ReservationCleanupService 过期预占清理；可用库存查询已按过期时间过滤，清理仅为存储整理
type ReservationCleanupService struct {
	ledger  *ReservationLedger
	metrics *metrics.Collector
	lockTTL time.Duration
	newLock func(job string, ttl time.Duration) cache.Lock
}

// NewReservationCleanupService 创建清理服务
func NewReservationCleanupService(ledger *ReservationLedger, collector *metrics.Collector, lockTTL time.Duration) *ReservationCleanupService {
	if lockTTL <= 0 {
		lockTTL = defaultCleanupLockTTL
	}
	return &ReservationCleanupService{
		ledger:  ledger,
		metrics: collector,
		lockTTL: lockTTL,
		newLock: cache.NewJobLock,
	}
}

// CleanupResult 单次清理结果
type CleanupResult struct {
	Skipped bool
	Deleted int64
}

// Run 获取分布式锁后删除 expires_at ≤ now 的预占；其他实例持锁时跳过
func (s *ReservationCleanupService) Run(ctx context.Context) (result CleanupResult, err error) {
	job := constants.JobReservationCleanup
	started := time.Now()
	lock := s.newLock(job, s.lockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		s.metrics.IncJobFailure(job)
		return CleanupResult{}, err
	}
	if !acquired {
		logger.Debugw("reservation_cleanup_skip_locked")
		return CleanupResult{Skipped: true}, nil
	}
	defer func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			logger.Warnw("reservation_cleanup_lock_release_failed", "error", releaseErr)
			err = multierr.Append(err, releaseErr)
		}
		s.metrics.ObserveJobDuration(job, time.Since(started))
		if err != nil {
			s.metrics.IncJobFailure(job)
			return
		}
		s.metrics.IncJobSuccess(job)
	}()

	deleted, err := s.ledger.CleanupExpired()
	if err != nil {
		logger.Warnw("reservation_cleanup_failed", "error", err)
		return CleanupResult{}, err
	}
	s.metrics.AddReservationsReleased("expired", deleted)
	if deleted > 0 {
		logger.Infow("reservation_cleanup_done", "deleted", deleted)
	}
	return CleanupResult{Deleted: deleted}, nil
}
