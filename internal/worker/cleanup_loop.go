package worker

import (
	"context"
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/service"
)

const defaultCleanupInterval = 5 * time.Minute

// CleanupLoop 队列未启用时在进程内周期执行预占清理
type CleanupLoop struct {
	cleanup  *service.ReservationCleanupService
	interval time.Duration
	done     chan struct{}
}

// NewCleanupLoop 创建进程内清理循环，cron 表达式仅支持 "@every <duration>"
func NewCleanupLoop(cleanup *service.ReservationCleanupService, spec string) *CleanupLoop {
	return &CleanupLoop{
		cleanup:  cleanup,
		interval: ParseEveryInterval(spec, defaultCleanupInterval),
		done:     make(chan struct{}),
	}
}

// ParseEveryInterval 解析 "@every 5m" 形式的间隔，无法解析时返回 fallback
func ParseEveryInterval(spec string, fallback time.Duration) time.Duration {
	trimmed := strings.TrimSpace(spec)
	if !strings.HasPrefix(trimmed, "@every ") {
		return fallback
	}
	interval, err := time.ParseDuration(strings.TrimSpace(strings.TrimPrefix(trimmed, "@every ")))
	if err != nil || interval <= 0 {
		return fallback
	}
	return interval
}

// Name 服务名称
func (l *CleanupLoop) Name() string {
	return "reservation_cleanup_loop"
}

// Start 阻塞运行直到 ctx 取消或 Stop
func (l *CleanupLoop) Start(ctx context.Context) error {
	if l == nil || l.cleanup == nil {
		return nil
	}
	runOnce := func() {
		if _, err := l.cleanup.Run(ctx); err != nil {
			logger.Warnw("worker_reservation_cleanup_loop_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}

// Stop 停止循环
func (l *CleanupLoop) Stop(context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	return nil
}
