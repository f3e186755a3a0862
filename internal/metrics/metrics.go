package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "checkout"

// Collector 订单核心指标，nil 接收者上的方法均为空操作
type Collector struct {
	registry *prometheus.Registry

	transitions  *prometheus.CounterVec
	stockReject  *prometheus.CounterVec
	reservations *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobSuccess   *prometheus.CounterVec
	jobFailure   *prometheus.CounterVec
}

// New 创建独立 registry 并注册全部指标
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c := NewWithRegisterer(reg)
	c.registry = reg
	return c
}

// NewWithRegisterer 在给定 registerer 上注册指标
func NewWithRegisterer(reg prometheus.Registerer) *Collector {
	if reg == nil {
		return &Collector{}
	}
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order state transitions by source, target and result.",
		}, []string{"from", "to", "result"}),
		stockReject: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Stock checks that rejected a request.",
		}, []string{"stage"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_released_total",
			Help:      "Stock reservations deleted by reason.",
		}, []string{"reason"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of background jobs in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		jobSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_success_total",
			Help:      "Successful background job executions.",
		}, []string{"job"}),
		jobFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failure_total",
			Help:      "Failed background job executions.",
		}, []string{"job"}),
	}
	reg.MustRegister(c.transitions, c.stockReject, c.reservations, c.jobDuration, c.jobSuccess, c.jobFailure)
	return c
}

// Registry 返回自建 registry（NewWithRegisterer 创建时为空）
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveTransition 记录一次状态流转
func (c *Collector) ObserveTransition(from, to string, ok bool) {
	if c == nil || c.transitions == nil {
		return
	}
	result := "success"
	if !ok {
		result = "rejected"
	}
	c.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), result).Inc()
}

// IncStockRejection 记录库存校验拒绝
func (c *Collector) IncStockRejection(stage string) {
	if c == nil || c.stockReject == nil {
		return
	}
	c.stockReject.WithLabelValues(normalizeLabel(stage)).Inc()
}

// AddReservationsReleased 记录删除的预占数量
func (c *Collector) AddReservationsReleased(reason string, count int64) {
	if c == nil || c.reservations == nil || count <= 0 {
		return
	}
	c.reservations.WithLabelValues(normalizeLabel(reason)).Add(float64(count))
}

// ObserveJobDuration 记录后台任务耗时
func (c *Collector) ObserveJobDuration(job string, duration time.Duration) {
	if c == nil || c.jobDuration == nil {
		return
	}
	c.jobDuration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncJobSuccess 后台任务成功计数
func (c *Collector) IncJobSuccess(job string) {
	if c == nil || c.jobSuccess == nil {
		return
	}
	c.jobSuccess.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncJobFailure 后台任务失败计数
func (c *Collector) IncJobFailure(job string) {
	if c == nil || c.jobFailure == nil {
		return
	}
	c.jobFailure.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
