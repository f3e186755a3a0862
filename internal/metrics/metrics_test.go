package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorExportsJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewWithRegisterer(reg)
	c.ObserveJobDuration("reservation_cleanup", 120*time.Millisecond)
	c.IncJobSuccess("reservation_cleanup")
	c.IncJobFailure("reservation_cleanup")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := counterValue(mfs, "checkout_job_success_total", "job", "reservation_cleanup"); err != nil || got != 1 {
		t.Fatalf("expected success=1, got %f err=%v", got, err)
	}
	if got, err := counterValue(mfs, "checkout_job_failure_total", "job", "reservation_cleanup"); err != nil || got != 1 {
		t.Fatalf("expected failure=1, got %f err=%v", got, err)
	}
	mf := findMetricFamily(mfs, "checkout_job_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected duration histogram sample")
	}
}

func TestCollectorTransitionsAndReservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewWithRegisterer(reg)
	c.ObserveTransition("created", "payment_pending", true)
	c.ObserveTransition("paid", "created", false)
	c.AddReservationsReleased("expired", 3)
	c.AddReservationsReleased("expired", 0)
	c.IncStockRejection("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := counterValue(mfs, "checkout_order_transitions_total", "result", "rejected"); err != nil || got != 1 {
		t.Fatalf("expected rejected transition=1, got %f err=%v", got, err)
	}
	if got, err := counterValue(mfs, "checkout_reservations_released_total", "reason", "expired"); err != nil || got != 3 {
		t.Fatalf("expected released=3, got %f err=%v", got, err)
	}
	if got, err := counterValue(mfs, "checkout_stock_rejections_total", "stage", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown stage rejection=1, got %f err=%v", got, err)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveTransition("created", "paid", true)
	c.IncJobFailure("job")
	c.AddReservationsReleased("expired", 1)
	if c.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}

func counterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
